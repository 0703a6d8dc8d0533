// config.go: settings struct for routemgr and functions to load and save them.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled  bool         // true to also write JSON logs to Path
	Level    string       // trace, debug, info, warn, error
	Path     string       // path to the log file
	Rotation RotationType // type of log rotation
	MaxSize  int64        `mapstructure:"max_size" yaml:"max_size"` // max size in bytes for RotationSize
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// MetricsSettings controls the prometheus endpoint
type MetricsSettings struct {
	Enabled bool   // true to serve /metrics
	Listen  string // listen address, e.g. 127.0.0.1:9102
}

// TelemetrySettings controls error reporting to Sentry
type TelemetrySettings struct {
	Enabled bool
	DSN     string
}

// EventsSettings configures the routing event bus
type EventsSettings struct {
	Enabled    bool
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size"`
	Workers    int
	LogPath    string `mapstructure:"log_path" yaml:"log_path,omitempty"` // JSON event journal, empty disables
}

// Settings contains all configuration options for routemgr.
type Settings struct {
	Debug     bool
	Log       LogConfig
	Metrics   MetricsSettings
	Telemetry TelemetrySettings
	Events    EventsSettings
	Platform  Platform
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// FlagKeys maps command line flag names onto configuration keys
var FlagKeys = map[string]string{
	"debug":          "debug",
	"log-level":      "log.level",
	"metrics-listen": "metrics.listen",
}

// Load reads the configuration file and environment variables.
// configPath may be empty, in which case the default search paths are used.
func Load(configPath string) (*Settings, error) {
	return LoadWithFlags(configPath, nil)
}

// LoadWithFlags is Load with command line flags taking precedence over the
// file and the environment. Only flags named in FlagKeys are bound.
func LoadWithFlags(configPath string, flags *pflag.FlagSet) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v, err := initViper(configPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("error binding flag %s: %w", name, err)
				}
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper creates a viper instance with defaults and reads the configuration file.
func initViper(configPath string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ROUTEMGR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultConfig(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
		return v, nil
	}

	v.SetConfigName("routemgr")
	for _, path := range GetDefaultConfigPaths() {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No file anywhere, fall back to the embedded example platform
			data, readErr := fs.ReadFile(configFiles, "config.yaml")
			if readErr != nil {
				return nil, fmt.Errorf("error reading embedded config: %w", readErr)
			}
			if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
				return nil, fmt.Errorf("error parsing embedded config: %w", err)
			}
			return v, nil
		}
		return nil, fmt.Errorf("fatal error reading config file: %w", err)
	}

	return v, nil
}

// GetDefaultConfigPaths returns the directories searched for routemgr.yaml
func GetDefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "routemgr"))
	}
	return append(paths, "/etc/routemgr")
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write to a temporary file first so a crash never leaves a truncated config
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "routemgr-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
