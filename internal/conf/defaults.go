// conf/defaults.go default values for settings
package conf

import "github.com/spf13/viper"

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("log.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "logs/routemgr.log")
	v.SetDefault("log.rotation", RotationDaily)
	v.SetDefault("log.max_size", 10485760)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9102")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dsn", "")

	v.SetDefault("events.enabled", true)
	v.SetDefault("events.buffer_size", 256)
	v.SetDefault("events.workers", 1)
	v.SetDefault("events.log_path", "")
}
