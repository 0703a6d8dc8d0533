package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/routemgr/cmd/reconsider"
	"github.com/tphakala/routemgr/cmd/serve"
	"github.com/tphakala/routemgr/cmd/shell"
	"github.com/tphakala/routemgr/cmd/validate"
	"github.com/tphakala/routemgr/internal/buildinfo"
	"github.com/tphakala/routemgr/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(build *buildinfo.Context) *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "routemgr",
		Short:         "Audio route manager",
		Long:          "routemgr decides which audio routes of a platform are in use from a set of criteria and drives the devices and streams behind them.",
		Version:       fmt.Sprintf("%s (built %s)", build.GetVersion(), build.GetBuildDate()),
		SilenceUsage:  true,
	}

	// Set up the global flags for the root command.
	setupFlags(rootCmd, &configPath)

	rootCmd.AddCommand(
		validate.Command(),
		reconsider.Command(build),
		shell.Command(build),
		serve.Command(build),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Command line flags take precedence over file and environment
		if _, err := conf.LoadWithFlags(configPath, cmd.Flags()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configPath *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(configPath, "config", "c", "", "Path to the configuration file (default: search ., ~/.config/routemgr, /etc/routemgr)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	flags.String("metrics-listen", "127.0.0.1:9102", "Listen address of the Prometheus endpoint when metrics are enabled")
}
