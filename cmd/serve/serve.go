// Package serve implements the long running routing daemon.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/routemgr/internal/app"
	"github.com/tphakala/routemgr/internal/buildinfo"
	"github.com/tphakala/routemgr/internal/conf"
	"github.com/tphakala/routemgr/internal/logging"
)

// Command creates the serve command.
func Command(build *buildinfo.Context) *cobra.Command {
	var assignments []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the route manager until interrupted",
		Long:  "Build the platform, apply the initial assignments, run a routing cycle and keep the metrics endpoint and event bus running until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(conf.GetSettings(), build)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return Run(ctx, a, assignments)
		},
	}

	cmd.Flags().StringArrayVarP(&assignments, "set", "s", nil, "Initial criterion or parameter assignment key=value, repeatable")

	return cmd
}

// Run routes once and blocks until ctx is done.
func Run(ctx context.Context, a *app.App, assignments []string) error {
	logger := logging.ForService("serve")

	pl, err := a.NewPlatform(nil)
	if err != nil {
		return err
	}
	plan, err := app.ApplyAssignments(ctx, pl, assignments)
	if err != nil {
		return err
	}
	logger.Info("initial routing applied",
		"cycle", plan.Cycle,
		"enabled", plan.Enabled,
		"metrics_addr", a.MetricsAddr())

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
