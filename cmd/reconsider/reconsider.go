// Package reconsider implements the one-shot routing command.
package reconsider

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tphakala/routemgr/internal/app"
	"github.com/tphakala/routemgr/internal/buildinfo"
	"github.com/tphakala/routemgr/internal/conf"
)

// Options are the flags of the reconsider command
type Options struct {
	Set  []string
	Show bool
}

// Command creates the reconsider command.
func Command(build *buildinfo.Context) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "reconsider",
		Short: "Run one routing cycle",
		Long:  "Apply criterion and parameter assignments to a fresh platform, run one routing cycle and print the resulting plan.",
		Example: `  routemgr reconsider --set AudioMode=in_call --set SelectedOutputDevices=speaker
  routemgr reconsider --set SelectedOutputDevices=speaker\|hdmi --show`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(conf.GetSettings(), build)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return Run(cmd.Context(), cmd.OutOrStdout(), a, opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Set, "set", "s", nil, "Criterion or parameter assignment key=value, repeatable")
	cmd.Flags().BoolVar(&opts.Show, "show", false, "Print criteria, parameters and routes after the cycle")

	return cmd
}

// Run builds the platform, applies the assignments and prints the plan.
func Run(ctx context.Context, out io.Writer, a *app.App, opts *Options) error {
	pl, err := a.NewPlatform(nil)
	if err != nil {
		return err
	}

	plan, err := app.ApplyAssignments(ctx, pl, opts.Set)
	if plan != nil {
		fmt.Fprint(out, plan.String())
	}
	if err != nil {
		return err
	}

	if opts.Show {
		fmt.Fprintln(out)
		return app.WriteState(out, pl)
	}
	return nil
}
