// Package validate implements the command that checks a platform description.
package validate

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tphakala/routemgr/internal/buildinfo"
	"github.com/tphakala/routemgr/internal/conf"
	"github.com/tphakala/routemgr/internal/platform"
)

// Command creates the validate command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the platform description",
		Long:  "Load the configuration, check the topology and rules, and build the platform without opening any device.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), conf.GetSettings())
		},
	}
}

func run(out io.Writer, settings *conf.Settings) error {
	result := Check(&settings.Platform)

	for _, w := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", w)
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
	if !result.Valid {
		return fmt.Errorf("platform is invalid: %d error(s)", len(result.Errors))
	}

	p := settings.Platform
	fmt.Fprintf(out, "platform ok: %d ports, %d routes, %d criteria, %d parameters\n",
		len(p.Ports), len(p.Routes), len(p.Criteria), len(p.Parameters))
	return nil
}

// Check validates the description statically, then builds it with in-memory
// executors so that construction errors surface too.
func Check(p *conf.Platform) *buildinfo.ValidationResult {
	result := buildinfo.NewValidationResult()

	problems := conf.ValidatePlatform(p)
	for _, problem := range problems {
		result.AddError(problem)
	}
	if len(problems) == 0 {
		if _, err := platform.New(p, platform.Config{}); err != nil {
			result.AddError(err.Error())
		}
	}

	used := make(map[string]bool, len(p.Ports))
	for _, r := range p.Routes {
		used[r.Source] = true
		used[r.Destination] = true
		if len(r.ApplicableWhen) == 0 {
			result.AddWarning(fmt.Sprintf("route %s has no applicable_when rules and is always applicable", r.Name))
		}
	}
	for _, port := range p.Ports {
		if !used[port.Name] {
			result.AddWarning(fmt.Sprintf("port %s is not used by any route", port.Name))
		}
	}

	return result
}
