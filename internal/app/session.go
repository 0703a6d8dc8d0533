package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/tphakala/routemgr/internal/platform"
	"github.com/tphakala/routemgr/internal/routing"
)

// ParseAssignment splits a "key=value" command line assignment.
func ParseAssignment(s string) (key, value string, err error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid assignment %q, want key=value", s)
	}
	return key, strings.TrimSpace(value), nil
}

// ApplyAssignments sets every "key=value" pair on the platform and runs one
// routing cycle. All assignments are attempted; the first failure aborts
// before the cycle.
func ApplyAssignments(ctx context.Context, pl *platform.Platform, assignments []string) (*routing.Plan, error) {
	for _, a := range assignments {
		key, value, err := ParseAssignment(a)
		if err != nil {
			return nil, err
		}
		if _, err := pl.SetParameter(key, value); err != nil {
			return nil, err
		}
	}
	return pl.Apply(ctx)
}

// WriteState prints criteria, parameters and the route table.
func WriteState(w io.Writer, pl *platform.Platform) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "CRITERION\tTYPE\tVALUE")
	for _, c := range pl.Criteria().Criteria() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Name, c.Type, c.Literal)
	}
	if params := pl.Parameters(); len(params) > 0 {
		fmt.Fprintln(tw, "\nPARAMETER\tTARGET\tVALUE")
		for _, p := range params {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Key, p.Name, p.Value)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return WriteRoutes(w, pl.Routing())
}

// WriteRoutes prints one line per route with its availability flags.
func WriteRoutes(w io.Writer, rm *routing.Manager) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tDIR\tMASK\tSTREAM\tAPPLICABLE\tBLOCKED\tUSED")
	for _, r := range rm.Snapshot() {
		fmt.Fprintf(tw, "%s\t%s\t0x%x\t%t\t%t\t%t\t%t\n",
			r.Name, r.Direction, r.Mask, r.Stream, r.Applicable, r.Blocked, r.Used)
	}
	return tw.Flush()
}
