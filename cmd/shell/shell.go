// Package shell implements an interactive prompt for driving a platform by hand.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/tphakala/routemgr/internal/app"
	"github.com/tphakala/routemgr/internal/audio"
	"github.com/tphakala/routemgr/internal/buildinfo"
	"github.com/tphakala/routemgr/internal/conf"
	"github.com/tphakala/routemgr/internal/platform"
	"github.com/tphakala/routemgr/internal/stream"
)

// Command creates the shell command.
func Command(build *buildinfo.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive routing shell",
		Long:  "Set criteria and parameters, open and close streams, and run routing cycles from a prompt.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			a, err := app.New(conf.GetSettings(), build)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			pl, err := a.NewPlatform(nil)
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "routemgr> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
				AutoComplete:    completer(pl),
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			defer rl.Close()

			return New(pl, rl.Stdout()).Run(ctx, rl)
		},
	}
}

// LineReader is the part of readline the loop needs.
type LineReader interface {
	Readline() (string, error)
}

// Shell dispatches prompt lines against one platform.
type Shell struct {
	pl      *platform.Platform
	out     io.Writer
	streams []*stream.IoStream
}

// New creates a shell writing its output to out.
func New(pl *platform.Platform, out io.Writer) *Shell {
	return &Shell{pl: pl, out: out}
}

// Run reads lines until exit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, in LineReader) error {
	s.printHelp()
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := in.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			// EOF
			return nil
		}
		if quit := s.Exec(ctx, line); quit {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "set":
		err = s.cmdSet(args)
	case "apply", "reconsider", "r":
		err = s.cmdApply(ctx)
	case "show", "s":
		err = app.WriteState(s.out, s.pl)
	case "reset":
		if err = s.pl.Reset(); err == nil {
			fmt.Fprintln(s.out, "criteria and parameters reset to defaults, run apply to reroute")
		}
	case "routes":
		err = app.WriteRoutes(s.out, s.pl.Routing())
	case "open":
		err = s.cmdOpen(args)
	case "close":
		err = s.cmdClose(args)
	case "streams":
		s.cmdStreams()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
	}
	return false
}

func (s *Shell) cmdSet(args []string) error {
	var key, value string
	switch len(args) {
	case 1:
		var err error
		if key, value, err = app.ParseAssignment(args[0]); err != nil {
			return err
		}
	case 2:
		key, value = args[0], args[1]
	default:
		return fmt.Errorf("usage: set <key> <value> or set <key>=<value>")
	}

	changed, err := s.pl.SetParameter(key, value)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s = %s (changed=%t)\n", key, value, changed)
	return nil
}

func (s *Shell) cmdApply(ctx context.Context) error {
	plan, err := s.pl.Apply(ctx)
	if plan != nil {
		fmt.Fprint(s.out, plan.String())
	}
	return err
}

// open <id> <output|input> <devices> [rate]
func (s *Shell) cmdOpen(args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return fmt.Errorf("usage: open <id> <output|input> <devices> [rate]")
	}
	if slices.ContainsFunc(s.streams, func(st *stream.IoStream) bool { return st.ID() == args[0] }) {
		return fmt.Errorf("stream %s already open", args[0])
	}
	dir, err := audio.ParseDirection(args[1])
	if err != nil {
		return err
	}
	devices, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid device mask %q: %w", args[2], err)
	}
	var spec audio.SampleSpec
	if len(args) == 4 {
		rate, err := strconv.ParseUint(args[3], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid rate %q: %w", args[3], err)
		}
		spec.Rate = uint32(rate)
	}

	st := stream.New(stream.Config{
		ID:        args[0],
		Direction: dir,
		Devices:   audio.Devices(devices),
		Spec:      spec,
	})
	s.pl.Routing().AddStream(st)
	s.streams = append(s.streams, st)
	fmt.Fprintf(s.out, "stream %s opened, run apply to route it\n", st.ID())
	return nil
}

func (s *Shell) cmdClose(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: close <id>")
	}
	idx := slices.IndexFunc(s.streams, func(st *stream.IoStream) bool { return st.ID() == args[0] })
	if idx < 0 {
		return fmt.Errorf("unknown stream %s", args[0])
	}
	s.pl.Routing().RemoveStream(args[0])
	s.streams = slices.Delete(s.streams, idx, idx+1)
	fmt.Fprintf(s.out, "stream %s closed\n", args[0])
	return nil
}

func (s *Shell) cmdStreams() {
	if len(s.streams) == 0 {
		fmt.Fprintln(s.out, "no open streams")
		return
	}
	for _, st := range s.streams {
		route := "-"
		if cur := st.CurrentStreamRoute(); cur != nil {
			route = fmt.Sprintf("%s %s", cur.Name(), st.RouteSampleSpec())
		}
		fmt.Fprintf(s.out, "%s\t%s\tdevices=0x%x\troute=%s\n", st.ID(), st.Direction(), uint32(st.Devices()), route)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
routemgr shell commands:
  set <key> <value>                  - Set a criterion or parameter (also key=value)
  apply                              - Run a routing cycle and print the plan
  show                               - Show criteria, parameters and routes
  reset                              - Restore every criterion and parameter default
  routes                             - Show the route table
  open <id> <output|input> <devices> [rate]
                                     - Open a stream on a device mask (e.g. 0x1)
  close <id>                         - Close a stream
  streams                            - List open streams and their routes
  help                               - Show this help
  exit                               - Leave the shell`)
}

// completer offers command names and the known criterion and parameter keys after set
func completer(pl *platform.Platform) *readline.PrefixCompleter {
	var keys []readline.PrefixCompleterInterface
	for _, c := range pl.Criteria().Criteria() {
		keys = append(keys, readline.PcItem(c.Name))
	}
	for _, p := range pl.Parameters() {
		keys = append(keys, readline.PcItem(p.Key))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("set", keys...),
		readline.PcItem("apply"),
		readline.PcItem("show"),
		readline.PcItem("reset"),
		readline.PcItem("routes"),
		readline.PcItem("open"),
		readline.PcItem("close"),
		readline.PcItem("streams"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}
