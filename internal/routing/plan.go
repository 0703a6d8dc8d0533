package routing

import (
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/routemgr/internal/audio"
)

// Plan is what a reconsideration cycle decided.
type Plan struct {
	Cycle   uint64
	Changed bool

	Enabled  []string // used now, not before
	Disabled []string // used before, not now
	Reflow   []string // stay used, mute and unmute
	Repath   []string // stay used, close and reopen

	Attached []string // stream ids attached during the cycle
	Detached []string // stream ids detached during the cycle

	// OpenedMask has the mask bits of every used route, ClosingMask those of
	// routes that were used and are going away or being reopened.
	OpenedMask  [audio.NumDirections]uint32
	ClosingMask [audio.NumDirections]uint32

	Duration time.Duration
}

// Opened returns the opened mask of dir.
func (p *Plan) Opened(dir audio.Direction) uint32 { return p.OpenedMask[dir] }

// Closing returns the closing mask of dir.
func (p *Plan) Closing(dir audio.Direction) uint32 { return p.ClosingMask[dir] }

// String renders the plan on a few lines for the CLI.
func (p *Plan) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "cycle %d changed=%t (%s)\n", p.Cycle, p.Changed, p.Duration)
	writeList := func(label string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(&b, "  %-9s %s\n", label+":", strings.Join(items, ", "))
		}
	}
	writeList("enabled", p.Enabled)
	writeList("disabled", p.Disabled)
	writeList("reflow", p.Reflow)
	writeList("repath", p.Repath)
	writeList("attached", p.Attached)
	writeList("detached", p.Detached)
	for dir := audio.Direction(0); dir < audio.NumDirections; dir++ {
		fmt.Fprintf(&b, "  %-9s opened=%#x closing=%#x\n", dir.String()+":", p.OpenedMask[dir], p.ClosingMask[dir])
	}
	return b.String()
}
