package routing

import (
	"github.com/tphakala/routemgr/internal/audio"
)

// maxRoutesPerDirection is the number of bits in a route mask
const maxRoutesPerDirection = 32

// Context hands out route masks. Each direction has its own counter and the
// n-th route created in a direction gets mask 1<<n.
type Context struct {
	count [audio.NumDirections]uint32
}

// NewContext returns a context with both counters at zero.
func NewContext() *Context {
	return &Context{}
}

// NextMask returns the mask for the next route in dir.
func (c *Context) NextMask(dir audio.Direction) (uint32, error) {
	if dir < 0 || dir >= audio.NumDirections {
		return 0, wrap(ErrMaskExhausted, "direction", dir.String())
	}
	if c.count[dir] >= maxRoutesPerDirection {
		return 0, wrap(ErrMaskExhausted, "direction", dir.String())
	}
	mask := uint32(1) << c.count[dir]
	c.count[dir]++
	return mask, nil
}

// Count returns how many masks were handed out in dir.
func (c *Context) Count(dir audio.Direction) uint32 {
	return c.count[dir]
}
