// Package effects maps pre-processing effect names to their bit ids.
package effects

import (
	"strings"

	"github.com/tphakala/routemgr/internal/errors"
)

// ID is a single effect bit.
type ID uint32

const (
	AGC ID = 1 << iota // automatic gain control
	NS                 // noise suppression
	AEC                // acoustic echo cancellation
)

// Mask is a set of effects.
type Mask uint32

var names = []struct {
	name string
	id   ID
}{
	{"agc", AGC},
	{"ns", NS},
	{"aec", AEC},
}

// IDFromName returns the id of a pre-processing effect.
func IDFromName(name string) (ID, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, n := range names {
		if n.name == key {
			return n.id, nil
		}
	}
	return 0, errors.NotFound("effects", "effect", name)
}

// Name returns the name of id, or an empty string.
func (id ID) Name() string {
	for _, n := range names {
		if n.id == id {
			return n.name
		}
	}
	return ""
}

// With returns the mask with id set.
func (m Mask) With(id ID) Mask { return m | Mask(id) }

// Without returns the mask with id cleared.
func (m Mask) Without(id ID) Mask { return m &^ Mask(id) }

// Has reports whether id is set.
func (m Mask) Has(id ID) bool { return m&Mask(id) != 0 }

// Minus returns the effects of m not in other. A stream runs in software
// the requested effects its route has no hardware support for.
func (m Mask) Minus(other Mask) Mask { return m &^ other }

// Names lists the effect names in the mask.
func (m Mask) Names() []string {
	var out []string
	for _, n := range names {
		if m.Has(n.id) {
			out = append(out, n.name)
		}
	}
	return out
}

// MaskFromNames builds a mask from effect names.
func MaskFromNames(list []string) (Mask, error) {
	var m Mask
	for _, name := range list {
		id, err := IDFromName(name)
		if err != nil {
			return 0, err
		}
		m = m.With(id)
	}
	return m, nil
}
