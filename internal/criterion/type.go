// Package criterion holds the platform state the routes are selected on:
// typed criteria whose values are either one literal (exclusive types) or a
// set of literals (inclusive types), and the rules evaluated against them.
package criterion

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"
)

// NoneLiteral renders the empty set of an inclusive type
const NoneLiteral = "none"

// Value pairs a literal with its numerical value.
type Value struct {
	Literal   string
	Numerical uint32
}

// Type is a criterion type. Inclusive types are bitmasks of their values,
// exclusive types hold exactly one of them.
type Type struct {
	name      string
	inclusive bool
	values    []Value
}

// Name returns the type name
func (t *Type) Name() string { return t.name }

// Inclusive reports whether the type is a bitmask
func (t *Type) Inclusive() bool { return t.inclusive }

// Values returns the declared literals in declaration order
func (t *Type) Values() []Value { return slices.Clone(t.values) }

func (t *Type) addValue(literal string, numerical uint32) error {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return wrap(ErrInvalidValue, "type %s: empty literal", t.name)
	}
	if t.inclusive && (literal == NoneLiteral || bits.OnesCount32(numerical) != 1) {
		return wrap(ErrInvalidValue, "type %s: inclusive literal %s must be one bit", t.name, literal)
	}
	for _, v := range t.values {
		if v.Literal == literal {
			return wrap(ErrDuplicate, "type %s literal %s", t.name, literal)
		}
		if v.Numerical == numerical {
			return wrap(ErrDuplicate, "type %s value %d", t.name, numerical)
		}
	}
	t.values = append(t.values, Value{Literal: literal, Numerical: numerical})
	return nil
}

func (t *Type) valueOf(literal string) (uint32, bool) {
	for _, v := range t.values {
		if v.Literal == literal {
			return v.Numerical, true
		}
	}
	return 0, false
}

func (t *Type) known() uint32 {
	var mask uint32
	for _, v := range t.values {
		mask |= v.Numerical
	}
	return mask
}

// Parse converts a literal into a value. Inclusive types accept several
// literals joined with "|", and "none" or "" for the empty set.
func (t *Type) Parse(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if !t.inclusive {
		v, ok := t.valueOf(s)
		if !ok {
			return 0, wrap(ErrInvalidValue, "%q is not a %s literal", s, t.name)
		}
		return v, nil
	}

	var mask uint32
	for part := range strings.SplitSeq(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" || part == NoneLiteral {
			continue
		}
		v, ok := t.valueOf(part)
		if !ok {
			return 0, wrap(ErrInvalidValue, "%q is not a %s literal", part, t.name)
		}
		mask |= v
	}
	return mask, nil
}

// Validate checks a numerical value. Exclusive values must be declared and
// inclusive values must not carry undeclared bits.
func (t *Type) Validate(value uint32) error {
	if t.inclusive {
		if extra := value &^ t.known(); extra != 0 {
			return wrap(ErrInvalidValue, "bits 0x%x not declared in %s", extra, t.name)
		}
		return nil
	}
	for _, v := range t.values {
		if v.Numerical == value {
			return nil
		}
	}
	return wrap(ErrInvalidValue, "%d not declared in %s", value, t.name)
}

// Format renders a value as its literal, or literals joined with "|".
func (t *Type) Format(value uint32) string {
	if !t.inclusive {
		for _, v := range t.values {
			if v.Numerical == value {
				return v.Literal
			}
		}
		return fmt.Sprintf("%d", value)
	}

	if value == 0 {
		return NoneLiteral
	}
	var parts []string
	for _, v := range t.values {
		if value&v.Numerical != 0 {
			parts = append(parts, v.Literal)
		}
	}
	if extra := value &^ t.known(); extra != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", extra))
	}
	return strings.Join(parts, "|")
}
