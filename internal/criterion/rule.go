package criterion

import (
	"fmt"
	"strings"
)

// Op is the comparison a rule applies.
type Op int

const (
	// OpIs matches the exact value
	OpIs Op = iota
	// OpIncludes matches when every bit of the literal is set
	OpIncludes
	// OpExcludes matches when no bit of the literal is set
	OpExcludes
)

func (o Op) String() string {
	switch o {
	case OpIs:
		return "is"
	case OpIncludes:
		return "includes"
	case OpExcludes:
		return "excludes"
	default:
		return "unknown"
	}
}

// Rule is one condition on a criterion.
type Rule struct {
	Criterion string
	Op        Op
	Literal   string
}

func (r Rule) String() string {
	return fmt.Sprintf("%s %s %s", r.Criterion, r.Op, r.Literal)
}

// RuleSet holds when all of its rules hold. An empty set always holds.
type RuleSet []Rule

func (rs RuleSet) String() string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, " && ")
}

// Evaluate checks a rule set against the current criteria. Rules naming an
// unknown criterion or literal make the set fail with an error.
func (m *Manager) Evaluate(rules RuleSet) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range rules {
		ok, err := m.evaluate(r)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (m *Manager) evaluate(r Rule) (bool, error) {
	c, ok := m.criteria[r.Criterion]
	if !ok {
		return false, wrap(ErrUnknownCriterion, "%s", r.Criterion)
	}
	want, err := c.typ.Parse(r.Literal)
	if err != nil {
		return false, err
	}

	switch r.Op {
	case OpIs:
		return c.value == want, nil
	case OpIncludes:
		if !c.typ.inclusive {
			return false, wrap(ErrInvalidValue, "includes on exclusive criterion %s", r.Criterion)
		}
		return c.value&want == want, nil
	case OpExcludes:
		if !c.typ.inclusive {
			return false, wrap(ErrInvalidValue, "excludes on exclusive criterion %s", r.Criterion)
		}
		return c.value&want == 0, nil
	default:
		return false, wrap(ErrInvalidValue, "rule operator %d", int(r.Op))
	}
}
