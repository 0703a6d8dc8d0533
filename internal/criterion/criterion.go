package criterion

import (
	"log/slog"
	"sync"

	"github.com/tphakala/routemgr/internal/logging"
)

// Criterion is one piece of platform state.
type Criterion struct {
	name  string
	typ   *Type
	def   uint32
	value uint32
}

// State is a snapshot of one criterion
type State struct {
	Name      string
	Type      string
	Inclusive bool
	Value     uint32
	Literal   string
}

// Manager owns criterion types and criteria. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	types    map[string]*Type
	criteria map[string]*Criterion
	order    []string
	logger   *slog.Logger
}

// NewManager creates an empty manager. A nil logger selects the criterion service logger.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.ForService("criterion")
	}
	return &Manager{
		types:    make(map[string]*Type),
		criteria: make(map[string]*Criterion),
		logger:   logger,
	}
}

// AddType registers a criterion type.
func (m *Manager) AddType(name string, inclusive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.types[name]; dup {
		return wrap(ErrDuplicate, "criterion type %s", name)
	}
	m.types[name] = &Type{name: name, inclusive: inclusive}
	return nil
}

// AddTypeValue declares a literal of a type.
func (m *Manager) AddTypeValue(typeName, literal string, numerical uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.types[typeName]
	if !ok {
		return wrap(ErrUnknownType, "%s", typeName)
	}
	return t.addValue(literal, numerical)
}

// AddCriterion registers a criterion of an existing type. The default
// literal is parsed by the type; an empty default is the zero value.
func (m *Manager) AddCriterion(name, typeName, defaultLiteral string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.criteria[name]; dup {
		return wrap(ErrDuplicate, "criterion %s", name)
	}
	t, ok := m.types[typeName]
	if !ok {
		return wrap(ErrUnknownType, "%s", typeName)
	}

	var def uint32
	if defaultLiteral != "" {
		v, err := t.Parse(defaultLiteral)
		if err != nil {
			return err
		}
		def = v
	}
	m.criteria[name] = &Criterion{name: name, typ: t, def: def, value: def}
	m.order = append(m.order, name)
	return nil
}

// Has reports whether a criterion is registered
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.criteria[name]
	return ok
}

// SetParameter sets a criterion from its literal form. It returns whether
// the value changed. Invalid literals leave the criterion untouched.
func (m *Manager) SetParameter(name, literal string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.criteria[name]
	if !ok {
		m.logger.Warn("ignoring unknown criterion", "criterion", name)
		return false, wrap(ErrUnknownCriterion, "%s", name)
	}
	v, err := c.typ.Parse(literal)
	if err != nil {
		m.logger.Warn("rejecting criterion value",
			"criterion", name,
			"value", literal,
			"error", err)
		return false, err
	}
	return m.set(c, v), nil
}

// SetValue sets a criterion from its numerical form.
func (m *Manager) SetValue(name string, value uint32) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.criteria[name]
	if !ok {
		return false, wrap(ErrUnknownCriterion, "%s", name)
	}
	if err := c.typ.Validate(value); err != nil {
		m.logger.Warn("rejecting criterion value",
			"criterion", name,
			"value", value,
			"error", err)
		return false, err
	}
	return m.set(c, value), nil
}

func (m *Manager) set(c *Criterion, value uint32) bool {
	if c.value == value {
		return false
	}
	m.logger.Info("criterion changed",
		"criterion", c.name,
		"from", c.typ.Format(c.value),
		"to", c.typ.Format(value))
	c.value = value
	return true
}

// Value returns the numerical value of a criterion.
func (m *Manager) Value(name string) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.criteria[name]
	if !ok {
		return 0, wrap(ErrUnknownCriterion, "%s", name)
	}
	return c.value, nil
}

// Literal returns the value of a criterion in literal form.
func (m *Manager) Literal(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.criteria[name]
	if !ok {
		return "", wrap(ErrUnknownCriterion, "%s", name)
	}
	return c.typ.Format(c.value), nil
}

// ResetDefaults puts every criterion back to its default value.
func (m *Manager) ResetDefaults() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.criteria {
		c.value = c.def
	}
}

// Criteria returns a snapshot in registration order.
func (m *Manager) Criteria() []State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]State, 0, len(m.order))
	for _, name := range m.order {
		c := m.criteria[name]
		out = append(out, State{
			Name:      c.name,
			Type:      c.typ.name,
			Inclusive: c.typ.inclusive,
			Value:     c.value,
			Literal:   c.typ.Format(c.value),
		})
	}
	return out
}
