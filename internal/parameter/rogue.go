package parameter

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/tphakala/routemgr/internal/logging"
)

// Converter parses and renders the literal form of a T.
type Converter[T any] struct {
	Parse  func(literal string) (T, error)
	Format func(value T) string
}

// Converters for the supported parameter types
var (
	Uint32 = Converter[uint32]{
		Parse: func(s string) (uint32, error) {
			v, err := strconv.ParseUint(s, 0, 32)
			return uint32(v), err
		},
		Format: func(v uint32) string { return strconv.FormatUint(uint64(v), 10) },
	}
	Int32 = Converter[int32]{
		Parse: func(s string) (int32, error) {
			v, err := strconv.ParseInt(s, 0, 32)
			return int32(v), err
		},
		Format: func(v int32) string { return strconv.FormatInt(int64(v), 10) },
	}
	Bool = Converter[bool]{
		Parse:  strconv.ParseBool,
		Format: strconv.FormatBool,
	}
	String = Converter[string]{
		Parse:  func(s string) (string, error) { return s, nil },
		Format: func(s string) string { return s },
	}
)

// Mapping pairs a host value with a parameter literal.
type Mapping struct {
	Value   string
	Literal string
}

// Parameter is the type-erased view the platform keeps of every Rogue.
type Parameter interface {
	Key() string
	Name() string
	Set(value string) error
	Get() (string, error)
	Sync() error
}

// Rogue is a typed parameter driven by a host key. Host values go through
// the mapping table to a literal, and the literal is parsed as T.
type Rogue[T any] struct {
	key            string
	name           string
	defaultLiteral string
	mapping        []Mapping
	conv           Converter[T]
	store          *Store
	logger         *slog.Logger
}

var _ Parameter = (*Rogue[uint32])(nil)

// NewRogue creates a parameter stored under name in store.
func NewRogue[T any](key, name, defaultLiteral string, mapping []Mapping, conv Converter[T], store *Store) *Rogue[T] {
	return &Rogue[T]{
		key:            key,
		name:           name,
		defaultLiteral: defaultLiteral,
		mapping:        mapping,
		conv:           conv,
		store:          store,
		logger:         logging.ForService("parameter").With("key", key),
	}
}

// Key returns the host-facing key
func (r *Rogue[T]) Key() string { return r.key }

// Name returns the typed parameter name
func (r *Rogue[T]) Name() string { return r.name }

func (r *Rogue[T]) literalFor(value string) (string, bool) {
	for _, m := range r.mapping {
		if m.Value == value {
			return m.Literal, true
		}
	}
	return "", false
}

func (r *Rogue[T]) valueFor(literal string) (string, bool) {
	for _, m := range r.mapping {
		if m.Literal == literal {
			return m.Value, true
		}
	}
	return "", false
}

func (r *Rogue[T]) parse(literal string) (T, error) {
	v, err := r.conv.Parse(literal)
	if err != nil {
		var zero T
		return zero, wrap(ErrConversion, r.key, literal)
	}
	return v, nil
}

// Set translates a host value and stores the typed result.
func (r *Rogue[T]) Set(value string) error {
	literal, ok := r.literalFor(value)
	if !ok {
		r.logger.Warn("unknown parameter value", "value", value)
		return wrap(ErrUnknownValue, r.key, value)
	}
	typed, err := r.parse(literal)
	if err != nil {
		return err
	}
	r.store.Set(r.name, typed)
	r.logger.Debug("parameter set",
		"name", r.name,
		"value", value,
		"literal", literal)
	return nil
}

// TypedValue returns the stored typed value.
func (r *Rogue[T]) TypedValue() (T, error) {
	var zero T
	raw, ok := r.store.Get(r.name)
	if !ok {
		return zero, wrap(ErrNotSet, r.key, r.name)
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, wrap(ErrConversion, r.key, fmt.Sprint(raw))
	}
	return typed, nil
}

// Get returns the host value mapped to the stored typed value.
func (r *Rogue[T]) Get() (string, error) {
	typed, err := r.TypedValue()
	if err != nil {
		return "", err
	}
	literal := r.conv.Format(typed)
	value, ok := r.valueFor(literal)
	if !ok {
		return "", wrap(ErrUnknownValue, r.key, literal)
	}
	return value, nil
}

// Sync writes the default literal to the store.
func (r *Rogue[T]) Sync() error {
	typed, err := r.parse(r.defaultLiteral)
	if err != nil {
		return err
	}
	r.store.Set(r.name, typed)
	return nil
}
