package routing

import (
	"github.com/tphakala/routemgr/internal/errors"
)

// ComponentRouting identifies routing errors
const ComponentRouting = "routing"

var (
	// ErrRouteNotFound is returned when a setter names an unknown route
	ErrRouteNotFound = errors.New(errors.NewStd("route not found")).
		Component(ComponentRouting).
		Category(errors.CategoryNotFound).
		Context("resource", "route").
		Build()

	// ErrPortNotFound is returned when a setter names an unknown port
	ErrPortNotFound = errors.New(errors.NewStd("port not found")).
		Component(ComponentRouting).
		Category(errors.CategoryNotFound).
		Context("resource", "port").
		Build()

	// ErrDuplicateName is returned when a route, port or group name is reused
	ErrDuplicateName = errors.New(errors.NewStd("name already registered")).
		Component(ComponentRouting).
		Category(errors.CategoryConflict).
		Build()

	// ErrSharedGroup is returned when both ends of a route would sit in one port group
	ErrSharedGroup = errors.New(errors.NewStd("route endpoints share a port group")).
		Component(ComponentRouting).
		Category(errors.CategoryConflict).
		Build()

	// ErrNotStreamRoute is returned when a stream operation names a plain route
	ErrNotStreamRoute = errors.New(errors.NewStd("not a stream route")).
		Component(ComponentRouting).
		Category(errors.CategoryValidation).
		Build()

	// ErrMaskExhausted is returned when a direction has no mask bit left
	ErrMaskExhausted = errors.New(errors.NewStd("no route mask bit left")).
		Component(ComponentRouting).
		Category(errors.CategoryLimit).
		Build()

	// ErrContention reports two used ports in one port group
	ErrContention = errors.New(errors.NewStd("port group contention")).
		Component(ComponentRouting).
		Category(errors.CategoryContention).
		Build()

	// ErrUnknownEffect is returned for an effect name with no id
	ErrUnknownEffect = errors.New(errors.NewStd("unknown effect")).
		Component(ComponentRouting).
		Category(errors.CategoryNotFound).
		Context("resource", "effect").
		Build()
)

// wrap attaches a name to a sentinel while keeping errors.Is working
func wrap(sentinel *errors.EnhancedError, key, name string) error {
	return errors.Newf("%w: %s", sentinel, name).
		Component(ComponentRouting).
		Category(sentinel.Category).
		Context(key, name).
		Build()
}
