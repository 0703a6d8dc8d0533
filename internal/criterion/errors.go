package criterion

import (
	"github.com/tphakala/routemgr/internal/errors"
)

// ComponentCriterion identifies criterion errors
const ComponentCriterion = "criterion"

var (
	// ErrUnknownCriterion is returned for a criterion name that was never registered
	ErrUnknownCriterion = errors.New(errors.NewStd("unknown criterion")).
		Component(ComponentCriterion).
		Category(errors.CategoryNotFound).
		Context("resource", "criterion").
		Build()

	// ErrUnknownType is returned for a criterion type that was never registered
	ErrUnknownType = errors.New(errors.NewStd("unknown criterion type")).
		Component(ComponentCriterion).
		Category(errors.CategoryNotFound).
		Context("resource", "criterion_type").
		Build()

	// ErrInvalidValue is returned when a value is outside a type's literals
	ErrInvalidValue = errors.New(errors.NewStd("invalid criterion value")).
		Component(ComponentCriterion).
		Category(errors.CategoryCriterion).
		Build()

	// ErrDuplicate is returned when a type, literal or criterion is registered twice
	ErrDuplicate = errors.New(errors.NewStd("already registered")).
		Component(ComponentCriterion).
		Category(errors.CategoryConflict).
		Build()
)

func wrap(sentinel *errors.EnhancedError, format string, args ...any) error {
	return errors.Newf("%w: "+format, append([]any{sentinel}, args...)...).
		Component(ComponentCriterion).
		Category(sentinel.Category).
		Build()
}
