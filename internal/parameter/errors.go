package parameter

import (
	"github.com/tphakala/routemgr/internal/errors"
)

// ComponentParameter identifies parameter errors
const ComponentParameter = "parameter"

var (
	// ErrUnknownValue is returned for a host value missing from the mapping table
	ErrUnknownValue = errors.New(errors.NewStd("unknown parameter value")).
		Component(ComponentParameter).
		Category(errors.CategoryValidation).
		Build()

	// ErrConversion is returned when a literal does not parse as the parameter type
	ErrConversion = errors.New(errors.NewStd("parameter conversion failed")).
		Component(ComponentParameter).
		Category(errors.CategoryParameter).
		Build()

	// ErrNotSet is returned by Get before the parameter was set or synced
	ErrNotSet = errors.New(errors.NewStd("parameter not set")).
		Component(ComponentParameter).
		Category(errors.CategoryState).
		Build()
)

func wrap(sentinel *errors.EnhancedError, key, value string) error {
	return errors.Newf("%w: %s=%s", sentinel, key, value).
		Component(ComponentParameter).
		Category(sentinel.Category).
		Context("key", key).
		Context("value", value).
		Build()
}
