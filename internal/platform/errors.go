package platform

import (
	"github.com/tphakala/routemgr/internal/errors"
)

// ComponentPlatform identifies platform errors
const ComponentPlatform = "platform"

var (
	// ErrUnknownParameter is returned by SetParameter for a key that is
	// neither a criterion nor a typed parameter
	ErrUnknownParameter = errors.New(errors.NewStd("unknown parameter key")).
		Component(ComponentPlatform).
		Category(errors.CategoryNotFound).
		Context("resource", "parameter").
		Build()

	// ErrInvalidPlatform wraps every problem found while building the topology
	ErrInvalidPlatform = errors.New(errors.NewStd("invalid platform configuration")).
		Component(ComponentPlatform).
		Category(errors.CategoryConfiguration).
		Build()
)
