package stream

import (
	"github.com/tphakala/routemgr/internal/errors"
)

// ComponentStream identifies stream errors
const ComponentStream = "stream"

// ErrNoNewRoute is returned by AttachRoute when the engine staged no route
var ErrNoNewRoute = errors.New(errors.NewStd("no new stream route staged")).
	Component(ComponentStream).
	Category(errors.CategoryValidation).
	Build()
