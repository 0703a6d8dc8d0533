package routing

import "context"

// Executor drives the audio path while a cycle's stages run. Mute and Unmute
// receive route names; Configure receives the whole plan so it can push the
// new route masks to the hardware mixer.
type Executor interface {
	Mute(ctx context.Context, routes []string) error
	Configure(ctx context.Context, plan *Plan) error
	Unmute(ctx context.Context, routes []string) error
}

// NopExecutor does nothing.
type NopExecutor struct{}

func (NopExecutor) Mute(context.Context, []string) error   { return nil }
func (NopExecutor) Configure(context.Context, *Plan) error { return nil }
func (NopExecutor) Unmute(context.Context, []string) error { return nil }
