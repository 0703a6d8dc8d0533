// Package routing decides which audio routes are active after a change of
// platform state and what has to happen to the hardware to get there.
//
// # Model
//
// A Port is a hardware resource such as an I2S bus. Ports belong to port
// groups; at most one member of a group is in use at a time. A Route is a
// logical path in one direction over up to two ports. Stream routes carry a
// PCM device and are what audio streams attach to.
//
// Ports and routes live in arenas owned by the Manager and refer to each other
// by RouteID and PortID. They are never removed while the manager lives, so
// the *StreamRoute pointers held by streams stay valid.
//
// # Reconsideration
//
// Every cycle runs in three steps:
//
//   - reset: blocked and used are cleared, used is carried into previouslyUsed
//   - prepare: in priority order, each applicable route becomes used and marks
//     its ports used; a used port blocks the other ports of its groups, and a
//     blocked port blocks every route over it
//   - commit: used, previouslyUsed and the requested stages tell which routes
//     are enabled, disabled, reflowed (muted and unmuted) or repathed (closed
//     and reopened)
//
// Reconsider then elects streams for the used stream routes and executes the
// stages: mute, disable, configure, enable, unmute.
//
// # Concurrency
//
// Manager methods serialise on an internal mutex, so one cycle runs at a time.
// Route and Port getters read unsynchronised state and are meant for the
// goroutine driving the manager; other goroutines use Snapshot or the Plan
// returned by Reconsider.
package routing
