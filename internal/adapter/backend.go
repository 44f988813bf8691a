// Package adapter implements the per-backend driver that serializes editor
// commands against a debugger child's tri-state status, manages pending
// breakpoints, and translates each Command into backend-specific bytes or
// WebSocket frames (§4.5). It is grounded on the teacher's
// internal/timeline work-loop (Engine.Run/poll: a single goroutine draining
// a work queue and dispatching to per-item handling) generalized from
// polling a task store to blocking on a command channel.
package adapter

import (
	"context"

	"github.com/strottos/padre/internal/proto"
)

// Backend abstracts the four debugger kinds behind one command surface
// (§4.5: "presents the uniform Command interface"). The driver calls these
// methods with the adapter status already transitioned to Processing; each
// method only needs to write the backend-specific bytes/frames and return —
// completion is reported asynchronously through the analyzer's Events
// callbacks, not this method's return value.
type Backend interface {
	// Launch issues the backend-specific run sequence (§4.5 "Run
	// semantics") and blocks until the backend is spawned (not until it
	// reaches Listening — that's reported via ProcessStarted).
	Launch(ctx context.Context, debuggerPath string, argv []string) error

	SendBreakpoint(loc proto.FileLocation) error
	SendUnbreakpoint(loc proto.FileLocation) error
	SendStepIn(count int64) error
	SendStepOver(count int64) error
	SendContinue() error
	SendPrint(variable string) error

	// Kill terminates the backend's child process (or WebSocket) without
	// waiting for a graceful shutdown (§4.3, §4.5 Exit semantics).
	Kill() error

	// Name identifies the backend for logs and spawn errors.
	Name() string
}
