// Package dispatch routes decoded requests to either a direct meta-command
// answer or the adapter driver (§4.6). Per this repo's resolved Open
// Question on consolidating dispatch and connection-handling (no parallel
// draft paths), meta-command routing lives inside adapter.Driver itself —
// Dispatcher is the thin, named front door connection handlers submit
// through, kept as its own package because the connection handler should
// depend on "where requests go" without importing the adapter package's
// backend-specific machinery directly.
package dispatch

import (
	"github.com/strottos/padre/internal/adapter"
	"github.com/strottos/padre/internal/proto"
)

// Dispatcher is the single entry point a connection handler's inbound task
// submits decoded requests to (§4.7).
type Dispatcher struct {
	driver *adapter.Driver
}

// New returns a Dispatcher bound to driver.
func New(driver *adapter.Driver) *Dispatcher {
	return &Dispatcher{driver: driver}
}

// Dispatch enqueues req on the adapter's single work queue and returns the
// one-shot channel that will receive its response (§4.6, §8: "exactly one
// response with R.id").
func (d *Dispatcher) Dispatch(req proto.Request) <-chan proto.Response {
	return d.driver.Submit(req)
}
