// Package notifier fans out debugger events to every connected editor
// session (§4.2). It mirrors the teacher's internal/relay peer-directory
// pattern: a mutex-guarded registry of per-session outbound channels, with
// broadcast copying the listener set before sending so a slow or gone
// listener can never hold the registry lock open.
package notifier

import (
	"sync"

	"github.com/strottos/padre/internal/proto"
)

// Listener is a per-connection outbound sink. Notifier never blocks on a
// full channel — sends are best-effort (§4.2, §5: "a stalled editor session
// must never stall the adapter").
type Listener struct {
	ch chan proto.Notification
}

// Notifications returns the channel the owning connection reads from.
func (l *Listener) Notifications() <-chan proto.Notification {
	return l.ch
}

// Notifier is the process-wide fan-out registry (§4.2). One Notifier is
// shared by every connection handler and the adapter driver.
type Notifier struct {
	mu        sync.Mutex
	listeners map[*Listener]struct{}
}

// New returns an empty Notifier.
func New() *Notifier {
	return &Notifier{listeners: make(map[*Listener]struct{})}
}

// Register adds a new listener with the given outbound buffer size and
// returns it. The caller unregisters it with Unregister when the connection
// closes.
func (n *Notifier) Register(buffer int) *Listener {
	l := &Listener{ch: make(chan proto.Notification, buffer)}
	n.mu.Lock()
	n.listeners[l] = struct{}{}
	n.mu.Unlock()
	return l
}

// Unregister removes l from the registry and closes its channel. Safe to
// call more than once.
func (n *Notifier) Unregister(l *Listener) {
	n.mu.Lock()
	_, ok := n.listeners[l]
	delete(n.listeners, l)
	n.mu.Unlock()
	if ok {
		close(l.ch)
	}
}

// Broadcast delivers note to every registered listener. A listener whose
// buffer is full is dropped from the registry rather than allowed to back
// up the other listeners (§4.2, §5).
func (n *Notifier) Broadcast(note proto.Notification) {
	n.mu.Lock()
	targets := make([]*Listener, 0, len(n.listeners))
	for l := range n.listeners {
		targets = append(targets, l)
	}
	n.mu.Unlock()

	var dead []*Listener
	for _, l := range targets {
		select {
		case l.ch <- note:
		default:
			dead = append(dead, l)
		}
	}
	for _, l := range dead {
		n.Unregister(l)
	}
}

// ProcessExited emits padre#debugger#ProcessExited with the backend's exit
// code and pid, in that order (§4.2, §6: "[exit_code:int, pid:int]").
func (n *Notifier) ProcessExited(code, pid int) {
	n.Broadcast(proto.Notification{Name: "padre#debugger#ProcessExited", Args: []any{code, pid}})
}

// Log emits padre#debugger#Log with a numeric level (§4.2, §6, matching
// logger.Level* numbering) and message.
func (n *Notifier) Log(level int, message string) {
	n.Broadcast(proto.Notification{Name: "padre#debugger#Log", Args: []any{level, message}})
}

// JumpToPosition emits padre#debugger#JumpToPosition with the file path as
// given (no canonicalization is applied here) and 1-based line (§4.2, §6).
func (n *Notifier) JumpToPosition(file string, line int64) {
	n.Broadcast(proto.Notification{Name: "padre#debugger#JumpToPosition", Args: []any{file, line}})
}

// BreakpointSet emits padre#debugger#BreakpointSet once the backend reports
// a breakpoint as installed, whether or not it was queued as pending first
// (§4.2, §6).
func (n *Notifier) BreakpointSet(file string, line int64) {
	n.Broadcast(proto.Notification{Name: "padre#debugger#BreakpointSet", Args: []any{file, line}})
}

// BreakpointUnset emits padre#debugger#BreakpointUnset once a breakpoint
// has been removed (§4.2, §6).
func (n *Notifier) BreakpointUnset(file string, line int64) {
	n.Broadcast(proto.Notification{Name: "padre#debugger#BreakpointUnset", Args: []any{file, line}})
}
