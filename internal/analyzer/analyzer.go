// Package analyzer turns each backend's free-form output into the domain
// events PADRE's adapter driver reacts to (§4.4). Each backend gets its own
// file (lldb.go, pdb.go, delve.go, node.go) holding a regex-driven grammar
// grounded on the same "centralized per-source regex table" shape the pack's
// other_examples debugger analyzers use, generalized from a single reference
// grammar (LLDB, per §4.4, "authoritative reference implementation") to
// PADRE's other three backends.
package analyzer

import "sync"

// StatusKind is the adapter's tri-state status (§3, §4.5).
type StatusKind int

const (
	Unlaunched StatusKind = iota
	Listening
	Processing
)

func (k StatusKind) String() string {
	switch k {
	case Unlaunched:
		return "Unlaunched"
	case Listening:
		return "Listening"
	case Processing:
		return "Processing"
	default:
		return "unknown"
	}
}

// Status is the adapter's current state: a kind, plus the in-flight command
// name when Processing (§3).
type Status struct {
	Kind    StatusKind
	Command string
}

// Events is the set of domain callbacks an analyzer raises as it recognizes
// lines or messages (§4.4). The adapter driver implements this interface;
// analyzers never touch the notifier or command queue directly.
type Events interface {
	ProcessStarted(pid int)
	ProcessExited(pid, code int)
	BreakpointSet(file string, line int64)
	BreakpointUnset(file string, line int64)
	JumpToPosition(file string, line int64)
	ReturnValue(value string)
	PrintedVariable(name, typ, value string)
	VariableNotFound(name string)
	Warn(msg string)
	PassThrough(line string)
	// Complete signals the analyzer has recognized the completion signature
	// for whatever command is currently Processing; the driver transitions
	// to Listening and wakes the registered Awakener.
	Complete()
}

// Awakener is a one-shot wake signal with "at most one outstanding,
// overwrite-and-cancel-previous" semantics (§3, §9's resolved Open
// Question): registering a second awakener drops the first, whose waiter
// observes the channel close without a value rather than hanging forever.
type Awakener struct {
	mu      sync.Mutex
	current chan struct{}
}

// Register installs a new wake channel, cancelling any previously
// registered one that nobody has consumed yet. A receive on the returned
// channel yields (struct{}{}, true) on a real Fire and (zero, false) if the
// awakener was cancelled by a later Register before firing — the two are
// distinguishable so a cancelled waiter never mistakes it for completion.
func (a *Awakener) Register() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current != nil {
		close(a.current)
	}
	ch := make(chan struct{}, 1)
	a.current = ch
	return ch
}

// Fire wakes the currently registered channel, if any, and clears it.
func (a *Awakener) Fire() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return
	}
	a.current <- struct{}{}
	a.current = nil
}
