// Package proto implements PADRE's wire protocol (§4.1, §6): the Command/
// Request/Response/Notification data model and the length-free, framed
// JSON-array codec that decodes partial TCP reads into whole requests.
package proto

import (
	"path/filepath"
)

// Kind discriminates a Command's variant (§3).
type Kind int

const (
	KindRun Kind = iota
	KindInterrupt
	KindExit
	KindBreakpoint
	KindUnbreakpoint
	KindStepIn
	KindStepOver
	KindContinue
	KindPrint
	KindPing
	KindPings
	KindGetConfig
	KindSetConfig
)

func (k Kind) String() string {
	switch k {
	case KindRun:
		return "run"
	case KindInterrupt:
		return "interrupt"
	case KindExit:
		return "exit"
	case KindBreakpoint:
		return "breakpoint"
	case KindUnbreakpoint:
		return "unbreakpoint"
	case KindStepIn:
		return "stepIn"
	case KindStepOver:
		return "stepOver"
	case KindContinue:
		return "continue"
	case KindPrint:
		return "print"
	case KindPing:
		return "ping"
	case KindPings:
		return "pings"
	case KindGetConfig:
		return "getConfig"
	case KindSetConfig:
		return "setConfig"
	default:
		return "unknown"
	}
}

// FileLocation is (path, line) — path canonicalized when possible, line
// 1-based (§3).
type FileLocation struct {
	Path string
	Line int64
}

// Canonicalize resolves path to its absolute, symlink-resolved form. It
// returns an error only when the path cannot be made absolute at all (i.e.
// filepath.Abs itself fails, which for a relative path means os.Getwd
// failed) — that is the "canonicalization fails" case §4.5 requires the
// driver to turn into a dropped command and an error notification. A path
// that resolves to an absolute form but has no symlink to follow (a
// not-yet-created file, say) is not a failure: EvalSymlinks errors fall
// back to the absolute path instead.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// Variable is an opaque identifier forwarded verbatim to the backend.
type Variable struct {
	Name string
}

// Command is a tagged union over PADRE's editor-issued operations (§3).
// Rather than a Go interface union, it is one struct with a Kind
// discriminator and the union of possible payload fields — this is what
// lets the frame codec build a Command directly off decoded JSON without an
// intermediate type switch at every call site.
type Command struct {
	Kind Kind

	Location    FileLocation // Breakpoint, Unbreakpoint
	Count       int64        // StepIn, StepOver (default 1)
	Variable    Variable     // Print
	ConfigKey   string       // GetConfig, SetConfig
	ConfigValue int64        // SetConfig
}

// Request pairs an editor-assigned id with the command it names (§3).
type Request struct {
	ID      uint64
	Command Command
}

// Response pairs a request id with its JSON payload (§3).
type Response struct {
	ID      uint64
	Payload any
}

// Notification is a dotted-name event with ordered JSON args (§3).
type Notification struct {
	Name string
	Args []any
}
