package analyzer

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var (
	lldbStarted        = regexp.MustCompile(`^Current executable set to '.*'`)
	lldbProcessStarted = regexp.MustCompile(`^Process (\d+) launched:`)
	lldbProcessExited  = regexp.MustCompile(`^Process (\d+) exited with status = (\d+)`)
	lldbBreakpointSet  = regexp.MustCompile(`^Breakpoint \d+: where = .* at ([^:]+):(\d+)`)
	lldbBreakpointMult = regexp.MustCompile(`^Breakpoint \d+: \d+ locations`)
	lldbBreakpointPend = regexp.MustCompile(`^Breakpoint \d+: no locations \(pending\)`)
	lldbJumpToPosition = regexp.MustCompile(`^\s*frame #\d+.* at ([^:]+):(\d+)`)
	lldbPrintedVar     = regexp.MustCompile(`^\(([^)]+)\) (\S+) = (.*)$`)
	lldbVarNotFound    = regexp.MustCompile(`error: no variable named '(.+)' found`)
	lldbProcessNotRun  = regexp.MustCompile(`^error: invalid process$`)
	lldbPrompt         = regexp.MustCompile(`^\(lldb\) `)
)

// LLDB parses lldb's REPL output (§4.4, "authoritative reference
// implementation"). It is the model the other three backends' grammars
// generalize from.
type LLDB struct {
	events  Events
	Status  Status
	Awake   Awakener
	PID     int
	varName string
	varType string
	varBuf  strings.Builder
	inVar   bool

	mu           sync.Mutex
	internalStep bool
}

// NewLLDB returns an analyzer in the Unlaunched state.
func NewLLDB(events Events) *LLDB {
	return &LLDB{events: events, Status: Status{Kind: Unlaunched}}
}

// BeginInternalStep marks the analyzer as running a backend-internal launch
// step (§4.5's two-command run sequence): completeAndPrompt still wakes the
// backend's own Awake registrant, but stops forwarding to events.Complete()
// and events.BreakpointSet() so the driver's top-level awaiter and the
// editor don't observe the internal "breakpoint set --name main" step.
func (a *LLDB) BeginInternalStep() {
	a.mu.Lock()
	a.internalStep = true
	a.mu.Unlock()
}

// EndInternalStep resumes normal event forwarding.
func (a *LLDB) EndInternalStep() {
	a.mu.Lock()
	a.internalStep = false
	a.mu.Unlock()
}

func (a *LLDB) duringInternalStep() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.internalStep
}

// Feed processes one line of lldb output (§4.4, §4.3's line-oriented read
// loop contract).
func (a *LLDB) Feed(line string) {
	if a.inVar {
		if lldbPrompt.MatchString(line) {
			a.finishVariable()
			a.completeAndPrompt()
			return
		}
		a.varBuf.WriteByte('\n')
		a.varBuf.WriteString(line)
		return
	}

	switch {
	case lldbProcessStarted.MatchString(line):
		m := lldbProcessStarted.FindStringSubmatch(line)
		pid, _ := strconv.Atoi(m[1])
		a.PID = pid
		a.events.ProcessStarted(pid)
		a.completeAndPrompt()

	case lldbProcessExited.MatchString(line):
		m := lldbProcessExited.FindStringSubmatch(line)
		pid := a.PID
		code, _ := strconv.Atoi(m[2])
		a.PID = 0
		a.events.ProcessExited(pid, code)

	case lldbBreakpointSet.MatchString(line):
		m := lldbBreakpointSet.FindStringSubmatch(line)
		ln, _ := strconv.ParseInt(m[2], 10, 64)
		if !a.duringInternalStep() {
			a.events.BreakpointSet(m[1], ln)
		}
		a.completeAndPrompt()

	case lldbBreakpointMult.MatchString(line), lldbBreakpointPend.MatchString(line):
		a.completeAndPrompt()

	case lldbJumpToPosition.MatchString(line):
		m := lldbJumpToPosition.FindStringSubmatch(line)
		ln, _ := strconv.ParseInt(m[2], 10, 64)
		a.events.JumpToPosition(m[1], ln)
		a.completeAndPrompt()

	case lldbVarNotFound.MatchString(line):
		m := lldbVarNotFound.FindStringSubmatch(line)
		a.events.VariableNotFound(m[1])
		a.completeAndPrompt()

	case lldbPrintedVar.MatchString(line):
		m := lldbPrintedVar.FindStringSubmatch(line)
		a.varType = m[1]
		a.varName = m[2]
		a.varBuf.Reset()
		a.varBuf.WriteString(m[3])
		a.inVar = true

	case lldbProcessNotRun.MatchString(line):
		a.events.Warn("process not running")
		a.completeAndPrompt()

	case lldbStarted.MatchString(line):
		// acknowledged, no event of its own

	case lldbPrompt.MatchString(line):
		a.completeAndPrompt()

	default:
		a.events.PassThrough(line)
	}
}

func (a *LLDB) finishVariable() {
	a.inVar = false
	a.events.PrintedVariable(a.varName, a.varType, a.varBuf.String())
}

func (a *LLDB) completeAndPrompt() {
	a.Status = Status{Kind: Listening}
	a.Awake.Fire()
	if !a.duringInternalStep() {
		a.events.Complete()
	}
}
