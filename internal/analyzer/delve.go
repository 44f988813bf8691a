package analyzer

import (
	"regexp"
	"strconv"
	"sync"
)

var (
	dlvPrompt     = regexp.MustCompile(`^\(dlv\) `)
	dlvBreakpoint = regexp.MustCompile(`^Breakpoint \d+ set at 0x[0-9a-f]+ for .+ ([^:]+):(\d+)`)
	dlvJump       = regexp.MustCompile(`^> .+ ([^:]+):(\d+) \(.*\)`)
	dlvRestarted  = regexp.MustCompile(`^Process restarted with PID (\d+)`)
	dlvExited     = regexp.MustCompile(`^Process (\d+) has exited with status (\d+)`)
)

// Delve parses dlv's REPL output (§4.4).
type Delve struct {
	events Events
	Status Status
	Awake  Awakener
	PID    int

	mu           sync.Mutex
	internalStep bool
}

// NewDelve returns an analyzer in the Unlaunched state.
func NewDelve(events Events) *Delve {
	return &Delve{events: events, Status: Status{Kind: Unlaunched}}
}

// BeginInternalStep marks the analyzer as running a backend-internal launch
// step (§4.5's "set main.main, then continue" sequence): the dlv prompt that
// ends the step still wakes the backend's own Awake registrant, but
// events.Complete() and events.BreakpointSet() are suppressed so the driver
// and the editor never observe the internal main breakpoint.
func (a *Delve) BeginInternalStep() {
	a.mu.Lock()
	a.internalStep = true
	a.mu.Unlock()
}

// EndInternalStep resumes normal event forwarding.
func (a *Delve) EndInternalStep() {
	a.mu.Lock()
	a.internalStep = false
	a.mu.Unlock()
}

func (a *Delve) duringInternalStep() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.internalStep
}

// Feed processes one line of dlv output.
func (a *Delve) Feed(line string) {
	switch {
	case dlvBreakpoint.MatchString(line):
		m := dlvBreakpoint.FindStringSubmatch(line)
		ln, _ := strconv.ParseInt(m[2], 10, 64)
		if !a.duringInternalStep() {
			a.events.BreakpointSet(m[1], ln)
		}

	case dlvJump.MatchString(line):
		m := dlvJump.FindStringSubmatch(line)
		ln, _ := strconv.ParseInt(m[2], 10, 64)
		a.events.JumpToPosition(m[1], ln)

	case dlvRestarted.MatchString(line):
		m := dlvRestarted.FindStringSubmatch(line)
		pid, _ := strconv.Atoi(m[1])
		a.PID = pid
		a.events.ProcessStarted(pid)

	case dlvExited.MatchString(line):
		m := dlvExited.FindStringSubmatch(line)
		pid, _ := strconv.Atoi(m[1])
		code, _ := strconv.Atoi(m[2])
		a.PID = 0
		a.events.ProcessExited(pid, code)

	case dlvPrompt.MatchString(line):
		a.Status = Status{Kind: Listening}
		a.Awake.Fire()
		if !a.duringInternalStep() {
			a.events.Complete()
		}

	default:
		a.events.PassThrough(line)
	}
}
