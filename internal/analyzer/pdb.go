package analyzer

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	pdbPrompt        = regexp.MustCompile(`^\(Pdb\) `)
	pdbBreakpointSet = regexp.MustCompile(`^Breakpoint \d+ at ([^:]+):(\d+)`)
	pdbJumpReturn    = regexp.MustCompile(`^> (.+)\((\d+)\)\S+\(\)->(.*)$`)
	pdbJump          = regexp.MustCompile(`^> (.+)\((\d+)\)\S+\(\)$`)
	pdbFinished      = regexp.MustCompile(`^The program finished and will be restarted`)
	pdbExited        = regexp.MustCompile(`^The program exited via sys\.exit\(\)\. Exit status: (\d+)`)
)

// PDB parses Python's pdb REPL output (§4.4).
type PDB struct {
	events     Events
	Status     Status
	Awake      Awakener
	PID        int
	printing   bool
	printBuf   strings.Builder
	printFirst bool
}

// NewPDB returns an analyzer in the Unlaunched state.
func NewPDB(events Events) *PDB {
	return &PDB{events: events, Status: Status{Kind: Unlaunched}}
}

// Feed processes one line of pdb output.
func (a *PDB) Feed(line string) {
	if a.printing {
		if pdbPrompt.MatchString(line) {
			a.printing = false
			a.events.PrintedVariable("", "", strings.TrimSuffix(a.printBuf.String(), "\n"))
			a.complete()
			return
		}
		if !a.printFirst {
			a.printBuf.WriteByte('\n')
		}
		a.printFirst = false
		a.printBuf.WriteString(line)
		return
	}

	switch {
	case pdbBreakpointSet.MatchString(line):
		m := pdbBreakpointSet.FindStringSubmatch(line)
		ln, _ := strconv.ParseInt(m[2], 10, 64)
		a.events.BreakpointSet(m[1], ln)

	case pdbJumpReturn.MatchString(line):
		m := pdbJumpReturn.FindStringSubmatch(line)
		ln, _ := strconv.ParseInt(m[2], 10, 64)
		a.events.JumpToPosition(m[1], ln)
		a.events.ReturnValue(m[3])

	case pdbJump.MatchString(line):
		m := pdbJump.FindStringSubmatch(line)
		ln, _ := strconv.ParseInt(m[2], 10, 64)
		a.events.JumpToPosition(m[1], ln)

	case pdbFinished.MatchString(line):
		a.events.ProcessExited(a.PID, 0)
		a.PID = 0

	case pdbExited.MatchString(line):
		m := pdbExited.FindStringSubmatch(line)
		code, _ := strconv.Atoi(m[1])
		a.events.ProcessExited(a.PID, code)
		a.PID = 0

	case pdbPrompt.MatchString(line):
		a.complete()

	default:
		a.events.PassThrough(line)
	}
}

// StartPrint switches the analyzer into variable-accumulation mode;
// PDBBackend.SendPrint calls this right before writing a "p <variable>"
// command, since
// pdb's print output has no distinguishing prefix of its own (§4.4:
// "accumulate all output between command echo and next prompt").
func (a *PDB) StartPrint() {
	a.printing = true
	a.printFirst = true
	a.printBuf.Reset()
}

func (a *PDB) complete() {
	a.Status = Status{Kind: Listening}
	a.Awake.Fire()
	a.events.Complete()
}
