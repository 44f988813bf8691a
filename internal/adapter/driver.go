package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/strottos/padre/internal/analyzer"
	"github.com/strottos/padre/internal/config"
	"github.com/strottos/padre/internal/logger"
	"github.com/strottos/padre/internal/notifier"
	"github.com/strottos/padre/internal/proto"
)

// work is one queued (request, reply) pair (§4.6); the command's deadline is
// computed when the driver handles it, not stored here.
type work struct {
	req   proto.Request
	reply chan proto.Response
}

// Driver is the single per-adapter-instance work loop (§4.5, §4.6). One
// Driver owns exactly one Backend for the process's lifetime.
type Driver struct {
	backend  Backend
	notifier *notifier.Notifier
	cfg      *config.Store

	debuggerPath string
	argv         []string

	queue chan work

	awake analyzer.Awakener

	mu           sync.Mutex
	status       analyzer.Status
	everListened bool
	pending      []proto.FileLocation

	// scratch fields set by the Events callbacks while a command is
	// Processing and read back once the awakener fires; safe without a
	// separate lock because the driver never has two commands in flight
	// at once (§4.5 "Serialization").
	lastPID      int
	lastVariable struct {
		name, typ, value string
	}
	lastBreakpointOK bool
	lastErr          error
}

// NewDriver returns a Driver in the Unlaunched state bound to backend.
// debuggerPath/argv are the backend command and debuggee argv Run (§4.5)
// will launch.
func NewDriver(backend Backend, n *notifier.Notifier, cfg *config.Store, debuggerPath string, argv []string) *Driver {
	return &Driver{
		backend:      backend,
		notifier:     n,
		cfg:          cfg,
		debuggerPath: debuggerPath,
		argv:         argv,
		queue:        make(chan work, 64),
		status:       analyzer.Status{Kind: analyzer.Unlaunched},
	}
}

// Submit enqueues req and returns a channel that receives exactly one
// Response (§8: "exactly one response with R.id is emitted"). Submit never
// blocks the caller beyond the queue's buffer filling.
func (d *Driver) Submit(req proto.Request) <-chan proto.Response {
	reply := make(chan proto.Response, 1)
	d.queue <- work{req: req, reply: reply}
	return reply
}

// Run drains the work queue until ctx is cancelled (§4.6). Grounded on the
// teacher's timeline.Engine.Run poll loop, generalized from ticker-driven
// polling to blocking channel receive since PADRE's queue is push- not
// poll-based.
func (d *Driver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case w := <-d.queue:
			w.reply <- d.handle(ctx, w.req)
		}
	}
}

func (d *Driver) handle(ctx context.Context, req proto.Request) proto.Response {
	cmd := req.Command
	switch cmd.Kind {
	case proto.KindPing:
		return proto.Response{ID: req.ID, Payload: map[string]any{"ping": "pong"}}
	case proto.KindPings:
		return proto.Response{ID: req.ID, Payload: map[string]any{"pong": "pongs"}}
	case proto.KindGetConfig:
		v, ok := d.cfg.Get(cmd.ConfigKey)
		if !ok {
			return errorResponse(req.ID, (&config.ErrUnknownKey{Key: cmd.ConfigKey}).Error())
		}
		return proto.Response{ID: req.ID, Payload: map[string]any{"status": "OK", "value": v}}
	case proto.KindSetConfig:
		d.cfg.Set(cmd.ConfigKey, cmd.ConfigValue)
		return proto.Response{ID: req.ID, Payload: map[string]any{"status": "OK"}}
	case proto.KindInterrupt:
		return proto.Response{ID: req.ID, Payload: map[string]any{"status": "OK"}}
	case proto.KindExit:
		d.backend.Kill()
		return proto.Response{ID: req.ID, Payload: map[string]any{"status": "OK"}}
	}

	return d.handleDebuggerCommand(ctx, req)
}

func (d *Driver) handleDebuggerCommand(ctx context.Context, req proto.Request) proto.Response {
	cmd := req.Command

	if cmd.Kind == proto.KindBreakpoint || cmd.Kind == proto.KindUnbreakpoint {
		if resp, handled := d.handlePendingBreakpoint(req); handled {
			return resp
		}
	}

	deadline := d.deadlineFor(cmd.Kind)
	awake := d.awake.Register()
	d.setProcessing(cmd.Kind.String())

	if err := d.send(ctx, cmd); err != nil {
		d.setListening()
		logger.Error("adapter: send failed", "cmd", cmd.Kind.String(), "err", err)
		return errorResponse(req.ID, err.Error())
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case <-awake:
		return d.buildResponse(req.ID, cmd)
	case <-timer.C:
		logger.Error("adapter: command timed out", "cmd", cmd.Kind.String())
		return errorResponse(req.ID, fmt.Sprintf("command timed out: %s", cmd.Kind.String()))
	case <-ctx.Done():
		return errorResponse(req.ID, "adapter shutting down")
	}
}

// handlePendingBreakpoint implements §4.5's "while Unlaunched, Breakpoint
// appends to the pending set without blocking" rule. Returns handled=true
// when the command was fully resolved here (Unlaunched case).
func (d *Driver) handlePendingBreakpoint(req proto.Request) (proto.Response, bool) {
	d.mu.Lock()
	unlaunched := d.status.Kind == analyzer.Unlaunched
	if !unlaunched {
		d.mu.Unlock()
		return proto.Response{}, false
	}
	loc := req.Command.Location
	canon, err := proto.Canonicalize(loc.Path)
	if err != nil {
		d.mu.Unlock()
		d.notifyCanonicalizeFailure(loc.Path, err)
		return errorResponse(req.ID, err.Error()), true
	}
	loc.Path = canon

	if req.Command.Kind == proto.KindBreakpoint {
		d.pending = append(d.pending, loc)
	} else {
		d.removePending(loc)
	}
	d.mu.Unlock()

	if req.Command.Kind == proto.KindBreakpoint {
		d.notifier.Log(logger.LevelInfo, fmt.Sprintf("Breakpoint pending in file %s at line number %d", loc.Path, loc.Line))
		return proto.Response{ID: req.ID, Payload: map[string]any{"status": "PENDING"}}, true
	}
	return proto.Response{ID: req.ID, Payload: map[string]any{"status": "OK"}}, true
}

func (d *Driver) removePending(loc proto.FileLocation) {
	out := d.pending[:0]
	for _, p := range d.pending {
		if p != loc {
			out = append(out, p)
		}
	}
	d.pending = out
}

// notifyCanonicalizeFailure pushes the error notification §4.5's path
// canonicalization rule requires before the command carrying the
// unresolvable path is dropped.
func (d *Driver) notifyCanonicalizeFailure(path string, err error) {
	d.notifier.Log(logger.LevelError, fmt.Sprintf("could not canonicalize path %s: %v", path, err))
}

func (d *Driver) send(ctx context.Context, cmd proto.Command) error {
	switch cmd.Kind {
	case proto.KindRun:
		return d.backend.Launch(ctx, d.debuggerPath, d.argv)
	case proto.KindBreakpoint:
		loc := cmd.Location
		canon, err := proto.Canonicalize(loc.Path)
		if err != nil {
			d.notifyCanonicalizeFailure(loc.Path, err)
			return err
		}
		loc.Path = canon
		return d.backend.SendBreakpoint(loc)
	case proto.KindUnbreakpoint:
		loc := cmd.Location
		canon, err := proto.Canonicalize(loc.Path)
		if err != nil {
			d.notifyCanonicalizeFailure(loc.Path, err)
			return err
		}
		loc.Path = canon
		return d.backend.SendUnbreakpoint(loc)
	case proto.KindStepIn:
		return d.backend.SendStepIn(cmd.Count)
	case proto.KindStepOver:
		return d.backend.SendStepOver(cmd.Count)
	case proto.KindContinue:
		return d.backend.SendContinue()
	case proto.KindPrint:
		return d.backend.SendPrint(cmd.Variable.Name)
	default:
		return fmt.Errorf("unsupported command: %s", cmd.Kind.String())
	}
}

func (d *Driver) buildResponse(id uint64, cmd proto.Command) proto.Response {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch cmd.Kind {
	case proto.KindRun:
		return proto.Response{ID: id, Payload: map[string]any{"status": "OK", "pid": d.lastPID}}
	case proto.KindPrint:
		if d.lastErr != nil {
			err := d.lastErr
			d.lastErr = nil
			return errorResponse(id, err.Error())
		}
		return proto.Response{ID: id, Payload: map[string]any{
			"status": "OK", "variable": d.lastVariable.name, "type": d.lastVariable.typ, "value": d.lastVariable.value,
		}}
	default:
		return proto.Response{ID: id, Payload: map[string]any{"status": "OK"}}
	}
}

func (d *Driver) deadlineFor(kind proto.Kind) time.Duration {
	var key string
	switch kind {
	case proto.KindRun:
		key = config.KeyProcessSpawnTimeout
	case proto.KindBreakpoint, proto.KindUnbreakpoint:
		key = config.KeyBreakpointTimeout
	case proto.KindStepIn, proto.KindStepOver, proto.KindContinue:
		key = config.KeyStepTimeout
	case proto.KindPrint:
		key = config.KeyPrintVariableTimeout
	default:
		return 5 * time.Second
	}
	secs, _ := d.cfg.Get(key)
	if secs <= 0 {
		secs = 5
	}
	return time.Duration(secs) * time.Second
}

func (d *Driver) setProcessing(name string) {
	d.mu.Lock()
	d.status = analyzer.Status{Kind: analyzer.Processing, Command: name}
	d.mu.Unlock()
}

func (d *Driver) setListening() {
	d.mu.Lock()
	d.status = analyzer.Status{Kind: analyzer.Listening}
	d.mu.Unlock()
}

// Status returns the current adapter status.
func (d *Driver) Status() analyzer.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

func errorResponse(id uint64, msg string) proto.Response {
	return proto.Response{ID: id, Payload: map[string]any{"status": "ERROR", "error": msg}}
}

// --- analyzer.Events implementation -------------------------------------

// ProcessStarted implements analyzer.Events (§4.4).
func (d *Driver) ProcessStarted(pid int) {
	d.mu.Lock()
	d.lastPID = pid
	d.mu.Unlock()
}

// ProcessExited implements analyzer.Events (§4.4, §6).
func (d *Driver) ProcessExited(pid, code int) {
	d.notifier.ProcessExited(code, pid)
}

// BreakpointSet implements analyzer.Events (§4.4, §6).
func (d *Driver) BreakpointSet(file string, line int64) {
	d.mu.Lock()
	d.lastBreakpointOK = true
	d.mu.Unlock()
	d.notifier.BreakpointSet(file, line)
}

// BreakpointUnset implements analyzer.Events.
func (d *Driver) BreakpointUnset(file string, line int64) {
	d.notifier.BreakpointUnset(file, line)
}

// JumpToPosition implements analyzer.Events (§4.4, §6).
func (d *Driver) JumpToPosition(file string, line int64) {
	d.notifier.JumpToPosition(file, line)
}

// ReturnValue implements analyzer.Events (§4.4, pdb's ReturnValue event).
func (d *Driver) ReturnValue(value string) {
	d.notifier.Log(logger.LevelInfo, "return value: "+value)
}

// PrintedVariable implements analyzer.Events (§4.4).
func (d *Driver) PrintedVariable(name, typ, value string) {
	d.mu.Lock()
	if name != "" {
		d.lastVariable.name = name
	}
	d.lastVariable.typ = typ
	d.lastVariable.value = value
	d.mu.Unlock()
}

// VariableNotFound implements analyzer.Events (§4.4, §7 DebuggerError).
func (d *Driver) VariableNotFound(name string) {
	d.mu.Lock()
	d.lastErr = &proto.DebuggerError{Message: fmt.Sprintf("variable not found: %s", name)}
	d.mu.Unlock()
	logger.Warn("adapter: variable not found", "name", name)
}

// Warn implements analyzer.Events.
func (d *Driver) Warn(msg string) {
	logger.Warn("adapter: " + msg)
	d.notifier.Log(logger.LevelWarn, msg)
}

// PassThrough implements analyzer.Events (§4.4: "unknown lines are passed
// through to the editor's console verbatim").
func (d *Driver) PassThrough(line string) {
	d.notifier.Log(logger.LevelInfo, line)
}

// Complete implements analyzer.Events. It transitions Unlaunched/Processing
// to Listening, draining any pending breakpoints on the first such
// transition (§4.5, §8).
func (d *Driver) Complete() {
	d.mu.Lock()
	firstListen := !d.everListened
	d.everListened = true
	d.status = analyzer.Status{Kind: analyzer.Listening}
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	d.awake.Fire()

	if firstListen {
		d.drainPending(pending)
	}
}

func (d *Driver) drainPending(pending []proto.FileLocation) {
	for _, loc := range pending {
		if err := d.backend.SendBreakpoint(loc); err != nil {
			logger.Error("adapter: failed to drain pending breakpoint", "file", loc.Path, "line", loc.Line, "err", err)
			continue
		}
	}
}
