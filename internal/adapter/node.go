package adapter

import (
	"context"
	"fmt"
	"regexp"

	"github.com/coder/websocket"

	"github.com/strottos/padre/internal/analyzer"
	"github.com/strottos/padre/internal/proto"
	"github.com/strottos/padre/internal/supervisor"
)

var nodeListening = regexp.MustCompile(`Debugger listening on (ws://\S+)`)

// NodeBackend drives Node's Inspector protocol over a WebSocket (§4.4,
// §4.5). Unlike the PTY backends its command translation is CDP method
// calls rather than typed REPL lines.
type NodeBackend struct {
	child    *supervisor.Child
	analyzer *analyzer.Node
	wsURL    chan string
	events   analyzer.Events
}

// NewNodeBackend returns a backend whose analyzer feeds events into events.
func NewNodeBackend(events analyzer.Events) *NodeBackend {
	return &NodeBackend{
		events: events,
		wsURL:  make(chan string, 1),
	}
}

// Name implements Backend.
func (b *NodeBackend) Name() string { return "node" }

// Launch spawns `node --inspect-brk=0 <argv...>`, waits for the inspector's
// "Debugger listening on ws://…" line on stderr, dials the WebSocket, and
// sends the Runtime/Debugger enable handshake (§4.5).
func (b *NodeBackend) Launch(ctx context.Context, debuggerPath string, argv []string) error {
	if debuggerPath == "" {
		debuggerPath = "node"
	}
	args := append([]string{"--inspect-brk=0"}, argv...)
	child, err := supervisor.Start(ctx, debuggerPath, args, b.onLine)
	if err != nil {
		return err
	}
	b.child = child

	var url string
	select {
	case url = <-b.wsURL:
	case <-ctx.Done():
		return ctx.Err()
	}

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return &proto.ProcessSpawnError{Backend: "node", Err: err}
	}

	b.analyzer = analyzer.NewNode(ctx, b.events, conn)
	go b.analyzer.Run()

	for _, method := range []string{"Runtime.enable", "Debugger.enable", "Runtime.runIfWaitingForDebugger"} {
		if _, err := b.analyzer.Call(ctx, method, struct{}{}); err != nil {
			return fmt.Errorf("node handshake %s: %w", method, err)
		}
	}
	return nil
}

func (b *NodeBackend) onLine(line string) {
	if m := nodeListening.FindStringSubmatch(line); m != nil {
		select {
		case b.wsURL <- m[1]:
		default:
		}
		return
	}
	b.events.PassThrough(line)
}

type setBreakpointParams struct {
	URL        string `json:"url"`
	LineNumber int64  `json:"lineNumber"`
}

// SendBreakpoint implements Backend. It always issues a URL-keyed
// Debugger.setBreakpointByUrl for "file://" + path; the analyzer's script
// table is not consulted, so the breakpoint is not resolved to a scriptId.
func (b *NodeBackend) SendBreakpoint(loc proto.FileLocation) error {
	ctx := context.Background()
	url := "file://" + loc.Path
	_, err := b.analyzer.Call(ctx, "Debugger.setBreakpointByUrl", setBreakpointParams{
		URL:        url,
		LineNumber: loc.Line - 1, // CDP lines are 0-based (§4.4)
	})
	return err
}

// SendUnbreakpoint implements Backend.
func (b *NodeBackend) SendUnbreakpoint(loc proto.FileLocation) error {
	// Node's removal path is script-table based: CDP identifies
	// breakpoints by the id returned from setBreakpointByUrl, which PADRE
	// would need to have retained per (file,line). Scoped out per the
	// resolved Open Question on Unbreakpoint (see design notes) — Node
	// unbreakpoint is accepted and acknowledged but not yet wired to a
	// remove call.
	return nil
}

// SendStepIn implements Backend.
func (b *NodeBackend) SendStepIn(count int64) error {
	_, err := b.analyzer.Call(context.Background(), "Debugger.stepInto", struct{}{})
	return err
}

// SendStepOver implements Backend.
func (b *NodeBackend) SendStepOver(count int64) error {
	_, err := b.analyzer.Call(context.Background(), "Debugger.stepOver", struct{}{})
	return err
}

// SendContinue implements Backend.
func (b *NodeBackend) SendContinue() error {
	_, err := b.analyzer.Call(context.Background(), "Debugger.resume", struct{}{})
	return err
}

// SendPrint implements Backend.
func (b *NodeBackend) SendPrint(variable string) error {
	_, err := b.analyzer.Call(context.Background(), "Runtime.evaluate", map[string]any{
		"expression": variable,
	})
	return err
}

// Kill implements Backend.
func (b *NodeBackend) Kill() error {
	if b.child == nil {
		return nil
	}
	return b.child.Kill()
}
