package analyzer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/coder/websocket"
)

// CDPEnvelope is the Chrome DevTools Protocol message shape Node Inspector
// speaks over its WebSocket: either an outgoing request (Id+Method+Params)
// or an incoming response/event (Id or Method, with Result or Params) —
// mirroring the teacher's ws.Envelope{Type} discriminator pattern, keyed on
// "id"/"method" the way CDP actually discriminates instead of a type tag.
type CDPEnvelope struct {
	ID     int             `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type scriptInfo struct {
	ScriptID string
	URL      string
}

// Node drives the Node.js Inspector protocol over a WebSocket (§4.4). Unlike
// the PTY-line backends it is message- rather than line-oriented: per-
// request responses are matched by integer id against a one-shot channel
// table, and domain events arrive as unsolicited CDP methods.
type Node struct {
	events Events
	Status Status
	Awake  Awakener

	conn *websocket.Conn
	ctx  context.Context

	mu      sync.Mutex
	nextID  int
	pending map[int]chan json.RawMessage
	scripts map[string]scriptInfo // scriptId -> info
	byURL   map[string]string     // url -> scriptId
	PID     int
}

// NewNode returns an analyzer bound to an already-connected Inspector
// WebSocket. Dial + the Runtime.enable/Debugger.enable handshake (§4.5's Run
// semantics for Node) happens in the adapter driver; Node only owns message
// pump and event translation.
func NewNode(ctx context.Context, events Events, conn *websocket.Conn) *Node {
	return &Node{
		events:  events,
		Status:  Status{Kind: Unlaunched},
		conn:    conn,
		ctx:     ctx,
		pending: make(map[int]chan json.RawMessage),
		scripts: make(map[string]scriptInfo),
		byURL:   make(map[string]string),
	}
}

// Run reads CDP frames until the connection closes or ctx is cancelled.
// Intended to run on its own goroutine, mirroring the PTY backends'
// dedicated read loop (§4.3).
func (n *Node) Run() {
	for {
		_, data, err := n.conn.Read(n.ctx)
		if err != nil {
			return
		}
		n.handle(data)
	}
}

func (n *Node) handle(data []byte) {
	var env CDPEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		n.events.Warn("malformed CDP message: " + err.Error())
		return
	}

	if env.Method == "" {
		n.deliverResponse(env)
		return
	}

	switch env.Method {
	case "Debugger.scriptParsed":
		n.handleScriptParsed(env.Params)
	case "Debugger.paused":
		n.handlePaused(env.Params)
	case "Debugger.resumed":
		// no-op (§4.4)
	case "Runtime.executionContextDestroyed":
		n.events.ProcessExited(n.PID, 0)
		n.conn.Close(websocket.StatusNormalClosure, "execution context destroyed")
	case "Debugger.scriptFailedToParse":
		n.events.Warn("script failed to parse")
	default:
		// Other CDP events (Runtime.consoleAPICalled, etc.) are outside
		// PADRE's event surface; ignored rather than surfaced as unknown
		// lines since there is no "console" for a WebSocket backend.
	}
}

func (n *Node) deliverResponse(env CDPEnvelope) {
	n.mu.Lock()
	ch, ok := n.pending[env.ID]
	if ok {
		delete(n.pending, env.ID)
	}
	n.mu.Unlock()
	if !ok {
		return
	}
	if env.Result != nil {
		ch <- env.Result
	} else {
		ch <- json.RawMessage("null")
	}
}

type scriptParsedParams struct {
	ScriptID string `json:"scriptId"`
	URL      string `json:"url"`
}

func (n *Node) handleScriptParsed(raw json.RawMessage) {
	var p scriptParsedParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	n.mu.Lock()
	n.scripts[p.ScriptID] = scriptInfo{ScriptID: p.ScriptID, URL: p.URL}
	n.byURL[p.URL] = p.ScriptID
	n.mu.Unlock()
	// The driver drains its whole pending set on the first Complete; the
	// pending locations are not matched against p.URL.
	n.events.Complete()
}

type pausedParams struct {
	CallFrames []struct {
		Location struct {
			ScriptID   string `json:"scriptId"`
			LineNumber int64  `json:"lineNumber"`
		} `json:"location"`
	} `json:"callFrames"`
}

func (n *Node) handlePaused(raw json.RawMessage) {
	var p pausedParams
	if err := json.Unmarshal(raw, &p); err != nil || len(p.CallFrames) == 0 {
		return
	}
	frame := p.CallFrames[0]
	n.mu.Lock()
	info, ok := n.scripts[frame.Location.ScriptID]
	n.mu.Unlock()
	file := frame.Location.ScriptID
	if ok {
		file = info.URL
	}
	// CDP line numbers are 0-based; PADRE reports 1-based (§4.4).
	n.events.JumpToPosition(file, frame.Location.LineNumber+1)
	n.Status = Status{Kind: Listening}
	n.events.Complete()
}

// ScriptIDForURL returns the scriptId CDP assigned to a parsed source file,
// as recorded from Debugger.scriptParsed. The driver's pending-breakpoint
// drain does not call it.
func (n *Node) ScriptIDForURL(url string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id, ok := n.byURL[url]
	return id, ok
}

// Call sends a CDP request and blocks until its matching response arrives
// or ctx is cancelled.
func (n *Node) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	ch := make(chan json.RawMessage, 1)
	n.pending[id] = ch
	n.mu.Unlock()

	paramsRaw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	req := struct {
		ID     int             `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params,omitempty"`
	}{ID: id, Method: method, Params: paramsRaw}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := n.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return nil, err
	}

	select {
	case result := <-ch:
		return result, nil
	case <-ctx.Done():
		n.mu.Lock()
		delete(n.pending, id)
		n.mu.Unlock()
		return nil, ctx.Err()
	}
}
