package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Decode consumes at most one JSON-array request from the front of buf and
// advances buf past exactly the bytes consumed (§4.1, §8's "resumable
// decode" invariant). It returns (nil, nil) when buf holds only a partial
// value — the caller should wait for more bytes and call Decode again.
//
// A syntactically invalid value at the start of buf is unrecoverable: the
// entire buffer is dropped and a RequestSyntaxError bound to id 0 is
// returned, carrying the original bytes for debugging.
func Decode(buf *bytes.Buffer) (*Request, error) {
	if buf.Len() == 0 {
		return nil, nil
	}

	raw, consumed, partial, err := decodeOneValue(buf.Bytes())
	if partial {
		return nil, nil
	}
	if err != nil {
		orig := buf.String()
		buf.Reset()
		return nil, &RequestSyntaxError{
			ID:      0,
			Message: "invalid JSON",
			Debug:   fmt.Sprintf("invalid JSON: %v (input: %q)", err, orig),
		}
	}
	buf.Next(consumed)

	return parseRequest(raw)
}

// decodeOneValue decodes exactly one JSON value from the front of data
// using the streaming decoder so the exact byte offset consumed is known
// even when more bytes follow in data (split TCP segments land here too).
func decodeOneValue(data []byte) (raw json.RawMessage, consumed int, partial bool, err error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if decErr := dec.Decode(&raw); decErr != nil {
		if decErr == io.EOF || decErr == io.ErrUnexpectedEOF {
			return nil, 0, true, nil
		}
		// A syntax error within the bounds of a larger still-arriving
		// buffer is indistinguishable from a genuine malformed value using
		// the stdlib decoder alone; we treat any decode failure other than
		// EOF/UnexpectedEOF as a real syntax error per §4.1 — matching the
		// source's "no recovery" rule for bad JSON at the start.
		return nil, 0, false, decErr
	}
	return raw, int(dec.InputOffset()), false, nil
}

// parseRequest validates the two-element array shape and extracts the
// command-specific fields (§4.1).
func parseRequest(raw json.RawMessage) (*Request, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil {
		return nil, &RequestSyntaxError{ID: 0, Message: "expected a JSON array", Debug: "expected a JSON array: " + err.Error()}
	}
	if len(arr) != 2 {
		id := recoverID(arr)
		return nil, &RequestSyntaxError{
			ID:      id,
			Message: "expected a 2-element array",
			Debug:   fmt.Sprintf("expected a 2-element array, got %d elements", len(arr)),
		}
	}

	var id uint64
	if err := json.Unmarshal(arr[0], &id); err != nil {
		return nil, &RequestSyntaxError{ID: 0, Message: "element 0 must be a u64", Debug: "element 0 must be a u64: " + err.Error()}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(arr[1], &obj); err != nil {
		return nil, &RequestSyntaxError{ID: id, Message: "element 1 must be an object", Debug: "element 1 must be an object: " + err.Error()}
	}

	var cmdName string
	cmdRaw, ok := obj["cmd"]
	if !ok {
		return nil, &RequestSyntaxError{ID: id, Message: "missing cmd", Debug: "missing cmd"}
	}
	if err := json.Unmarshal(cmdRaw, &cmdName); err != nil {
		return nil, &RequestSyntaxError{ID: id, Message: "cmd must be a string", Debug: "cmd must be a string: " + err.Error()}
	}
	delete(obj, "cmd")

	cmd, err := extractCommand(id, cmdName, obj)
	if err != nil {
		return nil, err
	}
	return &Request{ID: id, Command: cmd}, nil
}

// extractCommand pulls the command-specific fields out of obj, which has
// already had "cmd" removed. Any key left in obj after extraction is a
// RequestSyntaxError (§4.1: "prevents silent typos in editor plugins").
func extractCommand(id uint64, name string, obj map[string]json.RawMessage) (Command, error) {
	var cmd Command

	switch name {
	case "run":
		cmd.Kind = KindRun
	case "interrupt":
		cmd.Kind = KindInterrupt
	case "exit":
		cmd.Kind = KindExit
	case "continue":
		cmd.Kind = KindContinue
	case "ping":
		cmd.Kind = KindPing
	case "pings":
		cmd.Kind = KindPings

	case "breakpoint", "unbreakpoint":
		file, line, err := takeFileLine(id, obj)
		if err != nil {
			return cmd, err
		}
		if name == "breakpoint" {
			cmd.Kind = KindBreakpoint
		} else {
			cmd.Kind = KindUnbreakpoint
		}
		cmd.Location = FileLocation{Path: file, Line: line}

	case "stepIn", "stepOver":
		count, err := takeOptionalCount(id, obj)
		if err != nil {
			return cmd, err
		}
		if name == "stepIn" {
			cmd.Kind = KindStepIn
		} else {
			cmd.Kind = KindStepOver
		}
		cmd.Count = count

	case "print":
		v, err := takeString(id, obj, "variable")
		if err != nil {
			return cmd, err
		}
		cmd.Kind = KindPrint
		cmd.Variable = Variable{Name: v}

	case "getConfig":
		k, err := takeString(id, obj, "key")
		if err != nil {
			return cmd, err
		}
		cmd.Kind = KindGetConfig
		cmd.ConfigKey = k

	case "setConfig":
		k, err := takeString(id, obj, "key")
		if err != nil {
			return cmd, err
		}
		v, err := takeInt64(id, obj, "value")
		if err != nil {
			return cmd, err
		}
		cmd.Kind = KindSetConfig
		cmd.ConfigKey = k
		cmd.ConfigValue = v

	default:
		return cmd, &RequestSyntaxError{ID: id, Message: "Command unknown", Debug: fmt.Sprintf("Command unknown: '%s'", name)}
	}

	if len(obj) > 0 {
		return cmd, badArguments(id, obj)
	}
	return cmd, nil
}

func takeFileLine(id uint64, obj map[string]json.RawMessage) (string, int64, error) {
	file, err := takeString(id, obj, "file")
	if err != nil {
		return "", 0, err
	}
	line, err := takeU64(id, obj, "line")
	if err != nil {
		return "", 0, err
	}
	return file, line, nil
}

func takeOptionalCount(id uint64, obj map[string]json.RawMessage) (int64, error) {
	raw, ok := obj["count"]
	if !ok {
		return 1, nil
	}
	delete(obj, "count")
	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, &RequestSyntaxError{ID: id, Message: "count must be a u64", Debug: "count must be a u64: " + err.Error()}
	}
	return int64(n), nil
}

func takeString(id uint64, obj map[string]json.RawMessage, key string) (string, error) {
	raw, ok := obj[key]
	if !ok {
		return "", &RequestSyntaxError{ID: id, Message: "missing " + key, Debug: "missing " + key}
	}
	delete(obj, key)
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &RequestSyntaxError{ID: id, Message: key + " must be a string", Debug: key + " must be a string: " + err.Error()}
	}
	return s, nil
}

func takeU64(id uint64, obj map[string]json.RawMessage, key string) (int64, error) {
	raw, ok := obj[key]
	if !ok {
		return 0, &RequestSyntaxError{ID: id, Message: "missing " + key, Debug: "missing " + key}
	}
	delete(obj, key)
	var n uint64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, &RequestSyntaxError{ID: id, Message: key + " must be a u64", Debug: key + " must be a u64: " + err.Error()}
	}
	return int64(n), nil
}

func takeInt64(id uint64, obj map[string]json.RawMessage, key string) (int64, error) {
	raw, ok := obj[key]
	if !ok {
		return 0, &RequestSyntaxError{ID: id, Message: "missing " + key, Debug: "missing " + key}
	}
	delete(obj, key)
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, &RequestSyntaxError{ID: id, Message: key + " must be an i64", Debug: key + " must be an i64: " + err.Error()}
	}
	return n, nil
}

func badArguments(id uint64, obj map[string]json.RawMessage) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = fmt.Sprintf("%q", k)
	}
	return &RequestSyntaxError{
		ID:      id,
		Message: "Bad arguments",
		Debug:   fmt.Sprintf("Bad arguments: [%s]", joinComma(quoted)),
	}
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

// recoverID tries to read element 0 as a u64 when the array didn't have
// exactly two elements, so a malformed-shape error can still be bound to
// the right id when possible (§4.1).
func recoverID(arr []json.RawMessage) uint64 {
	if len(arr) == 0 {
		return 0
	}
	var id uint64
	if err := json.Unmarshal(arr[0], &id); err != nil {
		return 0
	}
	return id
}

// EncodeResponse serializes a Response as "[id, payload]\n" (§4.1).
func EncodeResponse(r Response) ([]byte, error) {
	data, err := json.Marshal([]any{r.ID, r.Payload})
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// EncodeNotification serializes a Notification as
// `["call", name, [args...]]\n` (§4.1).
func EncodeNotification(n Notification) ([]byte, error) {
	args := n.Args
	if args == nil {
		args = []any{}
	}
	data, err := json.Marshal([]any{"call", n.Name, args})
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
