package proto

import (
	"bytes"
	"testing"
)

func TestDecodeWaitsOnPartialBuffer(t *testing.T) {
	buf := bytes.NewBufferString(`[1, {"cmd": "pi`)
	req, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode returned error on partial buffer: %v", err)
	}
	if req != nil {
		t.Fatalf("expected nil request on partial buffer, got %+v", req)
	}
	if buf.Len() == 0 {
		t.Fatalf("Decode must not consume bytes from a partial buffer")
	}
}

func TestDecodeAcrossTwoWrites(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteString(`[7, {"cmd": "pi`)
	if req, err := Decode(buf); err != nil || req != nil {
		t.Fatalf("expected (nil, nil) on partial input, got (%+v, %v)", req, err)
	}
	buf.WriteString(`ng"}]`)

	req, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if req == nil {
		t.Fatalf("expected a decoded request once the buffer completed")
	}
	if req.ID != 7 || req.Command.Kind != KindPing {
		t.Fatalf("got %+v", req)
	}
}

func TestDecodeTwoRequestsBackToBack(t *testing.T) {
	buf := bytes.NewBufferString(`[1, {"cmd": "ping"}][2, {"cmd": "pings"}]`)

	first, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode first: %v", err)
	}
	if first.ID != 1 || first.Command.Kind != KindPing {
		t.Fatalf("got %+v", first)
	}

	second, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode second: %v", err)
	}
	if second.ID != 2 || second.Command.Kind != KindPings {
		t.Fatalf("got %+v", second)
	}

	if buf.Len() != 0 {
		t.Fatalf("expected buffer fully drained, %d bytes left", buf.Len())
	}
}

func TestDecodeBreakpoint(t *testing.T) {
	buf := bytes.NewBufferString(`[3, {"cmd": "breakpoint", "file": "/tmp/main.go", "line": 12}]`)
	req, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if req.Command.Kind != KindBreakpoint {
		t.Fatalf("got kind %v", req.Command.Kind)
	}
	if req.Command.Location.Line != 12 {
		t.Fatalf("got line %d", req.Command.Location.Line)
	}
}

func TestDecodeStepInDefaultsCountToOne(t *testing.T) {
	buf := bytes.NewBufferString(`[4, {"cmd": "stepIn"}]`)
	req, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if req.Command.Count != 1 {
		t.Fatalf("expected default count 1, got %d", req.Command.Count)
	}
}

func TestDecodeUnknownCommand(t *testing.T) {
	buf := bytes.NewBufferString(`[5, {"cmd": "doTheThing"}]`)
	_, err := Decode(buf)
	if err == nil {
		t.Fatalf("expected an error for an unknown command")
	}
	se, ok := err.(*RequestSyntaxError)
	if !ok {
		t.Fatalf("expected *RequestSyntaxError, got %T", err)
	}
	if se.ID != 5 {
		t.Fatalf("expected id to be recovered as 5, got %d", se.ID)
	}
}

func TestDecodeBadArgumentsListsSurplusKeys(t *testing.T) {
	buf := bytes.NewBufferString(`[6, {"cmd": "ping", "extra": 1, "another": 2}]`)
	_, err := Decode(buf)
	se, ok := err.(*RequestSyntaxError)
	if !ok {
		t.Fatalf("expected *RequestSyntaxError, got %T (%v)", err, err)
	}
	if se.Debug != `Bad arguments: ["another", "extra"]` {
		t.Fatalf("got debug %q", se.Debug)
	}
}

func TestDecodeMalformedArrayDropsWholeBuffer(t *testing.T) {
	buf := bytes.NewBufferString(`not json at all`)
	_, err := Decode(buf)
	if err == nil {
		t.Fatalf("expected an error")
	}
	if buf.Len() != 0 {
		t.Fatalf("expected the unrecoverable buffer to be dropped entirely")
	}
}

func TestDecodeWrongArrayLength(t *testing.T) {
	buf := bytes.NewBufferString(`[9, {"cmd": "ping"}, "extra"]`)
	_, err := Decode(buf)
	se, ok := err.(*RequestSyntaxError)
	if !ok {
		t.Fatalf("expected *RequestSyntaxError, got %T", err)
	}
	if se.ID != 9 {
		t.Fatalf("expected id recovered from element 0, got %d", se.ID)
	}
}

func TestEncodeResponse(t *testing.T) {
	data, err := EncodeResponse(Response{ID: 42, Payload: map[string]any{"status": "OK"}})
	if err != nil {
		t.Fatalf("EncodeResponse: %v", err)
	}
	want := `[42,{"status":"OK"}]` + "\n"
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}

func TestEncodeNotification(t *testing.T) {
	data, err := EncodeNotification(Notification{Name: "padre#debugger#JumpToPosition", Args: []any{"main.go", 5}})
	if err != nil {
		t.Fatalf("EncodeNotification: %v", err)
	}
	want := `["call","padre#debugger#JumpToPosition",["main.go",5]]` + "\n"
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}

func TestEncodeNotificationNilArgs(t *testing.T) {
	data, err := EncodeNotification(Notification{Name: "padre#debugger#Log"})
	if err != nil {
		t.Fatalf("EncodeNotification: %v", err)
	}
	want := `["call","padre#debugger#Log",[]]` + "\n"
	if string(data) != want {
		t.Fatalf("got %q, want %q", data, want)
	}
}
