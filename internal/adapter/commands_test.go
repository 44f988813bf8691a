package adapter

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/strottos/padre/internal/proto"
	"github.com/strottos/padre/internal/supervisor"
)

// captureChild starts a "cat" child over a PTY and records every line it
// echoes back, so a backend's SendXxx command formatting can be asserted
// without a real debugger binary.
func captureChild(t *testing.T) (*supervisor.Child, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var lines []string

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	c, err := supervisor.Start(ctx, "/bin/cat", nil, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("supervisor.Start: %v", err)
	}
	t.Cleanup(func() { c.Kill() })

	return c, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), lines...)
	}
}

func waitForLine(t *testing.T, get func() []string, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, l := range get() {
			if l == want {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("never saw line %q among %v", want, get())
}

func TestLLDBBackendCommandFormatting(t *testing.T) {
	c, get := captureChild(t)
	b := &LLDBBackend{child: c}

	if err := b.SendBreakpoint(proto.FileLocation{Path: "/tmp/main.go", Line: 8}); err != nil {
		t.Fatalf("SendBreakpoint: %v", err)
	}
	waitForLine(t, get, "breakpoint set --file /tmp/main.go --line 8")

	if err := b.SendPrint("x"); err != nil {
		t.Fatalf("SendPrint: %v", err)
	}
	waitForLine(t, get, "frame variable x")
}

func TestPDBBackendCommandFormatting(t *testing.T) {
	c, get := captureChild(t)
	b := &PDBBackend{child: c}

	if err := b.SendBreakpoint(proto.FileLocation{Path: "/tmp/script.py", Line: 5}); err != nil {
		t.Fatalf("SendBreakpoint: %v", err)
	}
	waitForLine(t, get, "break /tmp/script.py:5")

	if err := b.SendStepOver(2); err != nil {
		t.Fatalf("SendStepOver: %v", err)
	}
	waitForLine(t, get, "next")
}

func TestDelveBackendCommandFormatting(t *testing.T) {
	c, get := captureChild(t)
	b := &DelveBackend{child: c}

	if err := b.SendUnbreakpoint(proto.FileLocation{Path: "/tmp/main.go", Line: 11}); err != nil {
		t.Fatalf("SendUnbreakpoint: %v", err)
	}
	waitForLine(t, get, "clearall /tmp/main.go:11")

	if err := b.SendPrint("y"); err != nil {
		t.Fatalf("SendPrint: %v", err)
	}
	waitForLine(t, get, "print y")
}
