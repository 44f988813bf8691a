package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestStartStreamsLinesToCallback(t *testing.T) {
	var mu sync.Mutex
	var lines []string

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Start(ctx, "/bin/sh", []string{"-c", "echo one; echo two"}, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit in time")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("got %v", lines)
	}
}

func TestStartCapturesExitCode(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Start(ctx, "/bin/sh", []string{"-c", "exit 7"}, func(string) {})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	<-c.Done()
	if c.ExitCode() != 7 {
		t.Fatalf("got exit code %d, want 7", c.ExitCode())
	}
	if !c.Exited() {
		t.Fatal("expected Exited() to report true once Done is closed")
	}
}

func TestStartUnknownBinaryReturnsProcessSpawnError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := Start(ctx, "/no/such/binary-padre-test", nil, func(string) {})
	if err == nil {
		t.Fatal("expected an error for a nonexistent binary")
	}
}

func TestWriteLineAppendsNewline(t *testing.T) {
	received := make(chan string, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Start(ctx, "/bin/sh", []string{"-c", "read -r line; echo \"got:$line\""}, func(line string) {
		received <- line
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := c.WriteLine("hello"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}

	select {
	case line := <-received:
		if line != "got:hello" {
			t.Fatalf("got %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for echoed line")
	}
}

func TestKillTerminatesChild(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := Start(ctx, "/bin/sh", []string{"-c", "sleep 30"}, func(string) {})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := c.Kill(); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("child did not exit after Kill")
	}
}
