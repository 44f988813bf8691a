package adapter

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/strottos/padre/internal/config"
	"github.com/strottos/padre/internal/notifier"
	"github.com/strottos/padre/internal/proto"
)

// fakeBackend is a scriptable Backend double: each Send* call can be told to
// complete the driver's awakener immediately (as a real backend's analyzer
// would, once it recognizes the completion line) or to stay silent so tests
// can exercise the timeout path.
type fakeBackend struct {
	driver *Driver

	launchErr error
	sendErr   error
	fireOnSend bool

	launched        bool
	killed          bool
	breakpointsSent int
}

func (b *fakeBackend) Launch(ctx context.Context, debuggerPath string, argv []string) error {
	b.launched = true
	if b.launchErr != nil {
		return b.launchErr
	}
	if b.fireOnSend {
		b.driver.ProcessStarted(4242)
		b.driver.Complete()
	}
	return nil
}

func (b *fakeBackend) SendBreakpoint(loc proto.FileLocation) error {
	b.breakpointsSent++
	return b.send()
}

func (b *fakeBackend) SendUnbreakpoint(loc proto.FileLocation) error { return b.send() }
func (b *fakeBackend) SendStepIn(count int64) error                 { return b.send() }
func (b *fakeBackend) SendStepOver(count int64) error               { return b.send() }
func (b *fakeBackend) SendContinue() error                          { return b.send() }
func (b *fakeBackend) SendPrint(variable string) error              { return b.send() }
func (b *fakeBackend) Kill() error                                  { b.killed = true; return nil }
func (b *fakeBackend) Name() string                                 { return "fake" }

func (b *fakeBackend) send() error {
	if b.sendErr != nil {
		return b.sendErr
	}
	if b.fireOnSend {
		b.driver.Complete()
	}
	return nil
}

func newTestDriver(t *testing.T, backend func(*Driver) Backend) (*Driver, *notifier.Notifier) {
	t.Helper()
	n := notifier.New()
	cfg := config.New()
	cfg.Set(config.KeyStepTimeout, 1)
	cfg.Set(config.KeyBreakpointTimeout, 1)
	cfg.Set(config.KeyProcessSpawnTimeout, 1)
	cfg.Set(config.KeyPrintVariableTimeout, 1)

	var d *Driver
	b := backend(nil)
	d = NewDriver(b, n, cfg, "fake-debugger", []string{"/tmp/target"})
	if fb, ok := b.(*fakeBackend); ok {
		fb.driver = d
	}
	return d, n
}

func runDriver(t *testing.T, d *Driver) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	return cancel
}

func TestDriverPingDoesNotTouchBackend(t *testing.T) {
	d, _ := newTestDriver(t, func(*Driver) Backend { return &fakeBackend{} })
	cancel := runDriver(t, d)
	defer cancel()

	resp := <-d.Submit(proto.Request{ID: 1, Command: proto.Command{Kind: proto.KindPing}})
	if resp.ID != 1 {
		t.Fatalf("got %+v", resp)
	}
}

func TestDriverGetSetConfig(t *testing.T) {
	d, _ := newTestDriver(t, func(*Driver) Backend { return &fakeBackend{} })
	cancel := runDriver(t, d)
	defer cancel()

	setResp := <-d.Submit(proto.Request{ID: 1, Command: proto.Command{
		Kind: proto.KindSetConfig, ConfigKey: "StepTimeout", ConfigValue: 9,
	}})
	payload := setResp.Payload.(map[string]any)
	if payload["status"] != "OK" {
		t.Fatalf("got %+v", setResp)
	}

	getResp := <-d.Submit(proto.Request{ID: 2, Command: proto.Command{
		Kind: proto.KindGetConfig, ConfigKey: "StepTimeout",
	}})
	getPayload := getResp.Payload.(map[string]any)
	if getPayload["value"] != int64(9) {
		t.Fatalf("got %+v", getResp)
	}
}

func TestDriverGetUnknownConfigKeyErrors(t *testing.T) {
	d, _ := newTestDriver(t, func(*Driver) Backend { return &fakeBackend{} })
	cancel := runDriver(t, d)
	defer cancel()

	resp := <-d.Submit(proto.Request{ID: 1, Command: proto.Command{Kind: proto.KindGetConfig, ConfigKey: "NoSuchKey"}})
	payload := resp.Payload.(map[string]any)
	if payload["status"] != "ERROR" {
		t.Fatalf("expected an ERROR status for an unknown key, got %+v", resp)
	}
}

func TestDriverBreakpointWhileUnlaunchedIsPending(t *testing.T) {
	d, n := newTestDriver(t, func(*Driver) Backend { return &fakeBackend{} })
	cancel := runDriver(t, d)
	defer cancel()

	l := n.Register(4)
	defer n.Unregister(l)

	resp := <-d.Submit(proto.Request{ID: 1, Command: proto.Command{
		Kind: proto.KindBreakpoint, Location: proto.FileLocation{Path: "/tmp/main.go", Line: 3},
	}})
	payload := resp.Payload.(map[string]any)
	if payload["status"] != "PENDING" {
		t.Fatalf("expected PENDING status before Run, got %+v", resp)
	}

	select {
	case note := <-l.Notifications():
		if note.Name != "padre#debugger#Log" {
			t.Fatalf("got %q", note.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a Log notification for the pending breakpoint")
	}
}

func TestDriverRunDrainsPendingBreakpointsOnFirstListen(t *testing.T) {
	var fb *fakeBackend
	d, _ := newTestDriver(t, func(*Driver) Backend {
		fb = &fakeBackend{fireOnSend: true}
		return fb
	})
	cancel := runDriver(t, d)
	defer cancel()

	// Queued while Unlaunched.
	<-d.Submit(proto.Request{ID: 1, Command: proto.Command{
		Kind: proto.KindBreakpoint, Location: proto.FileLocation{Path: "/tmp/main.go", Line: 3},
	}})

	resp := <-d.Submit(proto.Request{ID: 2, Command: proto.Command{Kind: proto.KindRun}})
	payload := resp.Payload.(map[string]any)
	if payload["status"] != "OK" || payload["pid"] != 4242 {
		t.Fatalf("got %+v", resp)
	}

	// The drain runs synchronously inside the Complete() that the fake
	// Launch calls, so it has finished before the Run response arrives.
	if fb.breakpointsSent != 1 {
		t.Fatalf("expected the pending breakpoint to be sent once on first listen, got %d sends", fb.breakpointsSent)
	}

	// A second identical breakpoint, now that the adapter is Listening,
	// should not be queued as pending again.
	resp2 := <-d.Submit(proto.Request{ID: 3, Command: proto.Command{
		Kind: proto.KindBreakpoint, Location: proto.FileLocation{Path: "/tmp/main.go", Line: 3},
	}})
	payload2 := resp2.Payload.(map[string]any)
	if payload2["status"] != "OK" {
		t.Fatalf("expected a direct OK once Listening, got %+v", resp2)
	}
}

func TestDriverBreakpointDropsCommandWhenCanonicalizeFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	t.Cleanup(func() { os.Chdir("/") })

	d, n := newTestDriver(t, func(*Driver) Backend { return &fakeBackend{} })
	cancel := runDriver(t, d)
	defer cancel()

	l := n.Register(4)
	defer n.Unregister(l)

	// With the working directory gone, a relative path can't be made
	// absolute (§4.5's "canonicalization fails" case) while still
	// Unlaunched, so the breakpoint must be dropped with an ERROR
	// response and a Log notification, never queued as pending.
	resp := <-d.Submit(proto.Request{ID: 1, Command: proto.Command{
		Kind: proto.KindBreakpoint, Location: proto.FileLocation{Path: "relative/main.go", Line: 3},
	}})
	payload := resp.Payload.(map[string]any)
	if payload["status"] != "ERROR" {
		t.Fatalf("expected an ERROR status when canonicalization fails, got %+v", resp)
	}

	select {
	case note := <-l.Notifications():
		if note.Name != "padre#debugger#Log" {
			t.Fatalf("got %q", note.Name)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a Log notification for the canonicalize failure")
	}
}

func TestDriverTimeoutWhenBackendNeverCompletes(t *testing.T) {
	var fb *fakeBackend
	d, _ := newTestDriver(t, func(*Driver) Backend {
		fb = &fakeBackend{fireOnSend: true} // Run completes so we reach Listening
		return fb
	})
	cancel := runDriver(t, d)
	defer cancel()

	<-d.Submit(proto.Request{ID: 1, Command: proto.Command{Kind: proto.KindRun}})

	fb.fireOnSend = false // subsequent commands hang forever
	resp := <-d.Submit(proto.Request{ID: 2, Command: proto.Command{Kind: proto.KindContinue}})
	payload := resp.Payload.(map[string]any)
	if payload["status"] != "ERROR" {
		t.Fatalf("expected a timeout ERROR, got %+v", resp)
	}
}

func TestDriverExitKillsBackend(t *testing.T) {
	var fb *fakeBackend
	d, _ := newTestDriver(t, func(*Driver) Backend {
		fb = &fakeBackend{}
		return fb
	})
	cancel := runDriver(t, d)
	defer cancel()

	resp := <-d.Submit(proto.Request{ID: 1, Command: proto.Command{Kind: proto.KindExit}})
	payload := resp.Payload.(map[string]any)
	if payload["status"] != "OK" {
		t.Fatalf("got %+v", resp)
	}
	if !fb.killed {
		t.Fatal("expected Exit to call Backend.Kill")
	}
}
