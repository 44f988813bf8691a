package dispatch

import (
	"context"
	"testing"

	"github.com/strottos/padre/internal/adapter"
	"github.com/strottos/padre/internal/config"
	"github.com/strottos/padre/internal/notifier"
	"github.com/strottos/padre/internal/proto"
)

type noopBackend struct{}

func (noopBackend) Launch(ctx context.Context, debuggerPath string, argv []string) error { return nil }
func (noopBackend) SendBreakpoint(loc proto.FileLocation) error                          { return nil }
func (noopBackend) SendUnbreakpoint(loc proto.FileLocation) error                        { return nil }
func (noopBackend) SendStepIn(count int64) error                                         { return nil }
func (noopBackend) SendStepOver(count int64) error                                       { return nil }
func (noopBackend) SendContinue() error                                                  { return nil }
func (noopBackend) SendPrint(variable string) error                                      { return nil }
func (noopBackend) Kill() error                                                           { return nil }
func (noopBackend) Name() string                                                         { return "noop" }

func TestDispatchRoutesToDriver(t *testing.T) {
	driver := adapter.NewDriver(noopBackend{}, notifier.New(), config.New(), "noop", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go driver.Run(ctx)

	d := New(driver)
	resp := <-d.Dispatch(proto.Request{ID: 1, Command: proto.Command{Kind: proto.KindPing}})
	if resp.ID != 1 {
		t.Fatalf("got %+v", resp)
	}
}
