package adapter

import (
	"context"
	"fmt"

	"github.com/strottos/padre/internal/analyzer"
	"github.com/strottos/padre/internal/proto"
	"github.com/strottos/padre/internal/supervisor"
)

// DelveBackend drives a dlv child over a PTY (§4.5).
type DelveBackend struct {
	child    *supervisor.Child
	analyzer *analyzer.Delve
}

// NewDelveBackend returns a backend whose analyzer feeds events into events.
func NewDelveBackend(events analyzer.Events) *DelveBackend {
	return &DelveBackend{analyzer: analyzer.NewDelve(events)}
}

// Name implements Backend.
func (b *DelveBackend) Name() string { return "dlv" }

// Launch runs `dlv debug <argv...>` and issues the Delve run sequence: set
// main.main, then continue (§4.5).
func (b *DelveBackend) Launch(ctx context.Context, debuggerPath string, argv []string) error {
	if debuggerPath == "" {
		debuggerPath = "dlv"
	}
	args := append([]string{"debug", "--"}, argv...)
	child, err := supervisor.Start(ctx, debuggerPath, args, b.analyzer.Feed)
	if err != nil {
		return err
	}
	b.child = child

	// See LLDBBackend.Launch: the internal "break main.main" step must not
	// surface a spurious completion or breakpoint-set event to the driver.
	b.analyzer.BeginInternalStep()
	step := b.analyzer.Awake.Register()
	if err := child.WriteLine("break main.main"); err != nil {
		b.analyzer.EndInternalStep()
		return err
	}
	select {
	case <-step:
	case <-ctx.Done():
		b.analyzer.EndInternalStep()
		return ctx.Err()
	}
	b.analyzer.EndInternalStep()

	return child.WriteLine("continue")
}

// SendBreakpoint implements Backend.
func (b *DelveBackend) SendBreakpoint(loc proto.FileLocation) error {
	return b.child.WriteLine(fmt.Sprintf("break %s:%d", loc.Path, loc.Line))
}

// SendUnbreakpoint implements Backend.
func (b *DelveBackend) SendUnbreakpoint(loc proto.FileLocation) error {
	return b.child.WriteLine(fmt.Sprintf("clearall %s:%d", loc.Path, loc.Line))
}

// SendStepIn implements Backend.
func (b *DelveBackend) SendStepIn(count int64) error {
	return b.child.WriteLine("step")
}

// SendStepOver implements Backend.
func (b *DelveBackend) SendStepOver(count int64) error {
	return b.child.WriteLine("next")
}

// SendContinue implements Backend.
func (b *DelveBackend) SendContinue() error {
	return b.child.WriteLine("continue")
}

// SendPrint implements Backend.
func (b *DelveBackend) SendPrint(variable string) error {
	return b.child.WriteLine("print " + variable)
}

// Kill implements Backend.
func (b *DelveBackend) Kill() error {
	if b.child == nil {
		return nil
	}
	return b.child.Kill()
}
