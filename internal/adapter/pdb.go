package adapter

import (
	"context"
	"fmt"

	"github.com/strottos/padre/internal/analyzer"
	"github.com/strottos/padre/internal/proto"
	"github.com/strottos/padre/internal/supervisor"
)

// PDBBackend drives Python's pdb module over a PTY (§4.5).
type PDBBackend struct {
	child    *supervisor.Child
	analyzer *analyzer.PDB
}

// NewPDBBackend returns a backend whose analyzer feeds events into events.
func NewPDBBackend(events analyzer.Events) *PDBBackend {
	return &PDBBackend{analyzer: analyzer.NewPDB(events)}
}

// Name implements Backend.
func (b *PDBBackend) Name() string { return "pdb" }

// Launch runs `python3 -m pdb <argv...>` and returns once the child is
// spawned; the run command then completes when the analyzer sees the first
// (Pdb) prompt and fires Complete (§4.5).
func (b *PDBBackend) Launch(ctx context.Context, debuggerPath string, argv []string) error {
	if debuggerPath == "" {
		debuggerPath = "python3"
	}
	args := append([]string{"-m", "pdb"}, argv...)
	child, err := supervisor.Start(ctx, debuggerPath, args, b.analyzer.Feed)
	if err != nil {
		return err
	}
	b.child = child
	return nil
}

// SendBreakpoint implements Backend.
func (b *PDBBackend) SendBreakpoint(loc proto.FileLocation) error {
	return b.child.WriteLine(fmt.Sprintf("break %s:%d", loc.Path, loc.Line))
}

// SendUnbreakpoint implements Backend.
func (b *PDBBackend) SendUnbreakpoint(loc proto.FileLocation) error {
	return b.child.WriteLine(fmt.Sprintf("clear %s:%d", loc.Path, loc.Line))
}

// SendStepIn implements Backend.
func (b *PDBBackend) SendStepIn(count int64) error {
	for i := int64(0); i < count; i++ {
		if err := b.child.WriteLine("step"); err != nil {
			return err
		}
	}
	return nil
}

// SendStepOver implements Backend.
func (b *PDBBackend) SendStepOver(count int64) error {
	for i := int64(0); i < count; i++ {
		if err := b.child.WriteLine("next"); err != nil {
			return err
		}
	}
	return nil
}

// SendContinue implements Backend.
func (b *PDBBackend) SendContinue() error {
	return b.child.WriteLine("continue")
}

// SendPrint implements Backend.
func (b *PDBBackend) SendPrint(variable string) error {
	b.analyzer.StartPrint()
	return b.child.WriteLine("p " + variable)
}

// Kill implements Backend.
func (b *PDBBackend) Kill() error {
	if b.child == nil {
		return nil
	}
	return b.child.Kill()
}
