// Package supervisor spawns and tends the one debuggee/debugger child
// process an adapter instance owns for its lifetime (§4.3). It is grounded
// on the teacher's internal/egg/server.go RunSession: a PTY-attached
// exec.Cmd, a read loop feeding lines to a callback, and a cmd.Wait
// goroutine that records the exit code and closes a done channel.
package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/strottos/padre/internal/logger"
	"github.com/strottos/padre/internal/proto"
)

// LineFunc receives each line the child writes to its PTY, stripped of its
// trailing newline. It runs on the supervisor's read goroutine — analyzers
// must not block it (§4.3, §4.4).
type LineFunc func(line string)

// Child supervises one PTY-attached process (§4.3).
type Child struct {
	mu       sync.Mutex
	cmd      *exec.Cmd
	ptmx     *os.File
	done     chan struct{}
	exitCode int
	exitErr  error
}

// Start execs name/args attached to a PTY and begins streaming its output
// to onLine on a background goroutine. Grounded on egg/server.go's
// pty.StartWithSize + readPTY + cmd.Wait pattern, simplified to PADRE's
// fixed 80x24 backend terminal (the backend processes never draw a TUI).
func Start(ctx context.Context, name string, args []string, onLine LineFunc) (*Child, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: 80, Rows: 24})
	if err != nil {
		return nil, &proto.ProcessSpawnError{Backend: name, Err: err}
	}

	c := &Child{
		cmd:  cmd,
		ptmx: ptmx,
		done: make(chan struct{}),
	}

	go c.readLoop(onLine)
	go c.waitLoop()

	return c, nil
}

func (c *Child) readLoop(onLine LineFunc) {
	scanner := bufio.NewScanner(c.ptmx)
	scanner.Buffer(make([]byte, 4096), 1<<20)
	for scanner.Scan() {
		onLine(scanner.Text())
	}
}

func (c *Child) waitLoop() {
	err := c.cmd.Wait()
	code := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else {
			code = 1
		}
	}
	c.mu.Lock()
	c.exitCode = code
	c.exitErr = err
	c.mu.Unlock()
	close(c.done)
	logger.Debug("supervisor: child exited", "pid", c.PID(), "code", code)
}

// PID returns the child's process id.
func (c *Child) PID() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

// Write sends raw bytes to the child's PTY — the stdin path every backend
// command translation funnels through (§4.5).
func (c *Child) Write(p []byte) (int, error) {
	return c.ptmx.Write(p)
}

// WriteLine writes s followed by a newline, the form every PTY-based
// backend (lldb, pdb, dlv) expects for a typed command.
func (c *Child) WriteLine(s string) error {
	_, err := c.Write([]byte(s + "\n"))
	return err
}

// Done returns a channel closed once the child has exited.
func (c *Child) Done() <-chan struct{} {
	return c.done
}

// ExitCode returns the child's exit code, valid only after Done is closed.
func (c *Child) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// Exited reports whether the child has already exited.
func (c *Child) Exited() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Kill terminates the child's whole process group with SIGKILL (§4.3,
// §4.6: "Exit must guarantee no orphaned debuggee survives the daemon").
// Setsid above makes the child its own group leader, so killing -pid hits
// every descendant it spawned.
func (c *Child) Kill() error {
	if c.cmd.Process == nil {
		return nil
	}
	pid := c.cmd.Process.Pid
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		return fmt.Errorf("kill process group %d: %w", pid, err)
	}
	return nil
}

// Resize adjusts the PTY window size; unused by any current backend (none
// render a TUI) but kept symmetric with the teacher's resize path.
func (c *Child) Resize(cols, rows uint16) error {
	return pty.Setsize(c.ptmx, &pty.Winsize{Cols: cols, Rows: rows})
}

