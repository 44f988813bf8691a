package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/strottos/padre/internal/adapter"
	"github.com/strottos/padre/internal/config"
	"github.com/strottos/padre/internal/detect"
	"github.com/strottos/padre/internal/dispatch"
	"github.com/strottos/padre/internal/logger"
	"github.com/strottos/padre/internal/notifier"
	"github.com/strottos/padre/internal/proto"
	"github.com/strottos/padre/internal/server"
)

func main() {
	root := &cobra.Command{
		Use:   "padre",
		Short: "PADRE debugger-adapter daemon",
		RunE:  run,
	}

	// cobra reserves -h for --help, so --host has no short flag (§6
	// names "-h, --host"; this repo spells out --host to avoid clashing
	// with cobra's built-in help flag).
	root.Flags().IntP("port", "p", 0, "listen port (default: OS-assigned free port)")
	root.Flags().String("host", "0.0.0.0", "bind address")
	root.Flags().StringP("type", "t", "", "force backend kind: lldb|node|python|godlv")
	root.Flags().StringP("debugger", "d", "", "backend command to exec")
	root.Flags().String("log-level", "info", "log level: debug|info|warn|error")
	root.Flags().String("log-file", "", "also write logs to this file")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")
	typeFlag, _ := cmd.Flags().GetString("type")
	debuggerFlag, _ := cmd.Flags().GetString("debugger")
	logLevel, _ := cmd.Flags().GetString("log-level")
	logFile, _ := cmd.Flags().GetString("log-file")

	if err := logger.Init(logLevel, logFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	dashAt := cmd.ArgsLenAtDash()
	var debuggee []string
	if dashAt >= 0 {
		debuggee = args[dashAt:]
	} else {
		debuggee = args
	}

	kind := detect.Kind(typeFlag)
	if kind == "" {
		classified, err := detect.Classify(debuggee, debuggerFlag)
		if err != nil {
			return err
		}
		kind = classified
	}

	cfg := config.New()
	if err := cfg.LoadFile(config.DefaultPath()); err != nil {
		logger.Warn("main: failed to load config file", "err", err)
	}
	stop := make(chan struct{})
	if err := cfg.WatchFile(config.DefaultPath(), stop); err != nil {
		logger.Warn("main: failed to watch config file", "err", err)
	}

	n := notifier.New()
	driver, err := buildDriver(kind, n, cfg, debuggerFlag, debuggee)
	if err != nil {
		logger.Critical("main: failed to build backend", "err", err)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go driver.Run(ctx)

	srv := &server.Server{
		Dispatcher: dispatch.New(driver),
		Notifier:   n,
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	boundAddr, err := srv.ListenAndServe(ctx, addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	printAddr(boundAddr.String())

	go server.WaitForSignal(func() {
		enqueueExit(driver)
		close(stop)
		cancel()
	})

	<-ctx.Done()
	return nil
}

// eventsProxy breaks the backend/driver construction cycle: each backend
// builds its analyzer (and wires it to an analyzer.Events) at construction
// time, but the driver that implements Events needs the backend to exist
// first. proxy is handed to the backend immediately and forwards to the
// driver once its driver field is populated just after.
type eventsProxy struct {
	driver *adapter.Driver
}

func (p *eventsProxy) ProcessStarted(pid int)                 { p.driver.ProcessStarted(pid) }
func (p *eventsProxy) ProcessExited(pid, code int)             { p.driver.ProcessExited(pid, code) }
func (p *eventsProxy) BreakpointSet(file string, line int64)   { p.driver.BreakpointSet(file, line) }
func (p *eventsProxy) BreakpointUnset(file string, line int64) { p.driver.BreakpointUnset(file, line) }
func (p *eventsProxy) JumpToPosition(file string, line int64)  { p.driver.JumpToPosition(file, line) }
func (p *eventsProxy) ReturnValue(value string)                { p.driver.ReturnValue(value) }
func (p *eventsProxy) PrintedVariable(name, typ, value string) { p.driver.PrintedVariable(name, typ, value) }
func (p *eventsProxy) VariableNotFound(name string)            { p.driver.VariableNotFound(name) }
func (p *eventsProxy) Warn(msg string)                         { p.driver.Warn(msg) }
func (p *eventsProxy) PassThrough(line string)                 { p.driver.PassThrough(line) }
func (p *eventsProxy) Complete()                               { p.driver.Complete() }

func buildDriver(kind detect.Kind, n *notifier.Notifier, cfg *config.Store, debuggerFlag string, debuggee []string) (*adapter.Driver, error) {
	proxy := &eventsProxy{}

	var backend adapter.Backend
	switch kind {
	case detect.LLDB:
		backend = adapter.NewLLDBBackend(proxy)
	case detect.Python:
		backend = adapter.NewPDBBackend(proxy)
	case detect.Delve:
		backend = adapter.NewDelveBackend(proxy)
	case detect.Node:
		backend = adapter.NewNodeBackend(proxy)
	default:
		return nil, fmt.Errorf("unknown debugger type: %s", kind)
	}

	driver := adapter.NewDriver(backend, n, cfg, debuggerFlag, debuggee)
	proxy.driver = driver
	return driver, nil
}

func enqueueExit(driver *adapter.Driver) {
	reply := driver.Submit(proto.Request{ID: 0, Command: proto.Command{Kind: proto.KindExit}})
	<-reply
}

func printAddr(addr string) {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Printf("padre listening on %s\n", addr)
		return
	}
	fmt.Println(addr)
}
