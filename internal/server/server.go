// Package server accepts editor TCP connections and wires each one to the
// dispatcher and notifier (§4.7). Grounded on the teacher's
// internal/daemon.Run signal-handling shape and internal/transport.Server's
// ListenAndServe/ctx-shutdown pattern, generalized from a unix-socket HTTP
// API server to a raw TCP frame server.
package server

import (
	"bytes"
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strottos/padre/internal/dispatch"
	"github.com/strottos/padre/internal/logger"
	"github.com/strottos/padre/internal/notifier"
	"github.com/strottos/padre/internal/proto"
)

// Server accepts TCP connections and drives the per-connection inbound and
// outbound tasks (§4.7).
type Server struct {
	Dispatcher *dispatch.Dispatcher
	Notifier   *notifier.Notifier

	// Exit is not called by Server. Signal-driven shutdown goes through
	// the onSignal callback passed to WaitForSignal.
	Exit func()
}

// ListenAndServe binds addr and accepts connections until ctx is cancelled.
// It returns the bound address so the caller can read back an OS-assigned
// port (§6: "default: OS-assigned free port, printed to stdout").
func (s *Server) ListenAndServe(ctx context.Context, addr string) (net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			go s.handleConn(ctx, conn)
		}
	}()

	return lis.Addr(), nil
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	listener := s.Notifier.Register(64)
	defer s.Notifier.Unregister(listener)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outbound := make(chan []byte, 64)
	go s.outboundLoop(connCtx, conn, listener, outbound)
	s.inboundLoop(connCtx, conn, outbound)
}

// inboundLoop reads bytes, frame-decodes them, and enqueues each decoded
// request on the dispatcher; each enqueued command carries a one-shot
// result that a per-request goroutine waits on before encoding the
// response onto outbound (§4.7).
func (s *Server) inboundLoop(ctx context.Context, conn net.Conn, outbound chan<- []byte) {
	buf := &bytes.Buffer{}
	read := make([]byte, 4096)

	for {
		n, err := conn.Read(read)
		if err != nil {
			return
		}
		buf.Write(read[:n])

		for {
			req, decErr := proto.Decode(buf)
			if decErr != nil {
				s.replyDecodeError(ctx, decErr, outbound)
				continue
			}
			if req == nil {
				break
			}
			s.dispatchAndReply(ctx, *req, outbound)
		}
	}
}

func (s *Server) dispatchAndReply(ctx context.Context, req proto.Request, outbound chan<- []byte) {
	replyCh := s.Dispatcher.Dispatch(req)
	go func() {
		select {
		case resp := <-replyCh:
			s.encode(resp, outbound)
		case <-ctx.Done():
		}
	}()
}

func (s *Server) replyDecodeError(ctx context.Context, decErr error, outbound chan<- []byte) {
	var id uint64
	var message, debug string
	if se, ok := decErr.(*proto.RequestSyntaxError); ok {
		id = se.ID
		message = se.Message
		debug = se.Debug
	} else {
		message = decErr.Error()
		debug = decErr.Error()
	}
	s.encode(proto.Response{ID: id, Payload: map[string]any{"error": message, "debug": debug}}, outbound)
}

func (s *Server) encode(resp proto.Response, outbound chan<- []byte) {
	data, err := proto.EncodeResponse(resp)
	if err != nil {
		logger.Error("server: failed to encode response", "err", err)
		return
	}
	outbound <- data
}

// outboundLoop merges notifier pushes and direct responses into the frame
// encoder and writes them to conn (§4.7).
func (s *Server) outboundLoop(ctx context.Context, conn net.Conn, listener *notifier.Listener, outbound <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-outbound:
			if !ok {
				return
			}
			if _, err := conn.Write(data); err != nil {
				return
			}
		case note, ok := <-listener.Notifications():
			if !ok {
				return
			}
			data, err := proto.EncodeNotification(note)
			if err != nil {
				logger.Error("server: failed to encode notification", "err", err)
				continue
			}
			if _, err := conn.Write(data); err != nil {
				return
			}
		}
	}
}

// WaitForSignal blocks until SIGINT, SIGQUIT, or SIGTERM arrives, then
// calls onSignal. If the process hasn't exited within 5 seconds of that
// (§6: "5-second grace"), it force-exits.
func WaitForSignal(onSignal func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("server: received signal, shutting down", "signal", sig.String())
	onSignal()

	grace := time.NewTimer(5 * time.Second)
	<-grace.C
	logger.Critical("server: grace period expired, forcing exit")
	os.Exit(1)
}
