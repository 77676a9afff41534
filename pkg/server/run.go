package server

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mwren/partyline/pkg/protocol"
)

// Run starts the server and blocks until an administrative "quit" on
// the console or a termination signal, then broadcasts the shutdown
// notice and tears the socket down.
func (s *Server) Run() error {
	if err := s.Start(); err != nil {
		return err
	}

	s.metrics.StartPeriodicLog(60*time.Second, s.ctx.Done())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	quitCh := make(chan struct{}, 1)
	go watchConsole(os.Stdin, quitCh)

	select {
	case sig := <-sigCh:
		slog.Info("signal received, shutting down", "signal", sig)
	case <-quitCh:
		slog.Info("console quit, shutting down")
	case <-s.ctx.Done():
	}

	s.Shutdown()
	return nil
}

// watchConsole reads administrative commands from r and signals quitCh
// on "quit". It returns when r is exhausted.
func watchConsole(r io.Reader, quitCh chan<- struct{}) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "quit":
			quitCh <- struct{}{}
			return
		case "":
		default:
			slog.Info("unknown console command (try \"quit\")", "input", scanner.Text())
		}
	}
}

// Shutdown notifies every logged-in session, then stops accepting
// datagrams and releases the socket. One-shot; later calls are no-ops.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		sessions := s.sessions.All()
		slog.Info("shutting down", "sessions", len(sessions))

		notice := protocol.MarshalNotice(protocol.KindShutdown, "server shutting down")
		for _, sess := range sessions {
			if sess.Addr != nil {
				s.send(notice, sess.Addr)
			}
		}

		s.cancel()
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}
