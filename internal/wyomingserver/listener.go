// Package wyomingserver implements the Wyoming TCP listener and
// per-connection handler (C3), wiring the frame codec, event schema, and
// session machines into one accept loop.
package wyomingserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-voxd/internal/session"
	"github.com/loqalabs/loqa-voxd/internal/stt"
	"github.com/loqalabs/loqa-voxd/internal/tts"
	"github.com/loqalabs/loqa-voxd/internal/wyoming"
)

// Deps wires a Server to its shared backends and capability source.
type Deps struct {
	Synth             tts.Synthesizer
	Recognizer        stt.Recognizer
	Describe          func() wyoming.Info
	TTSConfig         session.TTSSessionConfig
	OnConnectionError func()
	OnSessionEvent    func(sessionID, kind string) // best-effort audit/capability hook; nil-safe
}

func (d Deps) notify(sessionID, kind string) {
	if d.OnSessionEvent != nil {
		d.OnSessionEvent(sessionID, kind)
	}
}

// Server is the Wyoming TCP listener and connection pool (C3). Accepting a
// connection spawns a handler on its own goroutine and registers it so
// Serve can wait for (or forcibly close) every handler on shutdown.
type Server struct {
	deps     Deps
	logger   *slog.Logger
	maxConns int
	grace    time.Duration

	mu      sync.Mutex
	conns   map[*Connection]struct{}
	running atomic.Bool
}

// NewServer builds a Wyoming server ready to Serve.
func NewServer(deps Deps, maxConns int, grace time.Duration, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, maxConns: maxConns, grace: grace, logger: logger, conns: make(map[*Connection]struct{})}
}

// Serve accepts connections on addr until ctx is canceled, then waits up
// to the configured grace period for in-flight connections to finish
// before force-closing whatever remains.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("wyoming: listen %s: %w", addr, err)
	}
	defer ln.Close()
	s.running.Store(true)

	go func() {
		<-ctx.Done()
		s.running.Store(false)
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				break
			}
			s.deps.OnConnectionError()
			s.logger.Error("wyoming: accept failed", "err", err)
			s.running.Store(false)
			break
		}

		s.mu.Lock()
		if s.maxConns > 0 && len(s.conns) >= s.maxConns {
			s.mu.Unlock()
			_ = conn.Close()
			continue
		}
		c := newConnection(conn, s.deps, s.logger)
		s.conns[c] = struct{}{}
		s.mu.Unlock()
		s.deps.notify(c.id, "opened")

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.serve(ctx)
			s.mu.Lock()
			delete(s.conns, c)
			s.mu.Unlock()
			s.deps.notify(c.id, "closed")
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.grace):
		s.closeAll()
		<-done
	}
	return nil
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.conn.Close()
	}
}

// ActiveConnections reports the current connection count, for metrics.
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
