// Package server implements binding listeners, the accept loop, and
// graceful/forced shutdown, generalising a single-protocol accept loop
// keyed by net.Conn into a manager that
// dispatches each accepted connection to the H1 or H2 driver based on
// ALPN, and tracks per-connection state for shutdown/stats purposes.
package server

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/webforge/httpcore/config"
	"github.com/webforge/httpcore/handler"
	"github.com/webforge/httpcore/internal/timing"
	"github.com/webforge/httpcore/internal/tlschannel"
	"github.com/webforge/httpcore/stats"
)

// Server binds one or two listeners (cleartext H1, and optionally
// TLS-multiplexed H1/H2 via ALPN) and drives every accepted connection
// to completion.
type Server struct {
	cfg   *config.Config
	chain *handler.Chain
	stats *stats.Counters
	wheel *timing.Wheel

	mu         sync.Mutex
	listeners  []net.Listener
	conns      map[net.Conn]struct{}
	nextConnID uint64
	shutdown   bool

	wg sync.WaitGroup
}

// New builds a Server bound to cfg and chain. If cfg.Executors.Handler is
// nil, the unbounded goroutine executor is installed.
func New(cfg *config.Config, chain *handler.Chain) *Server {
	if cfg.Executors.Handler == nil {
		cfg.Executors.Handler = DefaultExecutor()
	}
	return &Server{
		cfg:   cfg,
		chain: chain,
		stats: stats.New(),
		wheel: timing.NewWheel(time.Second, 4096),
		conns: make(map[net.Conn]struct{}),
	}
}

// Stats returns a point-in-time snapshot of the process-wide counters.
func (s *Server) Stats() stats.Snapshot { return s.stats.Snapshot() }

// ListenAndServe binds cfg.HTTPPort for cleartext H1 and, if
// cfg.HTTPSPort >= 0, cfg.HTTPSPort for TLS-multiplexed H1/H2, then
// blocks running both accept loops until Stop or Kill is called.
func (s *Server) ListenAndServe() error {
	var errCh = make(chan error, 2)
	started := 0

	if s.cfg.HTTPPort >= 0 {
		ln, err := net.Listen("tcp", portAddr(s.cfg.HTTPPort))
		if err != nil {
			return err
		}
		s.registerListener(ln)
		started++
		go func() { errCh <- s.acceptLoop(ln, false) }()
	}

	if s.cfg.HTTPSPort >= 0 {
		raw, err := net.Listen("tcp", portAddr(s.cfg.HTTPSPort))
		if err != nil {
			return err
		}
		tln := tlschannel.NewListener(raw, s.cfg, s.stats)
		s.registerListener(tln)
		started++
		go func() { errCh <- s.acceptLoop(tln, true) }()
	}

	if started == 0 {
		return nil
	}

	var first error
	for i := 0; i < started; i++ {
		if err := <-errCh; err != nil && first == nil && !s.isShutdown() {
			first = err
		}
	}
	return first
}

func (s *Server) registerListener(ln net.Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, ln)
	s.mu.Unlock()
}

func (s *Server) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *Server) acceptLoop(ln net.Listener, isTLS bool) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isShutdown() {
				return nil
			}
			return err
		}

		s.stats.ConnectionOpened()
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.nextConnID++
		connID := s.nextConnID
		s.mu.Unlock()

		s.wg.Add(1)
		go s.drive(conn, connID, isTLS)
	}
}

func (s *Server) drive(conn net.Conn, connID uint64, isTLS bool) {
	defer s.wg.Done()
	defer s.forgetConn(conn)
	defer s.stats.ConnectionClosed()

	alpn := ""
	if isTLS {
		if info, ok := tlschannel.NegotiatedInfo(conn); ok {
			alpn = info.ALPN
		}
	}

	if alpn == "h2" {
		s.driveH2(conn, connID)
		return
	}
	s.driveH1(conn, connID)
}

func (s *Server) forgetConn(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

// Stop initiates graceful shutdown: stop accepting new connections, then
// wait up to grace for in-flight connections to finish on their own
// before force-closing whatever remains.
func (s *Server) Stop(grace time.Duration) error {
	s.mu.Lock()
	s.shutdown = true
	listeners := s.listeners
	s.mu.Unlock()

	for _, ln := range listeners {
		_ = ln.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	select {
	case <-done:
		s.wheel.Stop()
		return nil
	case <-ctx.Done():
		return s.Kill()
	}
}

// Kill immediately closes every listener and every live connection,
// without waiting for in-flight exchanges.
func (s *Server) Kill() error {
	s.mu.Lock()
	s.shutdown = true
	listeners := s.listeners
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, ln := range listeners {
		_ = ln.Close()
	}
	for _, c := range conns {
		_ = c.Close()
	}
	s.wheel.Stop()
	return nil
}

func portAddr(port int) string {
	return ":" + strconv.Itoa(port)
}

// scheduleTimeout arranges for fn to run after d elapses on the shared
// timing wheel, or returns nil if the timeout class is disabled (d <= 0).
func (s *Server) scheduleTimeout(d time.Duration, fn func()) *timing.Deadline {
	if d <= 0 {
		return nil
	}
	return s.wheel.Schedule(d, fn)
}

// cancelTimeout cancels a deadline returned by scheduleTimeout, tolerating nil.
func cancelTimeout(dl *timing.Deadline) {
	if dl != nil {
		dl.Cancel()
	}
}
