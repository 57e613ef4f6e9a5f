// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Aggregation engine. Every producer streams records into one max-heap; on
// each end-of-stream record the heap is snapshotted and dumped in descending
// order. The server stops once every accepted producer has finished.

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-sort/api"
	"github.com/momentics/hioload-sort/control"
	"github.com/momentics/hioload-sort/core/maxheap"
	"github.com/momentics/hioload-sort/core/protocol"
	"github.com/momentics/hioload-sort/reactor"
	"github.com/momentics/hioload-sort/transport/tcp"
	"github.com/rs/zerolog"
)

type counters struct {
	accepted atomic.Int64
	active   atomic.Int64
	stopped  atomic.Int64
	aborted  atomic.Int64
	records  atomic.Int64
	flushes  atomic.Int64
	heapSize atomic.Int64
}

// Server owns the listener, the reactor, the live connections and the heap.
// Apart from Run, Running, Stats, Addr and Stop, its methods must only be
// called on the reactor goroutine.
type Server struct {
	cfg     control.ServerConfig
	log     zerolog.Logger
	out     io.Writer
	hooks   Hooks
	metrics *control.ServerMetrics

	reactor  *reactor.Reactor
	listener *tcp.Socket
	addr     atomic.Pointer[netip.AddrPort]
	conns    map[int]*Conn
	heap     *maxheap.Heap[int64]
	line     []byte

	started bool
	running atomic.Bool
	stats   counters
}

var (
	_ MessageSink     = (*Server)(nil)
	_ api.ReadHandler = (*Server)(nil)
)

// New validates cfg and creates the reactor. The listener is opened by Start.
func New(cfg control.ServerConfig, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:   cfg,
		log:   zerolog.Nop(),
		out:   os.Stdout,
		conns: make(map[int]*Conn),
		heap:  maxheap.New[int64](),
	}
	for _, o := range opts {
		o(s)
	}
	r, err := reactor.New(
		reactor.WithMaxEvents(cfg.MaxEvents),
		reactor.WithCPU(cfg.ReactorCPU),
		reactor.WithLogger(s.log.With().Str("component", "reactor").Logger()),
	)
	if err != nil {
		return nil, fmt.Errorf("server reactor: %w", err)
	}
	s.reactor = r
	return s, nil
}

// Start opens, binds and registers the listening socket. On failure the
// partially built listener is closed.
func (s *Server) Start() error {
	if s.started {
		return ErrAlreadyStarted
	}
	addr, err := tcp.ParseAddr(s.cfg.Host, s.cfg.Port)
	if err != nil {
		return fmt.Errorf("server start: %w", err)
	}
	sock, err := tcp.NewSocket()
	if err != nil {
		return fmt.Errorf("server start: %w", err)
	}
	fail := func(step string, err error) error {
		sock.Close()
		return fmt.Errorf("server %s %s: %w", step, addr, err)
	}
	if err := sock.SetReuseAddr(true); err != nil {
		return fail("reuseaddr", err)
	}
	if err := sock.Bind(addr); err != nil {
		return fail("bind", err)
	}
	if err := sock.Listen(s.cfg.Backlog); err != nil {
		return fail("listen", err)
	}
	local, err := sock.LocalAddr()
	if err != nil {
		return fail("getsockname", err)
	}
	if err := s.reactor.Register(sock.FD(), s); err != nil {
		return fail("register", err)
	}

	s.listener = sock
	s.addr.Store(&local)
	s.started = true
	s.running.Store(true)
	s.log.Info().Stringer("addr", local).Int("backlog", s.cfg.Backlog).Msg("listening")
	return nil
}

// Addr returns the bound listener address, or the zero value before Start.
func (s *Server) Addr() netip.AddrPort {
	if p := s.addr.Load(); p != nil {
		return *p
	}
	return netip.AddrPort{}
}

// Running reports whether the server is accepting and aggregating.
func (s *Server) Running() bool { return s.running.Load() }

// Stats returns a snapshot of the counters. Safe from any goroutine.
func (s *Server) Stats() Stats {
	return Stats{
		Accepted: s.stats.accepted.Load(),
		Active:   s.stats.active.Load(),
		Stopped:  s.stats.stopped.Load(),
		Aborted:  s.stats.aborted.Load(),
		Records:  s.stats.records.Load(),
		Flushes:  s.stats.flushes.Load(),
		HeapSize: s.stats.heapSize.Load(),
	}
}

// RegisterProbes exposes the counters on p.
func (s *Server) RegisterProbes(p *control.DebugProbes) {
	p.RegisterProbe("server.stats", func() any { return s.Stats() })
	p.RegisterProbe("server.running", func() any { return s.Running() })
	p.RegisterProbe("server.addr", func() any { return s.Addr().String() })
}

// Stop interrupts Run, which then returns an error wrapping api.ErrClosed.
// Safe from any goroutine.
func (s *Server) Stop() { s.reactor.Stop() }

// OnReadable accepts every pending connection.
func (s *Server) OnReadable() {
	for s.listener != nil {
		sock, err := s.listener.Accept()
		if err != nil {
			s.log.Error().Err(err).Msg("accept failed")
			return
		}
		if sock == nil {
			return
		}
		s.adopt(sock)
	}
}

func (s *Server) adopt(sock *tcp.Socket) {
	if s.cfg.SocketRecvBuffer > 0 {
		if err := sock.SetRecvBufferSize(s.cfg.SocketRecvBuffer); err != nil {
			s.log.Warn().Err(err).Msg("set SO_RCVBUF failed")
		}
	}
	opts := []ConnOption{WithConnLogger(s.log)}
	if peer, err := sock.RemoteAddr(); err == nil {
		opts = append(opts, WithPeer(peer))
	}
	if s.metrics != nil {
		opts = append(opts, WithBytesCounter(s.metrics.BytesReceived))
	}
	c := NewConn(sock, s.cfg.RecvBufferSize, s, opts...)
	if err := s.reactor.Register(c.FD(), c); err != nil {
		c.Logger().Error().Err(err).Msg("register connection failed")
		c.Close()
		return
	}
	s.conns[c.FD()] = c
	s.stats.accepted.Add(1)
	s.stats.active.Add(1)
	if s.metrics != nil {
		s.metrics.ConnectionsAccepted.Inc()
		s.metrics.ConnectionsActive.Inc()
	}
	c.Logger().Info().Stringer("peer", c.Peer()).Msg("producer connected")
	if s.hooks.OnAccept != nil {
		s.hooks.OnAccept(c)
	}
}

// OnMessage merges one record. The end-of-stream record triggers a dump and
// may stop the server. Records after a connection's end of stream are dropped.
func (s *Server) OnMessage(rec protocol.Record, c *Conn) {
	if !s.running.Load() {
		return
	}
	if c.Stopped() {
		c.Logger().Debug().Int32("producer", rec.ProducerID).Msg("record after end of stream dropped")
		return
	}
	if rec.IsSentinel() {
		s.stats.stopped.Add(1)
		if s.metrics != nil {
			s.metrics.SentinelsReceived.Inc()
		}
		c.Logger().Info().
			Int32("producer", rec.ProducerID).
			Int64("records", c.Records()-1).
			Msg("end of stream")
		s.Flush()
		c.MarkStopped()
		if s.finished() {
			s.stop()
		}
		return
	}

	s.heap.Push(rec.Value)
	s.stats.records.Add(1)
	s.stats.heapSize.Store(int64(s.heap.Len()))
	if s.metrics != nil {
		s.metrics.RecordsReceived.Inc()
		s.metrics.HeapSize.Set(float64(s.heap.Len()))
	}
}

// Flush drains a clone of the heap and writes it as one line of descending
// values. The live heap is untouched. No-op once the server has stopped.
func (s *Server) Flush() {
	if !s.running.Load() {
		return
	}
	start := time.Now()
	values := s.heap.Clone().Drain()

	s.line = s.line[:0]
	for i, v := range values {
		if i > 0 {
			s.line = append(s.line, ' ')
		}
		s.line = strconv.AppendInt(s.line, v, 10)
	}
	s.line = append(s.line, '\n')
	if _, err := s.out.Write(s.line); err != nil {
		s.log.Error().Err(err).Msg("dump write failed")
	}

	s.stats.flushes.Add(1)
	if s.metrics != nil {
		s.metrics.Flushes.Inc()
		s.metrics.FlushDuration.Observe(time.Since(start).Seconds())
	}
	if s.hooks.OnDump != nil {
		s.hooks.OnDump(values)
	}
}

// Detach takes back ownership of c, closes it and drops it from the set.
// A connection that never sent its end-of-stream record counts as aborted.
func (s *Server) Detach(c *Conn, cause error) {
	if s.conns[c.FD()] != c {
		c.Close()
		return
	}
	reason := control.ReasonCompleted
	if !c.Stopped() {
		reason = control.ReasonAborted
		if cause != nil && !errors.Is(cause, io.EOF) && !errors.Is(cause, api.ErrBufferFull) {
			reason = control.ReasonError
		}
	}
	s.release(c, reason, cause)

	if reason != control.ReasonCompleted {
		s.stats.aborted.Add(1)
		c.Logger().Warn().Err(cause).Int64("records", c.Records()).Msg("producer disconnected before end of stream")
		if s.running.Load() && s.finished() {
			s.stop()
		}
	}
}

func (s *Server) release(c *Conn, reason string, cause error) {
	delete(s.conns, c.FD())
	if err := s.reactor.Deregister(c.FD()); err != nil {
		c.Logger().Warn().Err(err).Msg("deregister failed")
	}
	if err := c.Close(); err != nil {
		c.Logger().Warn().Err(err).Msg("close failed")
	}
	s.stats.active.Add(-1)
	if s.metrics != nil {
		s.metrics.ConnectionsActive.Dec()
		s.metrics.ConnectionsClosed.WithLabelValues(reason).Inc()
	}
	c.Logger().Debug().Str("reason", reason).Int64("bytes", c.Bytes()).Msg("connection released")
	if s.hooks.OnDetach != nil {
		s.hooks.OnDetach(c, cause)
	}
}

// finished reports whether every accepted connection has either sent its
// end-of-stream record or aborted.
func (s *Server) finished() bool {
	accepted := s.stats.accepted.Load()
	return accepted > 0 && s.stats.stopped.Load()+s.stats.aborted.Load() >= accepted
}

// stop closes the listener and asks the reactor to return. Remaining
// connections are released by Run.
func (s *Server) stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.closeListener()
	s.reactor.Stop()
	st := s.Stats()
	s.log.Info().
		Int64("accepted", st.Accepted).
		Int64("aborted", st.Aborted).
		Int64("records", st.Records).
		Msg("all producers finished")
}

func (s *Server) closeListener() {
	if s.listener == nil {
		return
	}
	if err := s.reactor.Deregister(s.listener.FD()); err != nil {
		s.log.Warn().Err(err).Msg("deregister listener failed")
	}
	if err := s.listener.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close listener failed")
	}
	s.listener = nil
}

// Run starts the server if needed and dispatches events until every producer
// has finished or ctx is cancelled. All sockets and the reactor are released
// on return.
func (s *Server) Run(ctx context.Context) error {
	if !s.started {
		if err := s.Start(); err != nil {
			s.reactor.Close()
			return err
		}
	}
	stopOnCancel := context.AfterFunc(ctx, s.reactor.Stop)
	defer stopOnCancel()

	runErr := s.reactor.Run()
	interrupted := s.running.Swap(false)
	s.shutdown(interrupted)

	switch {
	case runErr != nil:
		return fmt.Errorf("server run: %w", runErr)
	case interrupted && ctx.Err() != nil:
		return ctx.Err()
	case interrupted:
		return fmt.Errorf("server run: %w", api.ErrClosed)
	}
	if st := s.Stats(); st.Aborted > 0 {
		return fmt.Errorf("%w: %d of %d", ErrAbnormalTermination, st.Aborted, st.Accepted)
	}
	return nil
}

func (s *Server) shutdown(interrupted bool) {
	s.closeListener()
	for _, c := range s.conns {
		reason := control.ReasonCompleted
		if interrupted && !c.Stopped() {
			reason = control.ReasonShutdown
		}
		s.release(c, reason, nil)
	}
	if err := s.reactor.Close(); err != nil {
		s.log.Warn().Err(err).Msg("reactor close failed")
	}
}
