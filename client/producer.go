// File: client/producer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/netip"
	"slices"
	"sync/atomic"
	"syscall"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-sort/api"
	"github.com/momentics/hioload-sort/control"
	"github.com/momentics/hioload-sort/core/protocol"
	"github.com/momentics/hioload-sort/reactor"
	"github.com/momentics/hioload-sort/transport/tcp"
	"github.com/rs/zerolog"
)

// ErrServerClosed is returned when the server goes away before the
// end-of-stream record was fully sent.
var ErrServerClosed = errors.New("client: server closed the connection before end of stream")

// Producer streams records to the aggregation server from a reactor loop.
type Producer struct {
	cfg     control.ProducerConfig
	log     zerolog.Logger
	metrics *control.ProducerMetrics
	fixed   []int64
	rng     *rand.Rand

	reactor *reactor.Reactor
	sock    *tcp.Socket
	addr    netip.AddrPort

	// backlog holds encoded records; the head may be partially sent.
	backlog   *queue.Queue
	headSent  int
	generated int
	total     int
	eosQueued bool

	connected bool
	done      bool
	err       error
	sent      atomic.Int64
}

var (
	_ api.ReadHandler  = (*Producer)(nil)
	_ api.WriteHandler = (*Producer)(nil)
)

// New validates cfg and prepares the reactor. Nothing is connected until Run.
func New(cfg control.ProducerConfig, opts ...Option) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Producer{
		cfg:     cfg,
		log:     zerolog.Nop(),
		backlog: queue.New(),
		total:   cfg.MaxCount,
	}
	for _, o := range opts {
		o(p)
	}
	if p.fixed != nil {
		if slices.Contains(p.fixed, protocol.Sentinel) {
			return nil, fmt.Errorf("fixed values contain the end-of-stream value: %w", control.ErrInvalidConfig)
		}
		p.total = len(p.fixed)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	p.rng = rand.New(rand.NewPCG(seed, uint64(cfg.ID)))
	p.log = p.log.With().Int32("producer", cfg.ID).Logger()

	r, err := reactor.New(
		reactor.WithCPU(cfg.ReactorCPU),
		reactor.WithLogger(p.log.With().Str("component", "reactor").Logger()),
	)
	if err != nil {
		return nil, fmt.Errorf("producer reactor: %w", err)
	}
	p.reactor = r
	return p, nil
}

// Sent returns the number of records fully written, end of stream included.
func (p *Producer) Sent() int { return int(p.sent.Load()) }

// Run connects and streams until the end-of-stream record is flushed, the
// connection fails or ctx is cancelled.
func (p *Producer) Run(ctx context.Context) error {
	defer p.reactor.Close()
	if err := p.connect(); err != nil {
		return err
	}
	stopOnCancel := context.AfterFunc(ctx, p.reactor.Stop)
	defer stopOnCancel()

	if err := p.reactor.Run(); err != nil {
		p.finish(err)
		return fmt.Errorf("producer run: %w", err)
	}
	if !p.done {
		p.finish(nil)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("producer run: %w", api.ErrClosed)
	}
	return p.err
}

func (p *Producer) connect() error {
	addr, err := tcp.ParseAddr(p.cfg.Host, p.cfg.Port)
	if err != nil {
		return fmt.Errorf("producer connect: %w", err)
	}
	sock, err := tcp.NewSocket()
	if err != nil {
		return fmt.Errorf("producer connect: %w", err)
	}
	state, err := sock.Connect(addr)
	if err != nil {
		sock.Close()
		return fmt.Errorf("producer connect %s: %w", addr, err)
	}
	if err := p.reactor.Register(sock.FD(), p); err != nil {
		sock.Close()
		return fmt.Errorf("producer register: %w", err)
	}
	p.sock = sock
	p.addr = addr
	p.connected = state == tcp.Connected
	p.log.Debug().Stringer("addr", addr).Stringer("state", state).Msg("connecting")
	return nil
}

// OnWritable completes a pending connect, tops up the backlog to one batch
// and sends as much of it as the socket accepts.
func (p *Producer) OnWritable() {
	if p.done {
		return
	}
	if !p.connected {
		if err := p.sock.ConnectError(); err != nil {
			p.finish(fmt.Errorf("producer connect %s: %w", p.addr, err))
			return
		}
		p.connected = true
		p.log.Info().Stringer("addr", p.addr).Int("records", p.total).Msg("connected")
	}

	p.refill()
	if err := p.drain(); err != nil {
		p.finish(peerGone(err))
		return
	}
	if p.eosQueued && p.backlog.Length() == 0 {
		p.log.Info().Int("sent", p.Sent()).Msg("stream complete")
		p.finish(nil)
	}
}

// OnReadable only watches for the server going away; it never sends data.
func (p *Producer) OnReadable() {
	if p.done {
		return
	}
	var scratch [64]byte
	n, err := p.sock.Receive(scratch[:])
	switch {
	case errors.Is(err, io.EOF):
		p.finish(ErrServerClosed)
	case err != nil:
		p.finish(peerGone(err))
	case n > 0:
		p.log.Debug().Int("bytes", n).Msg("discarding unexpected server data")
	}
}

func (p *Producer) refill() {
	for !p.eosQueued && p.backlog.Length() < p.cfg.BatchSize {
		if p.generated < p.total {
			rec := protocol.Record{ProducerID: p.cfg.ID, Value: p.next()}
			p.backlog.Add(protocol.Append(nil, rec))
			p.generated++
			continue
		}
		p.backlog.Add(protocol.Append(nil, protocol.EndOfStream(p.cfg.ID)))
		p.eosQueued = true
	}
	if p.metrics != nil {
		p.metrics.BacklogLength.Set(float64(p.backlog.Length()))
	}
}

// drain sends queued records until the socket would block.
func (p *Producer) drain() error {
	for p.backlog.Length() > 0 {
		head := p.backlog.Peek().([]byte)
		n, err := p.sock.Send(head[p.headSent:])
		if err != nil {
			return err
		}
		if p.metrics != nil && n > 0 {
			p.metrics.BytesSent.Add(float64(n))
		}
		if n == 0 {
			if p.metrics != nil {
				p.metrics.BlockedSends.Inc()
			}
			return nil
		}
		p.headSent += n
		if p.headSent < len(head) {
			if p.metrics != nil {
				p.metrics.PartialSends.Inc()
			}
			return nil
		}
		p.backlog.Remove()
		p.headSent = 0
		p.sent.Add(1)
		if p.metrics != nil {
			p.metrics.RecordsSent.Inc()
			p.metrics.BacklogLength.Set(float64(p.backlog.Length()))
		}
	}
	return nil
}

// peerGone maps a reset or broken pipe to ErrServerClosed.
func peerGone(err error) error {
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return fmt.Errorf("%w: %w", ErrServerClosed, err)
	}
	return err
}

func (p *Producer) next() int64 {
	if p.fixed != nil {
		return p.fixed[p.generated]
	}
	return p.cfg.MinValue + p.rng.Int64N(p.cfg.MaxValue-p.cfg.MinValue+1)
}

// finish releases the socket and stops the loop. The first error wins.
func (p *Producer) finish(err error) {
	if p.done {
		return
	}
	p.done = true
	p.err = err
	if err != nil {
		p.log.Error().Err(err).Int("sent", p.Sent()).Msg("producer failed")
	}
	if p.sock != nil {
		if derr := p.reactor.Deregister(p.sock.FD()); derr != nil {
			p.log.Warn().Err(derr).Msg("deregister failed")
		}
		p.sock.Close()
	}
	p.reactor.Stop()
}
