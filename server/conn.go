// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Conn turns readable events on one producer socket into decoded records.

package server

import (
	"errors"
	"io"
	"net/netip"

	"github.com/google/uuid"
	"github.com/momentics/hioload-sort/api"
	"github.com/momentics/hioload-sort/core/buffer"
	"github.com/momentics/hioload-sort/core/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Conn is one producer connection. It is owned by the reactor goroutine.
type Conn struct {
	id     uuid.UUID
	fd     int
	stream Stream
	buf    *buffer.Framed
	sink   MessageSink
	peer   netip.AddrPort
	log    zerolog.Logger

	bytesIn prometheus.Counter

	stopped bool
	closed  bool
	records int64
	bytes   int64
}

// ConnOption customizes NewConn.
type ConnOption func(*Conn)

// WithPeer records the remote address for logging.
func WithPeer(p netip.AddrPort) ConnOption {
	return func(c *Conn) { c.peer = p }
}

// WithConnLogger sets the connection logger.
func WithConnLogger(l zerolog.Logger) ConnOption {
	return func(c *Conn) { c.log = l }
}

// WithBytesCounter counts received bytes into ctr.
func WithBytesCounter(ctr prometheus.Counter) ConnOption {
	return func(c *Conn) { c.bytesIn = ctr }
}

// NewConn wraps stream with a receive buffer of bufSize bytes. bufSize must
// exceed protocol.RecordLen.
func NewConn(stream Stream, bufSize int, sink MessageSink, opts ...ConnOption) *Conn {
	c := &Conn{
		id:     uuid.New(),
		fd:     stream.FD(),
		stream: stream,
		buf:    buffer.New(bufSize),
		sink:   sink,
		log:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With().Str("conn", c.id.String()).Int("fd", c.fd).Logger()
	return c
}

// ID returns the connection id.
func (c *Conn) ID() uuid.UUID { return c.id }

// FD returns the descriptor the Conn was registered under. It stays valid
// after Close so the sink can still find the Conn by key.
func (c *Conn) FD() int { return c.fd }

// Peer returns the remote address, if known.
func (c *Conn) Peer() netip.AddrPort { return c.peer }

// Stopped reports whether the end-of-stream record was seen.
func (c *Conn) Stopped() bool { return c.stopped }

// MarkStopped records end of stream.
func (c *Conn) MarkStopped() { c.stopped = true }

// Records returns the number of records decoded so far, sentinel included.
func (c *Conn) Records() int64 { return c.records }

// Bytes returns the number of bytes received.
func (c *Conn) Bytes() int64 { return c.bytes }

// Closed reports whether Close was called.
func (c *Conn) Closed() bool { return c.closed }

// Logger returns the connection-scoped logger.
func (c *Conn) Logger() *zerolog.Logger { return &c.log }

// Close releases the socket. Safe to call more than once.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.stream.Close()
}

// OnReadable performs one receive and delivers every complete record.
// Partial records stay buffered until the next event.
func (c *Conn) OnReadable() {
	if c.closed {
		return
	}
	if c.buf.Full(protocol.RecordLen) {
		c.log.Warn().Int("buffered", c.buf.ReadableSize()).Msg("receive buffer exhausted")
		c.sink.Detach(c, api.ErrBufferFull)
		return
	}

	n, err := c.stream.Receive(c.buf.WritableRegion())
	if err != nil {
		if errors.Is(err, io.EOF) {
			if pending := c.buf.ReadableSize(); pending > 0 {
				c.log.Debug().Int("dropped", pending).Msg("peer closed with a partial record")
			}
		} else {
			c.log.Error().Err(err).Msg("receive failed")
		}
		c.sink.Detach(c, err)
		return
	}
	if n == 0 {
		return
	}
	if err := c.buf.CommitWrite(n); err != nil {
		c.sink.Detach(c, err)
		return
	}
	c.bytes += int64(n)
	if c.bytesIn != nil {
		c.bytesIn.Add(float64(n))
	}

	decoded := 0
	for !c.closed {
		rec, ok := protocol.Read(c.buf)
		if !ok {
			break
		}
		decoded++
		c.records++
		c.sink.OnMessage(rec, c)
	}
	if decoded > 0 && !c.closed {
		c.sink.Flush()
	}
}

var _ api.ReadHandler = (*Conn)(nil)
