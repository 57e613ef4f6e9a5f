// File: server/types.go
// Package server implements the sorting aggregation server: one listening
// socket, one reactor and one max-heap shared by every producer connection.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"errors"

	"github.com/momentics/hioload-sort/core/protocol"
)

var (
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("server already started")
	// ErrAbnormalTermination is returned by Run when at least one producer
	// disconnected before sending its end-of-stream record.
	ErrAbnormalTermination = errors.New("server: producers disconnected before end of stream")
)

// Stream is the byte source a Conn reads from. *tcp.Socket implements it.
// Receive returns (0, nil) when no data is available and io.EOF once the
// peer has closed.
type Stream interface {
	FD() int
	Receive(p []byte) (int, error)
	Close() error
}

// MessageSink consumes decoded records. It takes ownership of a Conn handed
// back through Detach and must close it.
type MessageSink interface {
	OnMessage(rec protocol.Record, c *Conn)
	Flush()
	Detach(c *Conn, cause error)
}

// Hooks observe server events. All hooks run on the reactor goroutine.
type Hooks struct {
	OnAccept func(c *Conn)
	OnDump   func(values []int64)
	OnDetach func(c *Conn, cause error)
}

// Stats is a point-in-time view of the server counters.
type Stats struct {
	Accepted int64
	Active   int64
	Stopped  int64
	Aborted  int64
	Records  int64
	Flushes  int64
	HeapSize int64
}
