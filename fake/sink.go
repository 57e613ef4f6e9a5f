// File: fake/sink.go
// Author: momentics <momentics@gmail.com>

package fake

import (
	"github.com/momentics/hioload-sort/core/protocol"
	"github.com/momentics/hioload-sort/server"
)

// Sink records everything a server.Conn hands it.
type Sink struct {
	Records  []protocol.Record
	Flushes  int
	Detached []error
	// OnRecord, if set, runs after each record is stored.
	OnRecord func(rec protocol.Record, c *server.Conn)
}

var _ server.MessageSink = (*Sink)(nil)

func (s *Sink) OnMessage(rec protocol.Record, c *server.Conn) {
	s.Records = append(s.Records, rec)
	if s.OnRecord != nil {
		s.OnRecord(rec, c)
	}
}

func (s *Sink) Flush() { s.Flushes++ }

// Detach closes c like a real sink would.
func (s *Sink) Detach(c *server.Conn, cause error) {
	s.Detached = append(s.Detached, cause)
	c.Close()
}
