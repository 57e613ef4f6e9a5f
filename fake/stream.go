// Package fake
// Author: momentics <momentics@gmail.com>
//
// Scripted stand-ins for sockets, sinks and reactors used by unit tests.

package fake

import (
	"errors"
	"io"
)

// Chunk is one scripted Receive result. A nil Data with nil Err means
// would-block.
type Chunk struct {
	Data []byte
	Err  error
}

// Stream replays chunks on Receive. Once the script is exhausted it reports
// io.EOF. Data larger than the caller's buffer is split across calls.
type Stream struct {
	Descriptor int
	Script     []Chunk
	Closes     int
	pending    []byte
}

// NewStream builds a stream on fd replaying chunks.
func NewStream(fd int, chunks ...Chunk) *Stream {
	return &Stream{Descriptor: fd, Script: chunks}
}

func (s *Stream) FD() int { return s.Descriptor }

// Receive copies the next scripted bytes into p.
func (s *Stream) Receive(p []byte) (int, error) {
	if s.Closes > 0 {
		return 0, errors.New("fake: receive on closed stream")
	}
	if len(s.pending) == 0 {
		if len(s.Script) == 0 {
			return 0, io.EOF
		}
		next := s.Script[0]
		s.Script = s.Script[1:]
		if next.Err != nil {
			return 0, next.Err
		}
		s.pending = next.Data
		if len(s.pending) == 0 {
			return 0, nil
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Close counts invocations.
func (s *Stream) Close() error {
	s.Closes++
	return nil
}
