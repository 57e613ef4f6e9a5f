// File: core/protocol/record.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Big-endian record codec. Both encode and decode paths convert explicitly so
// producers and the server interoperate regardless of host byte order.

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/momentics/hioload-sort/core/buffer"
)

var (
	// ErrShortRecord is returned when fewer than RecordLen bytes are supplied.
	ErrShortRecord = errors.New("protocol: short record")
	// ErrReservedValue is returned when a payload value collides with Sentinel.
	ErrReservedValue = errors.New("protocol: value 0 is reserved for end of stream")
)

// Record is one producer value.
type Record struct {
	ProducerID int32
	Value      int64
}

// NewRecord builds a payload record, rejecting the reserved sentinel value.
func NewRecord(producerID int32, value int64) (Record, error) {
	if value == Sentinel {
		return Record{}, fmt.Errorf("producer %d: %w", producerID, ErrReservedValue)
	}
	return Record{ProducerID: producerID, Value: value}, nil
}

// EndOfStream returns the sentinel record for producerID.
func EndOfStream(producerID int32) Record {
	return Record{ProducerID: producerID, Value: Sentinel}
}

// IsSentinel reports whether r terminates its producer's stream.
func (r Record) IsSentinel() bool { return r.Value == Sentinel }

// Encode writes r into dst[:RecordLen].
func Encode(dst []byte, r Record) error {
	if len(dst) < RecordLen {
		return ErrShortRecord
	}
	binary.BigEndian.PutUint32(dst[0:ProducerIDLen], uint32(r.ProducerID))
	binary.BigEndian.PutUint64(dst[ProducerIDLen:RecordLen], uint64(r.Value))
	return nil
}

// Append appends the encoding of r to dst.
func Append(dst []byte, r Record) []byte {
	var b [RecordLen]byte
	_ = Encode(b[:], r)
	return append(dst, b[:]...)
}

// Decode parses the first RecordLen bytes of src.
func Decode(src []byte) (Record, error) {
	if len(src) < RecordLen {
		return Record{}, ErrShortRecord
	}
	return Record{
		ProducerID: int32(binary.BigEndian.Uint32(src[0:ProducerIDLen])),
		Value:      int64(binary.BigEndian.Uint64(src[ProducerIDLen:RecordLen])),
	}, nil
}

// Read consumes one record from buf. It reports false, consuming nothing,
// while fewer than RecordLen bytes are buffered.
func Read(buf *buffer.Framed) (Record, bool) {
	var raw [RecordLen]byte
	if err := buf.ReadFixed(raw[:]); err != nil {
		return Record{}, false
	}
	rec, _ := Decode(raw[:])
	return rec, true
}
