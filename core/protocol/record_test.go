package protocol_test

import (
	"bytes"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/momentics/hioload-sort/core/buffer"
	"github.com/momentics/hioload-sort/core/protocol"
)

func TestRecordRoundTripExtremes(t *testing.T) {
	ids := []int32{math.MinInt32, -1, 1, 42, math.MaxInt32}
	values := []int64{math.MinInt64, -1, 1, 1000, math.MaxInt64}
	for _, id := range ids {
		for _, v := range values {
			in := protocol.Record{ProducerID: id, Value: v}
			var b [protocol.RecordLen]byte
			if err := protocol.Encode(b[:], in); err != nil {
				t.Fatalf("encode %+v: %v", in, err)
			}
			out, err := protocol.Decode(b[:])
			if err != nil {
				t.Fatalf("decode %+v: %v", in, err)
			}
			if out != in {
				t.Fatalf("round trip mismatch: got=%+v want=%+v", out, in)
			}
		}
	}
}

func TestRecordRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		v := int64(rng.Uint64())
		if v == protocol.Sentinel {
			continue
		}
		in := protocol.Record{ProducerID: int32(rng.Uint32()), Value: v}
		out, err := protocol.Decode(protocol.Append(nil, in))
		if err != nil || out != in {
			t.Fatalf("round trip mismatch: got=%+v err=%v want=%+v", out, err, in)
		}
	}
}

func TestRecordWireIsBigEndian(t *testing.T) {
	got := protocol.Append(nil, protocol.Record{ProducerID: 0x01020304, Value: 0x05060708090A0B0C})
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	if !bytes.Equal(got, want) {
		t.Fatalf("wire bytes = %v, want %v", got, want)
	}
}

func TestNewRecordRejectsSentinel(t *testing.T) {
	if _, err := protocol.NewRecord(3, 0); !errors.Is(err, protocol.ErrReservedValue) {
		t.Fatalf("expected ErrReservedValue, got %v", err)
	}
	r, err := protocol.NewRecord(3, 9)
	if err != nil || r.IsSentinel() {
		t.Fatalf("unexpected record %+v err=%v", r, err)
	}
	if !protocol.EndOfStream(3).IsSentinel() {
		t.Fatal("EndOfStream must be a sentinel")
	}
}

func TestDecodeShort(t *testing.T) {
	if _, err := protocol.Decode(make([]byte, protocol.RecordLen-1)); !errors.Is(err, protocol.ErrShortRecord) {
		t.Fatalf("expected ErrShortRecord, got %v", err)
	}
	if err := protocol.Encode(make([]byte, 3), protocol.Record{}); !errors.Is(err, protocol.ErrShortRecord) {
		t.Fatalf("expected ErrShortRecord on encode, got %v", err)
	}
}

func TestReadFromFramedWaitsForWholeRecord(t *testing.T) {
	buf := buffer.New(64)
	wire := protocol.Append(nil, protocol.Record{ProducerID: 7, Value: 500})
	wire = protocol.Append(wire, protocol.Record{ProducerID: 7, Value: 42})

	// First record plus a partial second one.
	if !buf.Put(wire[:protocol.RecordLen+5]) {
		t.Fatal("put failed")
	}
	rec, ok := protocol.Read(buf)
	if !ok || rec.Value != 500 {
		t.Fatalf("first read = %+v ok=%v", rec, ok)
	}
	if _, ok := protocol.Read(buf); ok {
		t.Fatal("partial record must not decode")
	}
	if buf.ReadableSize() != 5 {
		t.Fatalf("partial bytes consumed: readable=%d", buf.ReadableSize())
	}
	buf.Put(wire[protocol.RecordLen+5:])
	rec, ok = protocol.Read(buf)
	if !ok || rec.Value != 42 || rec.ProducerID != 7 {
		t.Fatalf("second read = %+v ok=%v", rec, ok)
	}
}
