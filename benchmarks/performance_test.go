// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-sort components.

package benchmarks

import (
	"math/rand/v2"
	"testing"

	"github.com/momentics/hioload-sort/core/buffer"
	"github.com/momentics/hioload-sort/core/maxheap"
	"github.com/momentics/hioload-sort/core/protocol"
	"github.com/momentics/hioload-sort/fake"
	"github.com/momentics/hioload-sort/server"
)

// BenchmarkHeapPush measures inserts into a growing heap.
func BenchmarkHeapPush(b *testing.B) {
	r := rand.New(rand.NewPCG(1, 2))
	h := maxheap.New[int64]()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Push(r.Int64N(1000) + 1)
	}
}

// BenchmarkHeapCloneDrain measures one dump of a 50k-value heap.
func BenchmarkHeapCloneDrain(b *testing.B) {
	r := rand.New(rand.NewPCG(3, 4))
	vals := make([]int64, 50000)
	for i := range vals {
		vals[i] = r.Int64N(1000) + 1
	}
	h := maxheap.Build(vals)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = h.Clone().Drain()
	}
}

// BenchmarkRecordCodec measures encode plus decode through a framed buffer.
func BenchmarkRecordCodec(b *testing.B) {
	buf := buffer.New(1024)
	var raw [protocol.RecordLen]byte
	rec := protocol.Record{ProducerID: 1, Value: 42}
	b.SetBytes(protocol.RecordLen)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = protocol.Encode(raw[:], rec)
		if !buf.Put(raw[:]) {
			b.Fatal("buffer full")
		}
		if _, ok := protocol.Read(buf); !ok {
			b.Fatal("record lost")
		}
	}
}

// BenchmarkConnDecode measures the readable path of one connection fed
// 1 KiB chunks.
func BenchmarkConnDecode(b *testing.B) {
	var chunk []byte
	for len(chunk)+protocol.RecordLen <= 1020 {
		chunk = protocol.Append(chunk, protocol.Record{ProducerID: 1, Value: 7})
	}
	script := make([]fake.Chunk, b.N)
	for i := range script {
		script[i] = fake.Chunk{Data: chunk}
	}
	sink := &fake.Sink{}
	c := server.NewConn(fake.NewStream(3, script...), 1024, sink)
	b.SetBytes(int64(len(chunk)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.OnReadable()
		sink.Records = sink.Records[:0]
	}
}
