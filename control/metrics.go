// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for the server and producer. Each instance owns its
// registry so several servers can coexist in one process (tests).

package control

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "hioload_sort"

// Close reasons used as the "reason" label.
const (
	ReasonCompleted = "completed"
	ReasonAborted   = "aborted"
	ReasonError     = "error"
	ReasonShutdown  = "shutdown"
)

// ServerMetrics holds the aggregation server collectors.
type ServerMetrics struct {
	Registry *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	ConnectionsActive   prometheus.Gauge
	ConnectionsClosed   *prometheus.CounterVec
	BytesReceived       prometheus.Counter
	RecordsReceived     prometheus.Counter
	SentinelsReceived   prometheus.Counter
	Flushes             prometheus.Counter
	FlushDuration       prometheus.Histogram
	HeapSize            prometheus.Gauge
}

// NewServerMetrics builds and registers the server collectors.
func NewServerMetrics() *ServerMetrics {
	reg := prometheus.NewRegistry()
	m := &ServerMetrics{
		Registry: reg,
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server",
			Name: "connections_accepted_total",
			Help: "Producer connections accepted.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "server",
			Name: "connections_active",
			Help: "Producer connections currently tracked.",
		}),
		ConnectionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server",
			Name: "connections_closed_total",
			Help: "Producer connections released, by reason.",
		}, []string{"reason"}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server",
			Name: "bytes_received_total",
			Help: "Bytes read from producer sockets.",
		}),
		RecordsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server",
			Name: "records_received_total",
			Help: "Payload records merged into the heap.",
		}),
		SentinelsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server",
			Name: "sentinels_received_total",
			Help: "End-of-stream records observed.",
		}),
		Flushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "server",
			Name: "flushes_total",
			Help: "Sorted dumps emitted.",
		}),
		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "server",
			Name:    "flush_duration_seconds",
			Help:    "Time to clone, drain and write one dump.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		HeapSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "server",
			Name: "heap_size",
			Help: "Values held in the live heap.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ConnectionsAccepted, m.ConnectionsActive, m.ConnectionsClosed,
		m.BytesReceived, m.RecordsReceived, m.SentinelsReceived,
		m.Flushes, m.FlushDuration, m.HeapSize,
	)
	return m
}

// ProducerMetrics holds the producer collectors.
type ProducerMetrics struct {
	Registry *prometheus.Registry

	RecordsSent   prometheus.Counter
	BytesSent     prometheus.Counter
	PartialSends  prometheus.Counter
	BlockedSends  prometheus.Counter
	BacklogLength prometheus.Gauge
}

// NewProducerMetrics builds and registers the producer collectors.
func NewProducerMetrics() *ProducerMetrics {
	reg := prometheus.NewRegistry()
	m := &ProducerMetrics{
		Registry: reg,
		RecordsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "producer",
			Name: "records_sent_total",
			Help: "Records fully written to the socket, sentinel included.",
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "producer",
			Name: "bytes_sent_total",
			Help: "Bytes written to the socket.",
		}),
		PartialSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "producer",
			Name: "partial_sends_total",
			Help: "Sends that wrote only part of a record.",
		}),
		BlockedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "producer",
			Name: "blocked_sends_total",
			Help: "Sends that hit would-block.",
		}),
		BacklogLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "producer",
			Name: "backlog_records",
			Help: "Encoded records waiting to be sent.",
		}),
	}
	reg.MustRegister(m.RecordsSent, m.BytesSent, m.PartialSends, m.BlockedSends, m.BacklogLength)
	return m
}
