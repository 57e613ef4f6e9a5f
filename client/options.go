// File: client/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"github.com/momentics/hioload-sort/control"
	"github.com/rs/zerolog"
)

// Option customizes a Producer.
type Option func(*Producer)

// WithLogger sets the producer logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Producer) { p.log = l }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *control.ProducerMetrics) Option {
	return func(p *Producer) { p.metrics = m }
}

// WithValues sends exactly vals instead of random values. MaxCount is
// ignored, so an empty list sends only the end-of-stream record. Values must
// not contain the end-of-stream value.
func WithValues(vals ...int64) Option {
	return func(p *Producer) { p.fixed = append(make([]int64, 0, len(vals)), vals...) }
}
