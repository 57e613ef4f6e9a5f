// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral reactor options and errors.

package reactor

import (
	"errors"

	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned when Run is entered twice.
var ErrAlreadyRunning = errors.New("reactor: already running")

// DefaultMaxEvents bounds the events returned by one wait call.
const DefaultMaxEvents = 64

type options struct {
	maxEvents int
	cpu       int
	log       zerolog.Logger
}

// Option customizes New.
type Option func(*options)

// WithMaxEvents sets the per-wait event batch size.
func WithMaxEvents(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxEvents = n
		}
	}
}

// WithCPU pins the loop thread to cpu while Run executes. Negative disables.
func WithCPU(cpu int) Option {
	return func(o *options) { o.cpu = cpu }
}

// WithLogger sets the logger for wait and callback failures.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

func defaultOptions() options {
	return options{
		maxEvents: DefaultMaxEvents,
		cpu:       -1,
		log:       zerolog.Nop(),
	}
}
