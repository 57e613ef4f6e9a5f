// File: server/options.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"io"

	"github.com/momentics/hioload-sort/control"
	"github.com/rs/zerolog"
)

// Option customizes server initialization.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithOutput redirects sorted dumps. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Server) {
		if w != nil {
			s.out = w
		}
	}
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *control.ServerMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHooks installs event observers.
func WithHooks(h Hooks) Option {
	return func(s *Server) { s.hooks = h }
}
