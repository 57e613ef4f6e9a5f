// File: internal/logging/logging.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// zerolog setup shared by the server and producer binaries. Logs go to
// stderr so stdout stays reserved for flush dumps.

package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// EnvLogLevel overrides the configured level when set.
const EnvLogLevel = "HIOLOAD_SORT_LOG_LEVEL"

// Profile selects defaults for runtime or test use.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Options configures New.
type Options struct {
	Profile Profile
	Level   string // trace|debug|info|warn|error|disabled
	Format  string // console|json
	App     string
	Out     io.Writer
}

// New builds a logger. Unknown levels fall back to the profile default.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	level := zerolog.InfoLevel
	if opts.Profile == ProfileTest {
		level = zerolog.DebugLevel
	}
	if lvl, ok := ParseLevel(opts.Level); ok {
		level = lvl
	}
	if lvl, ok := ParseLevel(os.Getenv(EnvLogLevel)); ok {
		level = lvl
	}

	var w io.Writer = out
	if !strings.EqualFold(opts.Format, "json") {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.Profile == ProfileTest,
		}
	}
	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if opts.App != "" {
		ctx = ctx.Str("app", opts.App)
	}
	return ctx.Logger()
}

// ParseLevel maps a textual level to zerolog. The bool is false for empty
// or unrecognized input.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// Component tags l with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
