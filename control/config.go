// control/config.go
// Author: momentics <momentics@gmail.com>
//
// TOML configuration for the aggregation server and the producer client.
// Files are optional: Load* starts from the defaults and only overrides keys
// present in the file.

package control

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/momentics/hioload-sort/core/protocol"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	DefaultBacklog        = 5
	DefaultRecvBufferSize = 1024
	DefaultMaxCount       = 50000
	DefaultBatchSize      = 5
	DefaultMinValue       = 1
	DefaultMaxValue       = 1000
)

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig configures the aggregation server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// Backlog is the listen(2) queue length.
	Backlog int `toml:"backlog"`
	// RecvBufferSize is the per-connection framed buffer capacity.
	RecvBufferSize int `toml:"recv_buffer_size"`
	// SocketRecvBuffer sets SO_RCVBUF on accepted sockets; 0 keeps the kernel default.
	SocketRecvBuffer int `toml:"socket_recv_buffer"`
	// ReactorCPU pins the event loop thread; negative disables pinning.
	ReactorCPU  int       `toml:"reactor_cpu"`
	MaxEvents   int       `toml:"max_events"`
	MetricsAddr string    `toml:"metrics_addr"`
	Log         LogConfig `toml:"log"`
}

// ProducerConfig configures one producer (exchange) client.
type ProducerConfig struct {
	ID        int32  `toml:"id"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	MaxCount  int    `toml:"max_count"`
	BatchSize int    `toml:"batch_size"`
	MinValue  int64  `toml:"min_value"`
	MaxValue  int64  `toml:"max_value"`
	// Seed fixes the value generator; 0 seeds from the runtime.
	Seed        uint64    `toml:"seed"`
	ReactorCPU  int       `toml:"reactor_cpu"`
	MetricsAddr string    `toml:"metrics_addr"`
	Log         LogConfig `toml:"log"`
}

// DefaultServerConfig listens on any address with backlog 5 and 1 KiB
// receive buffers.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Backlog:        DefaultBacklog,
		RecvBufferSize: DefaultRecvBufferSize,
		ReactorCPU:     -1,
		MaxEvents:      64,
		Log:            LogConfig{Level: "info", Format: "console"},
	}
}

// DefaultProducerConfig sends 50000 values in [1, 1000] to localhost.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Host:       "localhost",
		MaxCount:   DefaultMaxCount,
		BatchSize:  DefaultBatchSize,
		MinValue:   DefaultMinValue,
		MaxValue:   DefaultMaxValue,
		ReactorCPU: -1,
		Log:        LogConfig{Level: "info", Format: "console"},
	}
}

// LoadServerConfig reads path over the defaults. An empty path returns the
// defaults unvalidated so flags can still fill in the port.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path == "" {
		return cfg, nil
	}
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

// LoadProducerConfig reads path over the defaults.
func LoadProducerConfig(path string) (ProducerConfig, error) {
	cfg := DefaultProducerConfig()
	if path == "" {
		return cfg, nil
	}
	if err := loadToml(path, &cfg); err != nil {
		return ProducerConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	md, err := toml.DecodeFile(path, out)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config %s: unknown key %q: %w", path, undecoded[0].String(), ErrInvalidConfig)
	}
	return nil
}

// Validate checks ranges. The receive buffer must hold at least one record
// or a connection could never make progress.
func (c ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range: %w", c.Port, ErrInvalidConfig)
	}
	if c.Backlog <= 0 {
		return fmt.Errorf("backlog must be positive, got %d: %w", c.Backlog, ErrInvalidConfig)
	}
	if c.RecvBufferSize <= protocol.RecordLen {
		return fmt.Errorf("recv_buffer_size %d must exceed record size %d: %w",
			c.RecvBufferSize, protocol.RecordLen, ErrInvalidConfig)
	}
	if c.SocketRecvBuffer < 0 {
		return fmt.Errorf("socket_recv_buffer must not be negative: %w", ErrInvalidConfig)
	}
	if c.MaxEvents <= 0 {
		return fmt.Errorf("max_events must be positive, got %d: %w", c.MaxEvents, ErrInvalidConfig)
	}
	return nil
}

// Validate checks ranges. The value range must exclude the sentinel.
func (c ProducerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range: %w", c.Port, ErrInvalidConfig)
	}
	if c.MaxCount < 0 {
		return fmt.Errorf("max_count must not be negative: %w", ErrInvalidConfig)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d: %w", c.BatchSize, ErrInvalidConfig)
	}
	if c.MinValue > c.MaxValue {
		return fmt.Errorf("min_value %d > max_value %d: %w", c.MinValue, c.MaxValue, ErrInvalidConfig)
	}
	if c.MinValue <= protocol.Sentinel && c.MaxValue >= protocol.Sentinel {
		return fmt.Errorf("value range [%d, %d] contains the end-of-stream value: %w",
			c.MinValue, c.MaxValue, ErrInvalidConfig)
	}
	return nil
}
