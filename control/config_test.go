package control_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/momentics/hioload-sort/control"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "cfg.toml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadServerConfigOverridesDefaults(t *testing.T) {
	p := writeFile(t, `
port = 9000
recv_buffer_size = 4096

[log]
level = "debug"
`)
	cfg, err := control.LoadServerConfig(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9000 || cfg.RecvBufferSize != 4096 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.Backlog != control.DefaultBacklog || cfg.Log.Format != "console" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	p := writeFile(t, "port = 1\nbogus = true\n")
	_, err := control.LoadServerConfig(p)
	if !errors.Is(err, control.ErrInvalidConfig) {
		t.Fatalf("want ErrInvalidConfig, got %v", err)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := control.LoadProducerConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != control.DefaultProducerConfig() {
		t.Fatalf("got %+v", cfg)
	}
}

func TestServerValidate(t *testing.T) {
	base := control.DefaultServerConfig()
	base.Port = 8080
	cases := []struct {
		name string
		mut  func(*control.ServerConfig)
	}{
		{"port", func(c *control.ServerConfig) { c.Port = 70000 }},
		{"backlog", func(c *control.ServerConfig) { c.Backlog = 0 }},
		{"buffer", func(c *control.ServerConfig) { c.RecvBufferSize = 12 }},
		{"events", func(c *control.ServerConfig) { c.MaxEvents = 0 }},
	}
	for _, tc := range cases {
		c := base
		tc.mut(&c)
		if err := c.Validate(); !errors.Is(err, control.ErrInvalidConfig) {
			t.Errorf("%s: want ErrInvalidConfig, got %v", tc.name, err)
		}
	}
}

func TestProducerValidate(t *testing.T) {
	c := control.DefaultProducerConfig()
	c.ID = 1
	c.Port = 8080
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	c.MinValue = -5
	if err := c.Validate(); !errors.Is(err, control.ErrInvalidConfig) {
		t.Fatalf("range containing 0 accepted: %v", err)
	}
	c.MinValue, c.MaxValue = -10, -1
	if err := c.Validate(); err != nil {
		t.Fatalf("negative range should validate: %v", err)
	}
	c.Port = 0
	if err := c.Validate(); err == nil {
		t.Fatal("port 0 accepted for producer")
	}
}
