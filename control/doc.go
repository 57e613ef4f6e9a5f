// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and admin introspection for hioload-sort.
//
// Provides:
//   - TOML-backed server and producer configuration with defaults and validation
//   - Prometheus collectors on a per-instance registry
//   - Debug probes for cross-goroutine state inspection
//   - A gin admin endpoint serving /healthz, /metrics and /debug/probes
package control
