//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import "github.com/momentics/hioload-sort/api"

// Reactor is unavailable on this platform.
type Reactor struct{}

var _ api.Reactor = (*Reactor)(nil)

// New returns api.ErrNotSupported.
func New(opts ...Option) (*Reactor, error) { return nil, api.ErrNotSupported }

func (r *Reactor) Register(int, api.Handler) error { return api.ErrNotSupported }
func (r *Reactor) Deregister(int) error { return nil }
func (r *Reactor) Len() int { return 0 }
func (r *Reactor) Run() error { return api.ErrNotSupported }
func (r *Reactor) Stop() {}
func (r *Reactor) Stopped() bool { return true }
func (r *Reactor) Close() error { return nil }
