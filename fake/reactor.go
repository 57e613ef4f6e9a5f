// File: fake/reactor.go
// Author: momentics <momentics@gmail.com>

package fake

import (
	"sync/atomic"

	"github.com/momentics/hioload-sort/api"
)

// Reactor is an in-memory api.Reactor. Events are injected with Fire.
type Reactor struct {
	Handlers map[int]api.Handler
	stop     chan struct{}
	stopped  atomic.Bool
}

var _ api.Reactor = (*Reactor)(nil)

// NewReactor creates an empty fake reactor.
func NewReactor() *Reactor {
	return &Reactor{Handlers: make(map[int]api.Handler), stop: make(chan struct{})}
}

func (r *Reactor) Register(fd int, h api.Handler) error {
	if fd < 0 || api.InterestOf(h) == 0 {
		return api.ErrInvalidArgument
	}
	if _, ok := r.Handlers[fd]; ok {
		return api.ErrAlreadyExists
	}
	r.Handlers[fd] = h
	return nil
}

func (r *Reactor) Deregister(fd int) error {
	delete(r.Handlers, fd)
	return nil
}

// Run blocks until Stop.
func (r *Reactor) Run() error {
	<-r.stop
	return nil
}

func (r *Reactor) Stop() {
	if r.stopped.CompareAndSwap(false, true) {
		close(r.stop)
	}
}

// Fire delivers ev to the handler on fd the way the epoll reactor does:
// read first, then write if the handler is still registered.
func (r *Reactor) Fire(fd int, ev api.EventType) bool {
	h, ok := r.Handlers[fd]
	if !ok {
		return false
	}
	if ev&(api.EventRead|api.EventError|api.EventHangup) != 0 {
		if rh, ok := h.(api.ReadHandler); ok {
			rh.OnReadable()
		}
	}
	if ev.Has(api.EventWrite) && r.Handlers[fd] == h {
		if wh, ok := h.(api.WriteHandler); ok {
			wh.OnWritable()
		}
	}
	return true
}
