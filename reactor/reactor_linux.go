//go:build linux
// +build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor - Linux epoll implementation.

package reactor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-sort/affinity"
	"github.com/momentics/hioload-sort/api"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	readMask  = unix.EPOLLIN | unix.EPOLLERR | unix.EPOLLHUP | unix.EPOLLRDHUP
	writeMask = unix.EPOLLOUT | unix.EPOLLERR
)

// registration is the reactor's non-owning view of a handler.
type registration struct {
	fd       int
	interest api.EventType
	onRead   func()
	onWrite  func()
}

// Reactor implements api.Reactor using level-triggered epoll.
type Reactor struct {
	epfd     int
	wakefd   int
	handlers map[int]*registration
	events   []unix.EpollEvent
	cpu      int
	log      zerolog.Logger

	// wakeMu orders wake writes against Close so Stop never writes to a
	// recycled descriptor.
	wakeMu  sync.Mutex
	stopped atomic.Bool
	running atomic.Bool
	closed  atomic.Bool
}

var _ api.Reactor = (*Reactor)(nil)

// New creates the epoll instance and its wake eventfd.
func New(opts ...Option) (*Reactor, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll create: %w", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return nil, fmt.Errorf("eventfd create: %w", err)
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, &ev); err != nil {
		unix.Close(wakefd)
		unix.Close(epfd)
		return nil, fmt.Errorf("epoll ctl add wake: %w", err)
	}

	return &Reactor{
		epfd:     epfd,
		wakefd:   wakefd,
		handlers: make(map[int]*registration),
		events:   make([]unix.EpollEvent, o.maxEvents),
		cpu:      o.cpu,
		log:      o.log,
	}, nil
}

// Register adds fd to the epoll interest set. The interest is computed once
// from the callbacks h implements.
func (r *Reactor) Register(fd int, h api.Handler) error {
	if fd < 0 || h == nil {
		return fmt.Errorf("register fd %d: %w", fd, api.ErrInvalidArgument)
	}
	if _, ok := r.handlers[fd]; ok {
		return fmt.Errorf("register fd %d: %w", fd, api.ErrAlreadyExists)
	}
	reg := &registration{fd: fd, interest: api.InterestOf(h)}
	if reg.interest == 0 {
		return fmt.Errorf("register fd %d: handler has no callbacks: %w", fd, api.ErrInvalidArgument)
	}

	ev := unix.EpollEvent{Fd: int32(fd)}
	if rh, ok := h.(api.ReadHandler); ok {
		ev.Events |= unix.EPOLLIN | unix.EPOLLRDHUP
		reg.onRead = rh.OnReadable
	}
	if wh, ok := h.(api.WriteHandler); ok {
		ev.Events |= unix.EPOLLOUT
		reg.onWrite = wh.OnWritable
	}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll ctl add fd %d: %w", fd, err)
	}
	r.handlers[fd] = reg
	r.log.Debug().Int("fd", fd).Stringer("interest", reg.interest).Msg("registered")
	return nil
}

// Deregister removes fd from the interest set. Unknown descriptors are a
// no-op, and a descriptor the kernel already dropped (closed) is not an error.
func (r *Reactor) Deregister(fd int) error {
	if fd < 0 {
		return nil
	}
	if _, ok := r.handlers[fd]; !ok {
		return nil
	}
	delete(r.handlers, fd)
	err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EBADF) {
		r.log.Warn().Err(err).Int("fd", fd).Msg("epoll ctl del failed")
		return fmt.Errorf("epoll ctl del fd %d: %w", fd, err)
	}
	r.log.Debug().Int("fd", fd).Msg("deregistered")
	return nil
}

// Len returns the number of registered descriptors.
func (r *Reactor) Len() int { return len(r.handlers) }

// Run dispatches events until Stop. Wait failures other than a closed
// reactor are logged and the loop keeps going.
func (r *Reactor) Run() error {
	if r.closed.Load() {
		return fmt.Errorf("reactor run: %w", api.ErrClosed)
	}
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	if r.cpu >= 0 {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := affinity.SetAffinity(r.cpu); err != nil {
			r.log.Warn().Err(err).Int("cpu", r.cpu).Msg("cpu pinning failed, continuing unpinned")
		}
	}

	for !r.stopped.Load() {
		n, err := unix.EpollWait(r.epfd, r.events, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if errors.Is(err, unix.EBADF) {
				return fmt.Errorf("epoll wait: %w", api.ErrClosed)
			}
			r.log.Error().Err(err).Msg("epoll wait failed")
			continue
		}
		for i := 0; i < n; i++ {
			r.dispatch(r.events[i])
		}
	}
	return nil
}

func (r *Reactor) dispatch(ev unix.EpollEvent) {
	fd := int(ev.Fd)
	if fd == r.wakefd {
		r.drainWake()
		return
	}
	reg, ok := r.handlers[fd]
	if !ok {
		return
	}
	if ev.Events&readMask != 0 && reg.onRead != nil {
		r.invoke(fd, reg.onRead)
	}
	// The read callback may have deregistered fd.
	if ev.Events&writeMask != 0 && reg.onWrite != nil && r.handlers[fd] == reg {
		r.invoke(fd, reg.onWrite)
	}
}

// invoke runs cb, recovering panics to keep the loop alive.
func (r *Reactor) invoke(fd int, cb func()) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Int("fd", fd).Interface("panic", p).Msg("handler panicked")
		}
	}()
	cb()
}

// Stop makes Run return after the current dispatch cycle. It wakes a
// blocked wait and may be called from any goroutine, any number of times.
func (r *Reactor) Stop() {
	r.stopped.Store(true)
	r.wakeMu.Lock()
	defer r.wakeMu.Unlock()
	if r.closed.Load() {
		return
	}
	var one [8]byte
	binary.NativeEndian.PutUint64(one[:], 1)
	if _, err := unix.Write(r.wakefd, one[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		r.log.Warn().Err(err).Msg("reactor wake failed")
	}
}

// Stopped reports whether Stop was called.
func (r *Reactor) Stopped() bool { return r.stopped.Load() }

func (r *Reactor) drainWake() {
	var buf [8]byte
	for {
		if _, err := unix.Read(r.wakefd, buf[:]); err != nil {
			return
		}
	}
}

// Close releases the epoll and eventfd descriptors. Registered handlers are
// not closed; their owners are responsible for that.
func (r *Reactor) Close() error {
	r.wakeMu.Lock()
	defer r.wakeMu.Unlock()
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.handlers = make(map[int]*registration)
	werr := unix.Close(r.wakefd)
	eerr := unix.Close(r.epfd)
	if eerr != nil {
		return fmt.Errorf("close epoll: %w", eerr)
	}
	if werr != nil {
		return fmt.Errorf("close eventfd: %w", werr)
	}
	return nil
}
