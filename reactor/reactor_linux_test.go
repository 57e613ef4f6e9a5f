//go:build linux

package reactor_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-sort/api"
	"github.com/momentics/hioload-sort/reactor"
	"golang.org/x/sys/unix"
)

func newReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("new reactor: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func pipe(t *testing.T) (rd, wr int) {
	t.Helper()
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0], p[1]
}

func runAsync(r *reactor.Reactor) <-chan error {
	done := make(chan error, 1)
	go func() { done <- r.Run() }()
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reactor did not stop")
	}
}

type readFunc func()

func (f readFunc) OnReadable() { f() }

type writeFunc func()

func (f writeFunc) OnWritable() { f() }

type noCallbacks struct{}

func TestRegisterValidation(t *testing.T) {
	r := newReactor(t)
	rd, _ := pipe(t)

	if err := r.Register(rd, noCallbacks{}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if err := r.Register(-1, readFunc(func() {})); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for bad fd, got %v", err)
	}
	if err := r.Register(rd, readFunc(func() {})); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(rd, readFunc(func() {})); !errors.Is(err, api.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestDeregisterIdempotent(t *testing.T) {
	r := newReactor(t)
	rd, _ := pipe(t)
	if err := r.Deregister(12345); err != nil {
		t.Fatalf("unknown fd: %v", err)
	}
	if err := r.Deregister(-1); err != nil {
		t.Fatalf("invalid fd: %v", err)
	}
	if err := r.Register(rd, readFunc(func() {})); err != nil {
		t.Fatalf("register: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := r.Deregister(rd); err != nil {
			t.Fatalf("deregister #%d: %v", i, err)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("len = %d", r.Len())
	}
}

func TestReadableDispatch(t *testing.T) {
	r := newReactor(t)
	rd, wr := pipe(t)

	var got []byte
	err := r.Register(rd, readFunc(func() {
		buf := make([]byte, 16)
		n, err := unix.Read(rd, buf)
		if err == nil && n > 0 {
			got = append(got, buf[:n]...)
		}
		if len(got) >= 3 {
			r.Stop()
		}
	}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	done := runAsync(r)
	if _, err := unix.Write(wr, []byte("abc")); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitDone(t, done)
	if string(got) != "abc" {
		t.Fatalf("read %q", got)
	}
}

func TestWritableDispatch(t *testing.T) {
	r := newReactor(t)
	_, wr := pipe(t)
	calls := 0
	if err := r.Register(wr, writeFunc(func() {
		calls++
		if calls == 3 {
			r.Stop()
		}
	})); err != nil {
		t.Fatalf("register: %v", err)
	}
	waitDone(t, runAsync(r))
	if calls < 3 {
		t.Fatalf("writable fired %d times", calls)
	}
}

// Stop from another goroutine must unblock a wait with no pending events.
func TestStopWakesIdleWait(t *testing.T) {
	r := newReactor(t)
	rd, _ := pipe(t)
	if err := r.Register(rd, readFunc(func() {})); err != nil {
		t.Fatalf("register: %v", err)
	}
	done := runAsync(r)
	time.Sleep(20 * time.Millisecond)
	r.Stop()
	waitDone(t, done)
	if !r.Stopped() {
		t.Fatal("Stopped() = false after Stop")
	}
}

func TestHandlerPanicDoesNotKillLoop(t *testing.T) {
	r := newReactor(t)
	rd, wr := pipe(t)
	calls := 0
	if err := r.Register(rd, readFunc(func() {
		calls++
		buf := make([]byte, 1)
		unix.Read(rd, buf)
		if calls == 1 {
			panic("boom")
		}
		r.Stop()
	})); err != nil {
		t.Fatalf("register: %v", err)
	}
	done := runAsync(r)
	unix.Write(wr, []byte("xy"))
	waitDone(t, done)
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestRunTwiceAndAfterClose(t *testing.T) {
	r, err := reactor.New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	r.Stop()
	if err := r.Run(); err != nil {
		t.Fatalf("run after stop: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := r.Run(); !errors.Is(err, api.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

// Stop racing Close must never touch the eventfd after it is released.
func TestStopConcurrentWithClose(t *testing.T) {
	for i := 0; i < 50; i++ {
		r, err := reactor.New()
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < 20; k++ {
					r.Stop()
				}
			}()
		}
		if err := r.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		wg.Wait()
		if !r.Stopped() {
			t.Fatal("Stopped() = false after Stop")
		}
	}
}
