// File: core/buffer/framed.go
// Package buffer implements the fixed-capacity receive buffer used by
// connection handlers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Framed keeps independent read and write cursors over one backing array.
// Space is reclaimed only by Compact; the buffer never grows.

package buffer

import "errors"

var (
	// ErrShortBuffer is returned when fewer bytes are readable than requested.
	ErrShortBuffer = errors.New("buffer: not enough readable bytes")
	// ErrOutOfRange is returned when a cursor would leave [0, capacity].
	ErrOutOfRange = errors.New("buffer: cursor out of range")
)

// Framed is a fixed-capacity byte buffer with read cursor r and write
// cursor w, 0 <= r <= w <= cap. Not safe for concurrent use.
type Framed struct {
	buf []byte
	r   int
	w   int
}

// New allocates a buffer of the given capacity (must be positive).
func New(capacity int) *Framed {
	if capacity <= 0 {
		panic("buffer capacity must be positive")
	}
	return &Framed{buf: make([]byte, capacity)}
}

// Cap returns the fixed capacity.
func (f *Framed) Cap() int { return len(f.buf) }

// ReadableSize is w - r.
func (f *Framed) ReadableSize() int { return f.w - f.r }

// WritableSize is cap - w.
func (f *Framed) WritableSize() int { return len(f.buf) - f.w }

// ReadPos returns the read cursor.
func (f *Framed) ReadPos() int { return f.r }

// WritePos returns the write cursor.
func (f *Framed) WritePos() int { return f.w }

// WritableRegion returns the free tail [w, cap). Bytes written there become
// visible only after CommitWrite.
func (f *Framed) WritableRegion() []byte { return f.buf[f.w:] }

// CommitWrite advances w by n.
func (f *Framed) CommitWrite(n int) error {
	if n < 0 || n > f.WritableSize() {
		return ErrOutOfRange
	}
	f.w += n
	return nil
}

// Peek returns the unread span [r, w) without consuming it. The slice is
// invalidated by the next Compact or write.
func (f *Framed) Peek() []byte { return f.buf[f.r:f.w] }

// Skip consumes n readable bytes.
func (f *Framed) Skip(n int) error {
	if n < 0 || n > f.ReadableSize() {
		return ErrOutOfRange
	}
	f.r += n
	return nil
}

// ReadFixed copies exactly len(dst) bytes into dst and advances r. The
// cursors are untouched when fewer bytes are available.
func (f *Framed) ReadFixed(dst []byte) error {
	if len(dst) > f.ReadableSize() {
		return ErrShortBuffer
	}
	f.r += copy(dst, f.buf[f.r:f.w])
	return nil
}

// Put appends p, compacting first if the tail is too small. It reports
// false, leaving the buffer unchanged, when p cannot fit.
func (f *Framed) Put(p []byte) bool {
	if f.WritableSize() < len(p) {
		f.Compact()
		if f.WritableSize() < len(p) {
			return false
		}
	}
	f.w += copy(f.buf[f.w:], p)
	return true
}

// Compact moves the unread span to offset 0.
func (f *Framed) Compact() {
	if f.r == 0 {
		return
	}
	n := copy(f.buf, f.buf[f.r:f.w])
	f.r = 0
	f.w = n
}

// Full compacts and reports whether fewer than minFree bytes remain writable.
func (f *Framed) Full(minFree int) bool {
	f.Compact()
	return f.WritableSize() < minFree
}

// Reset discards all content.
func (f *Framed) Reset() {
	f.r = 0
	f.w = 0
}
