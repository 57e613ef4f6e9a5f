// File: api/events.go
// Package api defines core event types for hioload-sort.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// EventType is a bit set of readiness conditions.
type EventType uint8

const (
	EventRead EventType = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// Has reports whether all bits of other are set.
func (e EventType) Has(other EventType) bool { return e&other == other }

func (e EventType) String() string {
	if e == 0 {
		return "none"
	}
	s := ""
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if e&EventRead != 0 {
		add("read")
	}
	if e&EventWrite != 0 {
		add("write")
	}
	if e&EventError != 0 {
		add("error")
	}
	if e&EventHangup != 0 {
		add("hangup")
	}
	return s
}
