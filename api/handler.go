// File: api/handler.go
// Package api defines the reactor handler capabilities.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Handler is anything that can be registered with a reactor. The concrete
// callbacks it supports are discovered through ReadHandler and WriteHandler;
// a handler implementing neither is rejected at registration.
type Handler interface{}

// ReadHandler is notified when its descriptor is readable, errored or hung up.
type ReadHandler interface {
	OnReadable()
}

// WriteHandler is notified when its descriptor is writable or errored.
type WriteHandler interface {
	OnWritable()
}

// InterestOf derives the event interest of h from the callbacks it implements.
func InterestOf(h Handler) EventType {
	var ev EventType
	if _, ok := h.(ReadHandler); ok {
		ev |= EventRead
	}
	if _, ok := h.(WriteHandler); ok {
		ev |= EventWrite
	}
	return ev
}
