// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Defines the abstract interface for the readiness-driven event loop used by
// the aggregation server and the producer client.

package api

// Reactor dispatches readiness notifications for registered descriptors.
// Register, Deregister and Run must be called from the loop goroutine (or
// before Run starts); Stop may be called from anywhere.
type Reactor interface {
	// Register associates fd with h. Interest is fixed for the lifetime of
	// the registration and derived with InterestOf.
	Register(fd int, h Handler) error

	// Deregister removes fd. Unknown or invalid descriptors are a no-op.
	Deregister(fd int) error

	// Run blocks dispatching events until Stop is called.
	Run() error

	// Stop asks Run to return.
	Stop()
}
