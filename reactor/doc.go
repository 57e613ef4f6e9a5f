// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the single-threaded, level-triggered epoll event
// loop that drives the aggregation server and the producer client.
//
// Handlers are registered per descriptor; the loop blocks in epoll_wait and
// invokes OnReadable/OnWritable on the loop goroutine. Stop is the only
// method that may be called from other goroutines: it raises a flag and
// wakes the loop through an eventfd.
package reactor
