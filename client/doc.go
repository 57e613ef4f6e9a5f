// Package client
// Author: momentics <momentics@gmail.com>
//
// Producer ("exchange") side of hioload-sort. A Producer connects to the
// aggregation server, streams generated values as fixed-size records on
// every writable event and terminates the stream with the end-of-stream
// record.
package client
