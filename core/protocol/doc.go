// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the fixed-size record wire format exchanged between producers
// and the aggregation server.
//
// Each record is 12 bytes with no length prefix:
//   - producer id, int32, big-endian
//   - value, int64, big-endian
//
// A value of 0 is reserved as the end-of-stream sentinel, so a producer can
// never ship a literal zero as payload.
package protocol
