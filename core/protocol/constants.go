// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Record wire format constants

package protocol

const (
	// Field widths
	ProducerIDLen = 4
	ValueLen      = 8

	// RecordLen is the fixed on-wire size of one record.
	RecordLen = ProducerIDLen + ValueLen

	// Sentinel marks the end of a producer's stream.
	Sentinel int64 = 0
)
