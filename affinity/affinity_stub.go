//go:build !linux
// +build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.
// Returns error to indicate unavailability.

package affinity

import (
	"errors"
	"fmt"
)

// setAffinityPlatform is a stub for platforms where CPU affinity is not supported.
func setAffinityPlatform(cpuID int) error {
	return errors.New("affinity: not supported on this platform")
}

// Current is not supported on this platform.
func Current() ([]int, error) {
	return nil, errors.New("affinity: not supported on this platform")
}

func errInvalidCPU(cpu int) error {
	return fmt.Errorf("affinity: invalid cpu %d", cpu)
}
