// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_stub.go) guarded by build tags.

package affinity

// SetAffinity pins the calling OS thread to a given logical CPU on supported
// platforms. The caller must hold runtime.LockOSThread for the pin to stick
// to its goroutine.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return errInvalidCPU(cpuID)
	}
	return setAffinityPlatform(cpuID)
}
