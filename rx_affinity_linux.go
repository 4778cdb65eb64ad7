//go:build linux

package wiznet

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCPU locks the calling goroutine to its thread and restricts the
// thread to cpu. The goroutine keeps the thread until it exits.
func pinToCPU(cpu int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("set affinity to cpu %d: %w", cpu, err)
	}
	return nil
}
