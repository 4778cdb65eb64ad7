//go:build !linux

package wiznet

import "fmt"

func pinToCPU(cpu int) error {
	return fmt.Errorf("%w: cpu pinning (cpu %d)", ErrNotSupported, cpu)
}
