//go:build linux || darwin

package arena

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// mapAnon maps size zeroed bytes of anonymous private memory.
func mapAnon(size int) ([]byte, func() error, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("arena: mmap %d bytes: %w", size, err)
	}
	release := func() error {
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data, release, nil
}
