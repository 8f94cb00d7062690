//go:build unix

package device

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapAllocator hands out anonymous mappings. They are page aligned, which
// satisfies the alignment O_DIRECT requires.
type MmapAllocator struct{}

// Alloc allocates size bytes. Free must be passed the same slice.
func (MmapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("alloc %d bytes: size must be positive", size)
	}
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}
	return mem, nil
}

// Free unmaps memory returned by Alloc.
func (MmapAllocator) Free(mem []byte) error {
	return unix.Munmap(mem)
}
