//go:build !unix

package device

// MmapAllocator falls back to the Go heap where anonymous mappings are not
// available. Direct I/O is never enabled on these systems.
type MmapAllocator struct{}

func (MmapAllocator) Alloc(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func (MmapAllocator) Free(mem []byte) error {
	return nil
}
