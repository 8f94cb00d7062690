package ports

// SectorSource reads sector ranges from the medium being rescued.
type SectorSource interface {
	// ReadSectors fills buf with the sectors starting at start. len(buf) is
	// a whole number of sectors. Any error marks the whole range unread.
	ReadSectors(buf []byte, start uint64) error
}

// SectorSink receives recovered sectors at the same offsets they were read from.
type SectorSink interface {
	// WriteSectors writes buf at sector start.
	WriteSectors(buf []byte, start uint64) error

	// Sync flushes written sectors to stable storage.
	Sync() error
}

// BufferAllocator provides I/O buffers. Direct I/O requires memory aligned
// to the device's logical block size.
type BufferAllocator interface {
	Alloc(size int) ([]byte, error)
	Free(buf []byte) error
}
