// Package device reads and writes sector ranges on files and block devices.
package device

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Options control how devices are opened.
type Options struct {
	// SectorSize is the size of one sector in bytes.
	SectorSize uint32

	// Direct bypasses the page cache (O_DIRECT on Linux). Buffers passed to
	// ReadSectors and WriteSectors must then be aligned, see MmapAllocator.
	Direct bool
}

// ReadError reports a failed sector range read.
type ReadError struct {
	Start   uint64
	Sectors uint64
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read sectors [%d, %d): %v", e.Start, e.Start+e.Sectors, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Input is the medium being rescued. It implements ports.SectorSource.
type Input struct {
	f          *os.File
	size       int64
	sectorSize int64
}

// OpenInput opens path read-only and determines its size.
func OpenInput(path string, opts Options) (*Input, error) {
	if opts.SectorSize == 0 {
		return nil, fmt.Errorf("open input %s: sector size must be positive", path)
	}
	f, err := os.OpenFile(path, os.O_RDONLY|openFlags(opts.Direct), 0)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	size, err := deviceSize(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("size input %s: %w", path, err)
	}
	return &Input{f: f, size: size, sectorSize: int64(opts.SectorSize)}, nil
}

// Size returns the input length in bytes.
func (i *Input) Size() int64 { return i.size }

// Sectors returns the number of sectors covering the input, counting a
// trailing partial sector as a whole one.
func (i *Input) Sectors() uint64 {
	return uint64((i.size + i.sectorSize - 1) / i.sectorSize)
}

// PhysicalLength returns the input length rounded up to whole sectors.
func (i *Input) PhysicalLength() int64 {
	return int64(i.Sectors()) * i.sectorSize
}

// ReadSectors fills buf from sector start. A short read that stops exactly
// at the end of a non-aligned input succeeds with the tail zero-filled.
func (i *Input) ReadSectors(buf []byte, start uint64) error {
	off := int64(start) * i.sectorSize
	n, err := i.f.ReadAt(buf, off)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) && n > 0 && off+int64(n) >= i.size {
		clear(buf[n:])
		return nil
	}
	return &ReadError{Start: start, Sectors: uint64(int64(len(buf)) / i.sectorSize), Err: err}
}

// Close closes the input.
func (i *Input) Close() error { return i.f.Close() }

// Output is the image being written. It implements ports.SectorSink.
type Output struct {
	f          *os.File
	sectorSize int64
}

// OpenOutput opens or creates path for reading and writing.
func OpenOutput(path string, opts Options) (*Output, error) {
	if opts.SectorSize == 0 {
		return nil, fmt.Errorf("open output %s: sector size must be positive", path)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|openFlags(opts.Direct), 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return &Output{f: f, sectorSize: int64(opts.SectorSize)}, nil
}

// EnsureLength extends the output to at least length bytes. It never
// shrinks the output.
func (o *Output) EnsureLength(length int64) error {
	current, err := deviceSize(o.f)
	if err != nil {
		return fmt.Errorf("size output: %w", err)
	}
	if current >= length {
		return nil
	}
	if err := o.f.Truncate(length); err != nil {
		return fmt.Errorf("extend output to %d bytes: %w", length, err)
	}
	return nil
}

// WriteSectors writes buf at sector start.
func (o *Output) WriteSectors(buf []byte, start uint64) error {
	if _, err := o.f.WriteAt(buf, int64(start)*o.sectorSize); err != nil {
		return err
	}
	return nil
}

// Sync flushes the output to stable storage.
func (o *Output) Sync() error { return o.f.Sync() }

// Close closes the output.
func (o *Output) Close() error { return o.f.Close() }

// SourceInfo describes a probed input.
type SourceInfo struct {
	Size        int64
	BlockDevice bool

	// LogicalSectorSize is the device's logical block size, or 0 when it
	// cannot be determined (regular files, non-Linux systems).
	LogicalSectorSize uint32
}

// Probe inspects path without keeping it open.
func Probe(path string) (SourceInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return SourceInfo{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return SourceInfo{}, err
	}
	size, err := deviceSize(f)
	if err != nil {
		return SourceInfo{}, err
	}

	info := SourceInfo{Size: size, BlockDevice: fi.Mode()&os.ModeDevice != 0}
	if info.BlockDevice {
		info.LogicalSectorSize = logicalSectorSize(f)
	}
	return info, nil
}
