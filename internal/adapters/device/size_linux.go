//go:build linux

package device

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

func openFlags(direct bool) int {
	if direct {
		return unix.O_DIRECT
	}
	return 0
}

// deviceSize returns the size of a file or block device in bytes.
func deviceSize(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if fi.Mode()&os.ModeDevice == 0 {
		return fi.Size(), nil
	}

	var size uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size)))
	if errno == 0 {
		return int64(size), nil
	}

	// Fall back to seeking for devices that do not answer BLKGETSIZE64.
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("cannot determine device size: %v", errno)
	}
	_, _ = f.Seek(0, io.SeekStart)
	return end, nil
}

func logicalSectorSize(f *os.File) uint32 {
	n, err := unix.IoctlGetUint32(int(f.Fd()), unix.BLKSSZGET)
	if err != nil {
		return 0
	}
	return n
}
