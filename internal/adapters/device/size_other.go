//go:build !linux

package device

import (
	"io"
	"os"
)

func openFlags(direct bool) int { return 0 }

func deviceSize(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if fi.Mode()&os.ModeDevice == 0 {
		return fi.Size(), nil
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	_, _ = f.Seek(0, io.SeekStart)
	return size, nil
}

func logicalSectorSize(f *os.File) uint32 { return 0 }
