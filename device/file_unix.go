//go:build unix

package device

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// preadFull reads until p is full or end of file and returns the bytes read.
func preadFull(f *os.File, p []byte, off int64) (int, error) {
	fd := int(f.Fd())
	n := 0
	for n < len(p) {
		m, err := unix.Pread(fd, p[n:], off+int64(n))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return n, err
		}
		if m == 0 {
			break
		}
		n += m
	}
	return n, nil
}

func pwriteFull(f *os.File, p []byte, off int64) error {
	fd := int(f.Fd())
	n := 0
	for n < len(p) {
		m, err := unix.Pwrite(fd, p[n:], off+int64(n))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		if m == 0 {
			return io.ErrShortWrite
		}
		n += m
	}
	return nil
}

func datasync(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}
