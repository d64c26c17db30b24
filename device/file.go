package device

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
)

// FileOptions configures a File device.
type FileOptions struct {
	// BlockSize in bytes. Required.
	BlockSize int
	// Blocks bounds the device; 0 means unbounded, growing the file on write.
	Blocks uint32
	// Sync flushes file data to stable storage after every write.
	Sync bool
	// Create creates the file if it does not exist.
	Create bool
}

// File is a disk backed by a regular file. Block n lives at offset
// n*BlockSize; regions past the end of the file read as zeros.
type File struct {
	f      *os.File
	opt    FileOptions
	reads  atomic.Uint64
	writes atomic.Uint64
}

// OpenFile opens path as a block device.
func OpenFile(path string, opt FileOptions) (*File, error) {
	if opt.BlockSize <= 0 {
		return nil, fmt.Errorf("device: open %s: block size must be > 0", path)
	}
	flag := os.O_RDWR
	if opt.Create {
		flag |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if err != nil {
		return nil, fmt.Errorf("device: open %s: %w", path, err)
	}
	return &File{f: f, opt: opt}, nil
}

// Transfer implements bcache.Driver.
func (d *File) Transfer(ctx context.Context, _ uint32, blockno uint32, data []byte, write bool) error {
	if d.opt.Blocks != 0 && blockno >= d.opt.Blocks {
		return fmt.Errorf("%w: block %d of %d", ErrOutOfRange, blockno, d.opt.Blocks)
	}
	if len(data) != d.opt.BlockSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBlockSize, len(data), d.opt.BlockSize)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	off := int64(blockno) * int64(d.opt.BlockSize)
	if write {
		if err := pwriteFull(d.f, data, off); err != nil {
			return fmt.Errorf("device: write block %d: %w", blockno, err)
		}
		if d.opt.Sync {
			if err := datasync(d.f); err != nil {
				return fmt.Errorf("device: sync block %d: %w", blockno, err)
			}
		}
		d.writes.Add(1)
		return nil
	}

	n, err := preadFull(d.f, data, off)
	if err != nil {
		return fmt.Errorf("device: read block %d: %w", blockno, err)
	}
	clear(data[n:])
	d.reads.Add(1)
	return nil
}

// Reads returns the number of completed read transfers.
func (d *File) Reads() uint64 { return d.reads.Load() }

// Writes returns the number of completed write transfers.
func (d *File) Writes() uint64 { return d.writes.Load() }

// Close flushes and closes the backing file.
func (d *File) Close() error {
	if err := datasync(d.f); err != nil {
		_ = d.f.Close()
		return err
	}
	return d.f.Close()
}
