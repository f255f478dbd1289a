package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// store/MMapDirectory.java

/*
Default max chunk size: 1 GiB on 64-bit platforms, 256 MiB on 32-bit
ones, to avoid running out of address space.
*/
var DEFAULT_MAX_CHUNK_SIZE = func() int {
	if strconv.IntSize == 64 {
		return 1 << 30
	}
	return 1 << 28
}()

/*
File-based Directory implementation that uses mmap for reading, and
FSIndexOutput for writing.

NOTE: memory mapping uses up a portion of the virtual memory address
space in your process equal to the size of the file being mapped.
Files are mapped in chunks of at most maxChunkSize bytes, so that a
mapping never has to cover a huge contiguous range. The mappings of
an input are released when the original input is closed; its clones
and slices fail with AlreadyClosedError from then on.
*/
type MMapDirectory struct {
	*FSDirectory
	chunkSizePower uint
}

/*
Create a new MMapDirectory for the named location, using
DEFAULT_MAX_CHUNK_SIZE. A nil lockFactory means NativeFSLockFactory.
*/
func NewMMapDirectory(path string, lockFactory LockFactory) (*MMapDirectory, error) {
	return NewMMapDirectoryWithChunkSize(path, lockFactory, DEFAULT_MAX_CHUNK_SIZE)
}

/*
Create a new MMapDirectory for the named location, mapping files in
chunks of at most maxChunkSize bytes. maxChunkSize must be a positive
power of two; other values are rounded down to one.
*/
func NewMMapDirectoryWithChunkSize(path string, lockFactory LockFactory, maxChunkSize int) (d *MMapDirectory, err error) {
	if maxChunkSize <= 0 {
		return nil, errors.Errorf("Maximum chunk size for mmap must be >0, got %v", maxChunkSize)
	}
	d = &MMapDirectory{}
	for maxChunkSize > 1 {
		maxChunkSize >>= 1
		d.chunkSizePower++
	}
	if d.FSDirectory, err = newFSDirectory(d, path, lockFactory); err != nil {
		return nil, err
	}
	return d, nil
}

/* Returns the current mmap chunk size. */
func (d *MMapDirectory) MaxChunkSize() int {
	return 1 << d.chunkSizePower
}

/* Creates an IndexInput for the file with the given name. */
func (d *MMapDirectory) OpenInput(name string, ctx IOContext) (IndexInput, error) {
	if err := d.EnsureOpen(); err != nil {
		return nil, err
	}
	path := filepath.Join(d.path, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, d.wrapError(err, name)
	}
	// the mappings stay valid after the descriptor is closed
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	chunks, cleaner, err := mapChunks(f, fi.Size(), d.chunkSizePower, ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot map %v", path)
	}
	return newByteBufferIndexInput(
		fmt.Sprintf("MMapIndexInput(path=\"%v\")", path),
		chunks, fi.Size(), d.chunkSizePower, true, cleaner), nil
}
