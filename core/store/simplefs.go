package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/balzaczyy/gostore/core/util"
	"github.com/pkg/errors"
)

// store/SimpleFSDirectory.java

/*
A straightforward implementation of FSDirectory using positional
reads. All clones and slices of an input share the same *os.File;
ReadAt never moves a shared cursor, so they need no synchronization
between each other.
*/
type SimpleFSDirectory struct {
	*FSDirectory
}

/*
Create a new SimpleFSDirectory for the named location. A nil
lockFactory means NativeFSLockFactory.
*/
func NewSimpleFSDirectory(path string, lockFactory LockFactory) (d *SimpleFSDirectory, err error) {
	d = &SimpleFSDirectory{}
	if d.FSDirectory, err = newFSDirectory(d, path, lockFactory); err != nil {
		return nil, err
	}
	return d, nil
}

/* Creates an IndexInput for the file with the given name. */
func (d *SimpleFSDirectory) OpenInput(name string, ctx IOContext) (IndexInput, error) {
	if err := d.EnsureOpen(); err != nil {
		return nil, err
	}
	path := filepath.Join(d.path, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, d.wrapError(err, name)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.WithStack(err)
	}
	return newSimpleFSIndexInput(
		fmt.Sprintf("SimpleFSIndexInput(path=\"%v\")", path),
		&sharedFile{File: f}, 0, fi.Size(), bufferSize(ctx)), nil
}

// sharedFile is an *os.File read by an input and all its clones and
// slices. Only the original input closes it.
type sharedFile struct {
	*os.File
	closed int32
}

func (f *sharedFile) close() error {
	if atomic.CompareAndSwapInt32(&f.closed, 0, 1) {
		return errors.WithStack(f.File.Close())
	}
	return nil
}

func (f *sharedFile) isClosed() bool {
	return atomic.LoadInt32(&f.closed) == 1
}

/* Reads bytes with ReadAt on a shared file handle. */
type SimpleFSIndexInput struct {
	*BufferedIndexInput
	file    *sharedFile
	isClone bool
	off     int64 // start offset: non-zero in the slice case
	end     int64 // end offset (start+length)
}

func newSimpleFSIndexInput(desc string, file *sharedFile, off, length int64, bufferSize int) *SimpleFSIndexInput {
	ans := &SimpleFSIndexInput{file: file, off: off, end: off + length}
	ans.BufferedIndexInput = newBufferedIndexInputBySize(ans, desc, bufferSize)
	return ans
}

func (in *SimpleFSIndexInput) Close() error {
	// only close the file if this is not a clone
	if in.isClone {
		return nil
	}
	return in.file.close()
}

func (in *SimpleFSIndexInput) Length() int64 {
	return in.end - in.off
}

func (in *SimpleFSIndexInput) Clone() IndexInput {
	ans := &SimpleFSIndexInput{
		file:    in.file,
		isClone: true,
		off:     in.off,
		end:     in.end,
	}
	ans.BufferedIndexInput = in.BufferedIndexInput.cloneFor(ans)
	return ans
}

func (in *SimpleFSIndexInput) Slice(desc string, offset, length int64) (IndexInput, error) {
	if offset < 0 || length < 0 || offset+length > in.Length() {
		return nil, errors.Errorf("slice() %v out of bounds: offset=%v,length=%v,fileLength=%v: %v",
			desc, offset, length, in.Length(), in)
	}
	ans := newSimpleFSIndexInput(
		fmt.Sprintf("SimpleFSIndexInput(%v in path=\"%v\" slice=%v:%v)",
			desc, in.file.Name(), offset, offset+length),
		in.file, in.off+offset, length, in.bufferSize)
	ans.isClone = true
	return ans, nil
}

func (in *SimpleFSIndexInput) ensureOpen() error {
	if in.file.isClosed() {
		return newAlreadyClosedError("Already closed: %v", in)
	}
	return nil
}

func (in *SimpleFSIndexInput) readInternal(buf []byte) error {
	if err := in.ensureOpen(); err != nil {
		return err
	}
	position := in.off + in.FilePointer()
	if position+int64(len(buf)) > in.end {
		return util.NewEOFError("read past EOF", in)
	}
	n, err := in.file.ReadAt(buf, position)
	if n == len(buf) {
		return nil
	}
	if err == io.EOF {
		return util.NewEOFError(fmt.Sprintf("read past EOF (got %v of %v bytes)", n, len(buf)), in)
	}
	if pe, ok := err.(*os.PathError); ok && pe.Err == os.ErrClosed {
		return newAlreadyClosedError("Already closed: %v", in)
	}
	return errors.Wrapf(err, "%v", in)
}

func (in *SimpleFSIndexInput) seekInternal(pos int64) error {
	if pos > in.Length() {
		return util.NewEOFError(fmt.Sprintf("read past EOF: pos=%v vs length=%v", pos, in.Length()), in)
	}
	return nil
}
