package store

import (
	"fmt"
	"io"

	"github.com/balzaczyy/gostore/core/util"
)

// store/Directory.java

/*
A Directory is a flat list of files. Files may be written once, when
they are created. Once a file is created it may only be opened for
read, or deleted. Random access is permitted both when reading and
writing.

Implementations must be safe for concurrent use of the namespace
(ListAll, CreateOutput, DeleteFile, ...) from multiple goroutines.
The inputs and outputs they return are not.

Directory locking is implemented by an instance of LockFactory, and
can be changed for each Directory instance using SetLockFactory().
*/
type Directory interface {
	io.Closer
	// Files related methods
	ListAll() (paths []string, err error)
	// Returns true iff a file with the given name exists.
	FileExists(name string) (bool, error)
	// Removes an existing file in the directory.
	DeleteFile(name string) error
	// Returns the length of a file in the directory. This method
	// follows the following contract:
	// 	- Must return FileNotFoundError if the file doesn't exists.
	// 	- Returns a value >=0 if the file exists, which specifies its
	// length.
	FileLength(name string) (n int64, err error)
	// Creates a new, empty file in the directory with the given name.
	// Returns a stream writing this file. An existing file of the same
	// name is silently overwritten.
	CreateOutput(name string, ctx IOContext) (out IndexOutput, err error)
	// Ensure that any writes to these files are moved to stable
	// storage. Lucene uses this to properly commit changes to the
	// index, to prevent a machine/OS crash from corrupting the index.
	//
	// NOTE: Clients may call this method for same files over and over
	// again, so some impls might optimize for that. For other impls
	// the operation can be a noop, for various reasons.
	Sync(names []string) error
	// Renames source to dest, replacing dest if it exists.
	RenameFile(source, dest string) error
	// Returns a stream reading an existing file. Must return
	// FileNotFoundError if the file doesn't exist.
	OpenInput(name string, context IOContext) (in IndexInput, err error)
	// Returns a stream reading an existing file, computing checksum as it reads
	OpenChecksumInput(name string, ctx IOContext) (ChecksumIndexInput, error)
	// Creates an IndexInputSlicer for the given file name. It allows
	// other Directory implementations to efficiently open one or more
	// sliced IndexInput instances from a single file handle. The
	// underlying file handle is kept open until the slicer is closed.
	CreateSlicer(name string, ctx IOContext) (IndexInputSlicer, error)
	// Locks related methods
	MakeLock(name string) (Lock, error)
	ClearLock(name string) error
	SetLockFactory(lockFactory LockFactory)
	LockFactory() LockFactory
	// Returns a string identifier that uniquely differentiates this
	// Directory instance from other Directory instances. This ID
	// should be the same if two Directory instances (even in different
	// processes and/or on different machines) are considered "the same
	// index". This is how locking "scopes" to the right index.
	LockID() string
	// Utilities
	Copy(to Directory, src, dest string, ctx IOContext) error
	String() string
}

/*
Allows to create one or more sliced IndexInput instances from a single
file handle. Some Directory implementations may be able to efficiently
map slices of a file into memory when only certain parts of a file
are required.
*/
type IndexInputSlicer interface {
	io.Closer
	// Returns an IndexInput slice starting at the given offset with
	// the given length.
	OpenSlice(desc string, offset, length int64) (IndexInput, error)
}

type DirectoryImplSPI interface {
	OpenInput(string, IOContext) (IndexInput, error)
	LockFactory() LockFactory
}

/*
DirectoryImpl supplies the operations every Directory implements the
same way on top of OpenInput(): checksum inputs, slicers, copying.
*/
type DirectoryImpl struct {
	spi DirectoryImplSPI
}

func NewDirectoryImpl(spi DirectoryImplSPI) *DirectoryImpl {
	return &DirectoryImpl{spi}
}

func (d *DirectoryImpl) OpenChecksumInput(name string, ctx IOContext) (ChecksumIndexInput, error) {
	return openChecksumInput(d.spi, name, ctx)
}

func (d *DirectoryImpl) CreateSlicer(name string, ctx IOContext) (IndexInputSlicer, error) {
	return createSlicer(d.spi, name, ctx)
}

/*
Return a string identifier that uniquely differentiates
this Directory instance from other Directory instances.
*/
func (d *DirectoryImpl) LockID() string {
	return fmt.Sprintf("%p", d.spi)
}

func (d *DirectoryImpl) String() string {
	return fmt.Sprintf("%p lockFactory=%v", d.spi, d.spi.LockFactory())
}

/*
Copies the file src to 'to' under the new file name dest.

If you want to copy the entire source directory to the destination
one, you can do so like this:

		var to Directory // the directory to copy to
		names, _ := dir.ListAll()
		for _, file := range names {
			dir.Copy(to, file, newFile, IO_CONTEXT_DEFAULT)
			// newFile can be either file, or a new name
		}

NOTE: this method does not check whether dest exists and will
overwrite it if it does.
*/
func (d *DirectoryImpl) Copy(to Directory, src, dest string, ctx IOContext) error {
	return copyFile(d.spi, to, src, dest, ctx)
}

type inputOpener interface {
	OpenInput(string, IOContext) (IndexInput, error)
}

func openChecksumInput(d inputOpener, name string, ctx IOContext) (ChecksumIndexInput, error) {
	in, err := d.OpenInput(name, ctx)
	if err != nil {
		return nil, err
	}
	return NewBufferedChecksumIndexInput(in), nil
}

func copyFile(from inputOpener, to Directory, src, dest string, ctx IOContext) (err error) {
	var os IndexOutput
	var is IndexInput
	created := false
	defer func() {
		if err == nil {
			err = util.Close(os, is)
		}
		if err != nil {
			util.CloseWhileSuppressingError(os, is)
			// only a dest this copy created is partial; best-effort,
			// the copy failure is the error to report
			if created {
				to.DeleteFile(dest)
			}
		}
	}()

	if is, err = from.OpenInput(src, ctx); err != nil {
		return err
	}
	if os, err = to.CreateOutput(dest, ctx); err != nil {
		return err
	}
	created = true
	return os.CopyBytes(is, is.Length())
}

func createSlicer(d inputOpener, name string, ctx IOContext) (IndexInputSlicer, error) {
	base, err := d.OpenInput(name, ctx)
	if err != nil {
		return nil, err
	}
	return &indexInputSlicer{base}, nil
}

/* Default slicer: slices one opened input, which it owns. */
type indexInputSlicer struct {
	base IndexInput
}

func (s *indexInputSlicer) OpenSlice(desc string, offset, length int64) (IndexInput, error) {
	return s.base.Slice(fmt.Sprintf("%v [slice=%v]", s.base, desc), offset, length)
}

func (s *indexInputSlicer) Close() error {
	return s.base.Close()
}
