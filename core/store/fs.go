package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// store/FSDirectory.java

type FSDirectorySPI interface {
	OpenInput(string, IOContext) (IndexInput, error)
}

/*
Base class for Directory implementations that store index files in
the file system. There are currently two core subclasses:

	- SimpleFSDirectory is a straightforward implementation using
	positional reads (ReadAt) on a shared *os.File.
	- MMapDirectory uses memory-mapped IO when reading. This is a good
	choice if you have plenty of virtual memory relative to your index
	size.

Unfortunately, because of system peculiarities, there is no single
overall best implementation. Therefore, we've added the
OpenFSDirectory() method, to allow Lucene to choose the best
FSDirectory implementation given your environment, and the known
limitations of each implementation.

The locking implementation is by default NativeFSLockFactory, but
can be changed by passing in a custom LockFactory instance.
*/
type FSDirectory struct {
	*DirectoryImpl
	*BaseDirectory
	FSDirectorySPI
	sync.Locker
	path           string
	staleFiles     map[string]bool // files written, but not yet sync'ed
	staleFilesLock *sync.Mutex
}

func newFSDirectory(spi FSDirectorySPI, path string, lockFactory LockFactory) (d *FSDirectory, err error) {
	if path, err = canonicalPath(path); err != nil {
		return nil, err
	}
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		return nil, newNoSuchDirectoryError("file '%v' exists but is not a directory", path)
	}

	d = &FSDirectory{
		Locker:         &sync.Mutex{},
		path:           path,
		staleFiles:     make(map[string]bool),
		staleFilesLock: &sync.Mutex{},
		FSDirectorySPI: spi,
	}
	d.DirectoryImpl = NewDirectoryImpl(d)
	d.BaseDirectory = NewBaseDirectory(d)

	// new ctors use always NativeFSLockFactory as default:
	if lockFactory == nil {
		lockFactory = NewNativeFSLockFactory("")
	}
	d.SetLockFactory(lockFactory)
	log.Debugf("Opened %v", d)
	return d, nil
}

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

/*
Creates an FSDirectory instance, trying to pick the best
implementation given the current environment: MMapDirectory on 64-bit
platforms supporting mmap, SimpleFSDirectory otherwise.
*/
func OpenFSDirectory(path string) (d Directory, err error) {
	return OpenFSDirectoryWithLockFactory(path, nil)
}

func OpenFSDirectoryWithLockFactory(path string, lockFactory LockFactory) (Directory, error) {
	if MMAP_SUPPORTED && strconv.IntSize == 64 {
		return NewMMapDirectory(path, lockFactory)
	}
	return NewSimpleFSDirectory(path, lockFactory)
}

func (d *FSDirectory) SetLockFactory(lockFactory LockFactory) {
	d.BaseDirectory.SetLockFactory(lockFactory)

	// for filesystem based LockFactory, delete the lockPrefix, if the
	// locks are placed in index dir. If no index dir is given, set
	// ourselves
	if lf, ok := lockFactory.(fsLockFactory); ok {
		if lf.LockDir() == "" {
			lf.setLockDir(d.path)
			lf.SetLockPrefix("")
		} else if lf.LockDir() == d.path {
			lf.SetLockPrefix("")
		}
	}
}

/*
Lists all files (not subdirectories) in the directory. This method
never returns nil.
*/
func FSDirectoryListAll(path string) (paths []string, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, newNoSuchDirectoryError("directory '%v' does not exist", path)
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !fi.IsDir() {
		return nil, newNoSuchDirectoryError("file '%v' exists but is not a directory", path)
	}

	infos, err := f.Readdir(0)
	if err != nil {
		return nil, errors.Wrapf(err, "directory '%v' could not be listed", path)
	}
	// Exclude subdirs
	paths = make([]string, 0, len(infos))
	for _, info := range infos {
		if !info.IsDir() {
			paths = append(paths, info.Name())
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (d *FSDirectory) ListAll() (paths []string, err error) {
	if err = d.EnsureOpen(); err != nil {
		return nil, err
	}
	return FSDirectoryListAll(d.path)
}

func (d *FSDirectory) FileExists(name string) (bool, error) {
	if err := d.EnsureOpen(); err != nil {
		return false, err
	}
	_, err := os.Stat(filepath.Join(d.path, name))
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, errors.WithStack(err)
}

// Returns the length in bytes of a file in the directory.
func (d *FSDirectory) FileLength(name string) (n int64, err error) {
	if err = d.EnsureOpen(); err != nil {
		return 0, err
	}
	fi, err := os.Stat(filepath.Join(d.path, name))
	if err != nil {
		return 0, d.wrapError(err, name)
	}
	return fi.Size(), nil
}

func (d *FSDirectory) wrapError(err error, name string) error {
	if os.IsNotExist(err) {
		return newFileNotFoundError(name, d)
	}
	return errors.Wrapf(err, "%v in %v", name, d.path)
}

// Removes an existing file in the directory.
func (d *FSDirectory) DeleteFile(name string) error {
	if err := d.EnsureOpen(); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(d.path, name)); err != nil {
		return d.wrapError(err, name)
	}
	d.staleFilesLock.Lock()
	defer d.staleFilesLock.Unlock()
	delete(d.staleFiles, name)
	return nil
}

/*
Creates an IndexOutput for the file with the given name.
*/
func (d *FSDirectory) CreateOutput(name string, ctx IOContext) (out IndexOutput, err error) {
	if err = d.EnsureOpen(); err != nil {
		return nil, err
	}
	if err = d.ensureCanWrite(name); err != nil {
		return nil, err
	}
	return newFSIndexOutput(d, name)
}

func (d *FSDirectory) ensureCanWrite(name string) error {
	if err := os.MkdirAll(d.path, 0755); err != nil {
		return errors.Wrapf(err, "Cannot create directory %v", d.path)
	}

	filename := filepath.Join(d.path, name)
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "Cannot overwrite %v", filename)
	}
	return nil
}

/*
Sub classes should call this method on closing an open IndexOuput,
reporting the name of the file that was closed. FSDirectory needs
this information to take care of syncing stale files.
*/
func (d *FSDirectory) onIndexOutputClosed(name string) {
	d.staleFilesLock.Lock()
	defer d.staleFilesLock.Unlock()
	d.staleFiles[name] = true
}

/*
Fsyncs the given files, in parallel, if they were written through
this directory since the last Sync(); then fsyncs the directory
itself.
*/
func (d *FSDirectory) Sync(names []string) (err error) {
	if err = d.EnsureOpen(); err != nil {
		return err
	}

	var toSync []string
	d.staleFilesLock.Lock()
	for _, name := range names {
		if d.staleFiles[name] {
			toSync = append(toSync, name)
		}
	}
	d.staleFilesLock.Unlock()

	var g errgroup.Group
	for _, name := range toSync {
		name := name
		g.Go(func() error { return d.fsync(name) })
	}
	if err = g.Wait(); err != nil {
		return err
	}

	// fsync the directory itself, but only if there was any file
	// fsynced before (otherwise it can happen that the directory does
	// not yet exist)!
	if len(toSync) > 0 {
		if err = fsyncDir(d.path); err != nil {
			return err
		}
	}

	d.staleFilesLock.Lock()
	defer d.staleFilesLock.Unlock()
	for _, name := range toSync {
		delete(d.staleFiles, name)
	}
	return nil
}

func (d *FSDirectory) RenameFile(source, dest string) error {
	if err := d.EnsureOpen(); err != nil {
		return err
	}
	if err := os.Rename(filepath.Join(d.path, source), filepath.Join(d.path, dest)); err != nil {
		return d.wrapError(err, source)
	}
	d.staleFilesLock.Lock()
	if d.staleFiles[source] {
		delete(d.staleFiles, source)
		d.staleFiles[dest] = true
	}
	d.staleFilesLock.Unlock()
	return fsyncDir(d.path)
}

func (d *FSDirectory) LockID() string {
	var digest int32
	for _, ch := range d.path {
		digest = 31*digest + int32(ch)
	}
	return fmt.Sprintf("lucene-%x", uint32(digest))
}

func (d *FSDirectory) Close() error {
	d.Lock() // synchronized
	defer d.Unlock()
	if d.markClosed() {
		log.Debugf("Closed %v", d)
	}
	return nil
}

/* Returns the underlying filesystem directory. */
func (d *FSDirectory) Path() string {
	return d.path
}

func (d *FSDirectory) fsync(name string) (err error) {
	for retryCount := 0; retryCount < 5; retryCount++ {
		if err = syncFile(filepath.Join(d.path, name)); err == nil {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return err
}

func syncFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return errors.WithStack(err)
	}
	err = f.Sync()
	if err2 := f.Close(); err == nil {
		err = err2
	}
	return errors.Wrapf(err, "fsync %v", path)
}

func (d *FSDirectory) String() string {
	return fmt.Sprintf("%T@%v lockFactory=%v", d.FSDirectorySPI, d.path, d.LockFactory())
}

/*
The maximum chunk size is 8192 bytes, because file.Write() may issue
one huge syscall otherwise.
*/
const CHUNK_SIZE = 8192

// chunkedFile writes to the file at most CHUNK_SIZE bytes at a time.
type chunkedFile struct {
	*os.File
}

func (w chunkedFile) Write(p []byte) (int, error) {
	offset := 0
	for offset < len(p) {
		chunk := len(p) - offset
		if chunk > CHUNK_SIZE {
			chunk = CHUNK_SIZE
		}
		n, err := w.File.Write(p[offset : offset+chunk])
		offset += n
		if err != nil {
			return offset, err
		}
	}
	return offset, nil
}

var _ io.WriteCloser = chunkedFile{}

/*
Writes output with File.Write([]byte) (int, error)
*/
type FSIndexOutput struct {
	*OutputStreamIndexOutput
	parent *FSDirectory
	name   string
	closed bool
}

func newFSIndexOutput(parent *FSDirectory, name string) (*FSIndexOutput, error) {
	file, err := os.OpenFile(filepath.Join(parent.path, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot create %v", name)
	}
	return &FSIndexOutput{
		OutputStreamIndexOutput: newOutputStreamIndexOutput(chunkedFile{file}, CHUNK_SIZE),
		parent:                  parent,
		name:                    name,
	}, nil
}

func (out *FSIndexOutput) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true
	defer out.parent.onIndexOutputClosed(out.name)
	return out.OutputStreamIndexOutput.Close()
}

func (out *FSIndexOutput) String() string {
	return fmt.Sprintf("FSIndexOutput(path=%v)", filepath.Join(out.parent.path, out.name))
}
