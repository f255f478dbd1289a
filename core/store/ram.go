package store

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// store/RAMDirectory.java

/*
A memory-resident Directory implementation. Locking implementation
is by default the SingleInstanceLockFactory but can be changed with
SetLockFactory().

Warning: This class is not intended to work with huge indexes.
Everything beyond several hundred megabytes will waste resources (GC
cycles), becaues it uses an internal buffer size of 1024 bytes,
producing millions of byte[1024] arrays. This class is optimized for
small memory-resident indexes. It also has bad concurrency on
multithreaded environments.

It is recommended to materialze large indexes on disk and use
MMapDirectory, which is a high-performance directory implementation
working diretly on the file system cache of the operating system.
*/
type RAMDirectory struct {
	*DirectoryImpl
	*BaseDirectory

	fileMap     map[string]*RAMFile // synchronized
	fileMapLock *sync.RWMutex
	sizeInBytes int64 // atomic
}

func NewRAMDirectory() *RAMDirectory {
	ans := &RAMDirectory{
		fileMap:     make(map[string]*RAMFile),
		fileMapLock: &sync.RWMutex{},
	}
	ans.DirectoryImpl = NewDirectoryImpl(ans)
	ans.BaseDirectory = NewBaseDirectory(ans)
	ans.SetLockFactory(NewSingleInstanceLockFactory())
	return ans
}

/*
Creates a new RAMDirectory instance from a different Directory
implementation. This can be used to load a disk-based index into
memory.

Note that the resulting RAMDirectory instance is fully independent
from the original Directory (it is a complete copy). Any subsequent
changes to the original Directory will not be visible in the
RAMDirectory instance.
*/
func NewRAMDirectoryFrom(dir Directory, ctx IOContext) (*RAMDirectory, error) {
	ans := NewRAMDirectory()
	names, err := dir.ListAll()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if err = dir.Copy(ans, name, name, ctx); err != nil {
			return nil, err
		}
	}
	return ans, nil
}

func (rd *RAMDirectory) ListAll() (names []string, err error) {
	if err = rd.EnsureOpen(); err != nil {
		return nil, err
	}
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	names = make([]string, 0, len(rd.fileMap))
	for name := range rd.fileMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (rd *RAMDirectory) file(name string) (*RAMFile, error) {
	if err := rd.EnsureOpen(); err != nil {
		return nil, err
	}
	rd.fileMapLock.RLock()
	defer rd.fileMapLock.RUnlock()
	if file, ok := rd.fileMap[name]; ok {
		return file, nil
	}
	return nil, newFileNotFoundError(name, rd)
}

// Returns true iff the named file exists in this directory
func (rd *RAMDirectory) FileExists(name string) (bool, error) {
	_, err := rd.file(name)
	if IsFileNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// Returns the length in bytes of a file in the directory.
func (rd *RAMDirectory) FileLength(name string) (length int64, err error) {
	file, err := rd.file(name)
	if err != nil {
		return 0, err
	}
	return file.Length(), nil
}

/*
Return total size in bytes of all files in this directory. This is
currently quantized to BUFFER_SIZE.
*/
func (rd *RAMDirectory) SizeInBytes() int64 {
	return atomic.LoadInt64(&rd.sizeInBytes)
}

// Removes an existing file in the directory
func (rd *RAMDirectory) DeleteFile(name string) error {
	if err := rd.EnsureOpen(); err != nil {
		return err
	}
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	file, ok := rd.fileMap[name]
	if !ok {
		return newFileNotFoundError(name, rd)
	}
	delete(rd.fileMap, name)
	rd.detach(file)
	return nil
}

// caller holds fileMapLock
func (rd *RAMDirectory) detach(file *RAMFile) {
	file.Lock()
	file.directory = nil
	size := file.sizeInBytes
	file.Unlock()
	atomic.AddInt64(&rd.sizeInBytes, -size)
}

// Creates a new, empty file in the directory with the given name.
// Returns a stream writing this file:
func (rd *RAMDirectory) CreateOutput(name string, context IOContext) (out IndexOutput, err error) {
	if err = rd.EnsureOpen(); err != nil {
		return nil, err
	}
	file := rd.newRAMFile()
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	if existing, ok := rd.fileMap[name]; ok {
		rd.detach(existing)
	}
	rd.fileMap[name] = file
	return NewRAMOutputStream(name, file), nil
}

// Returns a new RAMFile for storing data.
func (rd *RAMDirectory) newRAMFile() *RAMFile {
	return newRAMFile(rd)
}

func (rd *RAMDirectory) Sync(names []string) error {
	return rd.EnsureOpen()
}

func (rd *RAMDirectory) RenameFile(source, dest string) error {
	if err := rd.EnsureOpen(); err != nil {
		return err
	}
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	file, ok := rd.fileMap[source]
	if !ok {
		return newFileNotFoundError(source, rd)
	}
	if existing, ok := rd.fileMap[dest]; ok && existing != file {
		rd.detach(existing)
	}
	delete(rd.fileMap, source)
	rd.fileMap[dest] = file
	return nil
}

// Returns a stream reading an existing file.
func (rd *RAMDirectory) OpenInput(name string, context IOContext) (in IndexInput, err error) {
	file, err := rd.file(name)
	if err != nil {
		return nil, err
	}
	return newRAMInputStream(name, file), nil
}

// Closes the store to future operations, releasing associated memroy.
func (rd *RAMDirectory) Close() error {
	if !rd.markClosed() {
		return nil
	}
	rd.fileMapLock.Lock()
	defer rd.fileMapLock.Unlock()
	rd.fileMap = make(map[string]*RAMFile)
	atomic.StoreInt64(&rd.sizeInBytes, 0)
	return nil
}

func (rd *RAMDirectory) String() string {
	return fmt.Sprintf("RAMDirectory@%v", rd.DirectoryImpl.String())
}

// store/RAMFile.java

// Represents a file in RAM as a list of []byte buffers. Every buffer
// but the last one is full.
type RAMFile struct {
	sync.Locker
	buffers     [][]byte
	length      int64
	directory   *RAMDirectory
	sizeInBytes int64
}

func newRAMFile(directory *RAMDirectory) *RAMFile {
	return &RAMFile{
		Locker:    &sync.Mutex{},
		directory: directory,
	}
}

func (rf *RAMFile) Length() int64 {
	rf.Lock()
	defer rf.Unlock()
	return rf.length
}

func (rf *RAMFile) SizeInBytes() int64 {
	rf.Lock()
	defer rf.Unlock()
	return rf.sizeInBytes
}

/* Appends p, growing the file by BUFFER_SIZE blocks. */
func (rf *RAMFile) append(p []byte) {
	rf.Lock()
	defer rf.Unlock()
	for len(p) > 0 {
		pos := int(rf.length & (BUFFER_SIZE - 1))
		if pos == 0 && int64(len(rf.buffers))<<10 == rf.length {
			rf.buffers = append(rf.buffers, make([]byte, BUFFER_SIZE))
			rf.sizeInBytes += BUFFER_SIZE
			if rf.directory != nil {
				atomic.AddInt64(&rf.directory.sizeInBytes, BUFFER_SIZE)
			}
		}
		n := copy(rf.buffers[len(rf.buffers)-1][pos:], p)
		p = p[n:]
		rf.length += int64(n)
	}
}

/*
Returns a view of the current content as (length>>10)+1 chunks,
suitable for a ByteBufferIndexInput. Bytes appended later are not
part of the view.
*/
func (rf *RAMFile) chunks() ([][]byte, int64) {
	rf.Lock()
	defer rf.Unlock()
	n := int(rf.length>>10) + 1
	chunks := make([][]byte, n)
	for i := range chunks {
		if i < len(rf.buffers) {
			end := rf.length - int64(i)<<10
			if end > BUFFER_SIZE {
				end = BUFFER_SIZE
			}
			chunks[i] = rf.buffers[i][:end]
		} else {
			chunks[i] = []byte{}
		}
	}
	return chunks, rf.length
}

// store/RAMInputStream.java

const ramChunkSizePower = 10 // 1<<10 == BUFFER_SIZE

/*
A memory-resident IndexInput implementation. Clones and slices share
the file's buffers.
*/
func newRAMInputStream(name string, f *RAMFile) *ByteBufferIndexInput {
	chunks, length := f.chunks()
	return newByteBufferIndexInput(fmt.Sprintf("RAMInputStream(name=%v)", name),
		chunks, length, ramChunkSizePower, true, nil)
}

// store/RAMOutputStream.java

/* A memory-resident IndexOutput implementation. */
type RAMOutputStream struct {
	*BufferedIndexOutput
	name   string
	file   *RAMFile
	closed bool
}

func NewRAMOutputStream(name string, f *RAMFile) *RAMOutputStream {
	ans := &RAMOutputStream{name: name, file: f}
	ans.BufferedIndexOutput = newBufferedIndexOutputBySize(ans, BUFFER_SIZE)
	return ans
}

/* Creates a stream over a fresh RAMFile that belongs to no directory. */
func NewRAMOutputStreamBuffer() *RAMOutputStream {
	return NewRAMOutputStream("RAMOutputStream", newRAMFile(nil))
}

func (out *RAMOutputStream) flushBuffer(b []byte) error {
	out.file.append(b)
	return nil
}

func (out *RAMOutputStream) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true
	return out.BufferedIndexOutput.Close()
}

/* Returns the file written so far, e.g. to read it back. */
func (out *RAMOutputStream) File() *RAMFile {
	return out.file
}

/* Copy the current contents of this buffer to the named output. */
func (out *RAMOutputStream) WriteTo(dest IndexOutput) error {
	if !out.closed {
		if err := out.Flush(); err != nil {
			return err
		}
	}
	chunks, length := out.file.chunks()
	for _, chunk := range chunks {
		if err := dest.WriteBytes(chunk); err != nil {
			return errors.Wrapf(err, "copy %v", out.name)
		}
		length -= int64(len(chunk))
	}
	assertTrue(length == 0)
	return nil
}

func (out *RAMOutputStream) String() string {
	return fmt.Sprintf("RAMOutputStream(name=%v)", out.name)
}
