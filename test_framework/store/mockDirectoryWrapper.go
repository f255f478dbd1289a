package store

import (
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/balzaczyy/gostore/core/store"
	"github.com/balzaczyy/gostore/core/util"
	tu "github.com/balzaczyy/gostore/test_framework/util"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
)

var log = logging.MustGetLogger("test_framework")

// store/MockDirectoryWrapper.java

/*
This is a Directory wrapper that adds methods intended to be used
only by unit tests. It also adds a number of features useful for
testing:

	- Instances created by NewDirectory() are tracked to ensure they
	  are closed by the test.
	- When a MockDirectoryWrapper is closed, it refuses to close if
	  there are still open files (inputs, outputs or slicers).
	- Writing twice to the same file, or deleting or overwriting a
	  file still open, is an error.
	- Failures can be injected through SetFailOn().
	- Outputs are sometimes throttled to emulate a slow disk.
	- Crash() drops every file that was not synced.
*/
type MockDirectoryWrapper struct {
	*BaseDirectoryWrapper
	sync.Locker // simulate Java's synchronized keyword

	randomState        *rand.Rand
	noDeleteOpenFile   bool
	preventDoubleWrite bool
	unSyncedFiles      map[string]bool
	createdFiles       map[string]bool
	openFilesForWrite  map[string]bool
	throttling         Throttling
	failOn             func(op, name string) error

	inputCloneCount int32 // atomic

	// open handle -> file name, for debugging in case one is left open
	openFileHandles map[io.Closer]string
	openFiles       map[string]int

	// run after the delegate is closed, e.g. to remove a temp dir
	onClose func() error
}

func NewMockDirectoryWrapper(random *rand.Rand, delegate store.Directory) *MockDirectoryWrapper {
	return &MockDirectoryWrapper{
		BaseDirectoryWrapper: NewBaseDirectoryWrapper(delegate),
		Locker:               &sync.Mutex{},
		// must make a private random since our methods are called from
		// different goroutines; else test failures may not be
		// reproducible from the original seed
		randomState:        rand.New(rand.NewSource(random.Int63())),
		noDeleteOpenFile:   true,
		preventDoubleWrite: true,
		unSyncedFiles:      make(map[string]bool),
		createdFiles:       make(map[string]bool),
		openFilesForWrite:  make(map[string]bool),
		throttling:         THROTTLING_SOMETIMES,
		openFileHandles:    make(map[io.Closer]string),
		openFiles:          make(map[string]int),
	}
}

// Controlling hard disk throttling
// Set via SetThrottling()
// WARNING: can make tests very slow.
type Throttling int

const (
	// always emulate a slow hard disk. Could be very slow!
	THROTTLING_ALWAYS = Throttling(1)
	// sometimes (2% of the time) emulate a slow hard disk.
	THROTTLING_SOMETIMES = Throttling(2)
	// never throttle output
	THROTTLING_NEVER = Throttling(3)
)

func (mdw *MockDirectoryWrapper) SetThrottling(throttling Throttling) {
	mdw.throttling = throttling
}

// Emulate windows whereby deleting an open file is not allowed.
func (mdw *MockDirectoryWrapper) SetNoDeleteOpenFile(value bool) {
	mdw.noDeleteOpenFile = value
}

func (mdw *MockDirectoryWrapper) SetPreventDoubleWrite(value bool) {
	mdw.preventDoubleWrite = value
}

/*
Installs a hook consulted before every operation on the directory
and its files (op is e.g. "CreateOutput", "OpenInput", "WriteBytes",
"Sync"). A non-nil error is returned to the caller in place of the
operation.
*/
func (mdw *MockDirectoryWrapper) SetFailOn(failOn func(op, name string) error) {
	mdw.Lock()
	defer mdw.Unlock()
	mdw.failOn = failOn
}

func (mdw *MockDirectoryWrapper) maybeFail(op, name string) error {
	mdw.Lock()
	failOn := mdw.failOn
	mdw.Unlock()
	if failOn == nil {
		return nil
	}
	if err := failOn(op, name); err != nil {
		log.Debugf("MockDirectoryWrapper: injected failure in %v(%v): %v", op, name, err)
		return err
	}
	return nil
}

func (mdw *MockDirectoryWrapper) ensureOpen() error {
	if !mdw.IsOpen() {
		return errors.WithStack(&store.AlreadyClosedError{Msg: "MockDirectoryWrapper is closed"})
	}
	return nil
}

func (mdw *MockDirectoryWrapper) InputCloneCount() int {
	return int(atomic.LoadInt32(&mdw.inputCloneCount))
}

/* Returns the names written through this wrapper and not yet synced, sorted. */
func (mdw *MockDirectoryWrapper) UnSyncedFiles() []string {
	mdw.Lock()
	defer mdw.Unlock()
	return sortedKeys(mdw.unSyncedFiles)
}

/* Returns the names with open handles, sorted. */
func (mdw *MockDirectoryWrapper) OpenFiles() []string {
	mdw.Lock()
	defer mdw.Unlock()
	names := make(map[string]bool)
	for name := range mdw.openFiles {
		names[name] = true
	}
	return sortedKeys(names)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (mdw *MockDirectoryWrapper) Sync(names []string) error {
	if err := mdw.ensureOpen(); err != nil {
		return err
	}
	for _, name := range names {
		if err := mdw.maybeFail("Sync", name); err != nil {
			return err
		}
	}
	if err := mdw.Directory.Sync(names); err != nil {
		return err
	}
	mdw.Lock()
	defer mdw.Unlock()
	for _, name := range names {
		delete(mdw.unSyncedFiles, name)
	}
	return nil
}

func (mdw *MockDirectoryWrapper) DeleteFile(name string) error {
	if err := mdw.ensureOpen(); err != nil {
		return err
	}
	if err := mdw.maybeFail("DeleteFile", name); err != nil {
		return err
	}
	mdw.Lock()
	if mdw.noDeleteOpenFile && mdw.openFiles[name] > 0 {
		mdw.Unlock()
		return errors.Errorf("MockDirectoryWrapper: file %v is still open: cannot delete", name)
	}
	mdw.Unlock()

	if err := mdw.Directory.DeleteFile(name); err != nil {
		return err
	}
	mdw.Lock()
	defer mdw.Unlock()
	delete(mdw.unSyncedFiles, name)
	delete(mdw.createdFiles, name)
	return nil
}

func (mdw *MockDirectoryWrapper) RenameFile(source, dest string) error {
	if err := mdw.ensureOpen(); err != nil {
		return err
	}
	if err := mdw.maybeFail("RenameFile", source); err != nil {
		return err
	}
	mdw.Lock()
	if mdw.noDeleteOpenFile && (mdw.openFiles[source] > 0 || mdw.openFiles[dest] > 0) {
		mdw.Unlock()
		return errors.Errorf("MockDirectoryWrapper: file %v or %v is still open: cannot rename", source, dest)
	}
	mdw.Unlock()

	if err := mdw.Directory.RenameFile(source, dest); err != nil {
		return err
	}
	mdw.Lock()
	defer mdw.Unlock()
	if mdw.unSyncedFiles[source] {
		delete(mdw.unSyncedFiles, source)
		mdw.unSyncedFiles[dest] = true
	}
	delete(mdw.createdFiles, source)
	mdw.createdFiles[dest] = true
	return nil
}

func (mdw *MockDirectoryWrapper) CreateOutput(name string, ctx store.IOContext) (store.IndexOutput, error) {
	if err := mdw.ensureOpen(); err != nil {
		return nil, err
	}
	if err := mdw.maybeFail("CreateOutput", name); err != nil {
		return nil, err
	}

	mdw.Lock()
	if mdw.preventDoubleWrite && mdw.createdFiles[name] {
		mdw.Unlock()
		return nil, errors.Errorf("MockDirectoryWrapper: file %v was already written to", name)
	}
	if mdw.noDeleteOpenFile && mdw.openFiles[name] > 0 {
		mdw.Unlock()
		return nil, errors.Errorf("MockDirectoryWrapper: file %v is still open: cannot overwrite", name)
	}
	throttle := mdw.throttling == THROTTLING_ALWAYS ||
		(mdw.throttling == THROTTLING_SOMETIMES && mdw.randomState.Intn(50) == 0)
	bytesPerSecond := tu.MBitsToBytes(40 + mdw.randomState.Intn(10))
	delayMillis := int64(5 + mdw.randomState.Intn(5))
	mdw.Unlock()

	delegate, err := mdw.Directory.CreateOutput(name, ctx)
	if err != nil {
		return nil, err
	}
	if throttle {
		log.Debugf("MockDirectoryWrapper: throttling output %v", name)
		delegate = tu.NewThrottledIndexOutput(bytesPerSecond, delayMillis, delegate)
	}
	out := newMockIndexOutputWrapper(mdw, name, delegate)

	mdw.Lock()
	defer mdw.Unlock()
	mdw.unSyncedFiles[name] = true
	mdw.createdFiles[name] = true
	mdw.openFilesForWrite[name] = true
	mdw.addFileHandle(out, name)
	return out, nil
}

// Must be called with the lock held.
func (mdw *MockDirectoryWrapper) addFileHandle(c io.Closer, name string) {
	mdw.openFiles[name]++
	mdw.openFileHandles[c] = name
}

func (mdw *MockDirectoryWrapper) removeFileHandle(c io.Closer, name string) {
	mdw.Lock()
	defer mdw.Unlock()
	if _, ok := mdw.openFileHandles[c]; !ok {
		return
	}
	delete(mdw.openFileHandles, c)
	if mdw.openFiles[name]--; mdw.openFiles[name] <= 0 {
		delete(mdw.openFiles, name)
	}
}

func (mdw *MockDirectoryWrapper) removeIndexOutput(out io.Closer, name string) {
	mdw.Lock()
	delete(mdw.openFilesForWrite, name)
	mdw.Unlock()
	mdw.removeFileHandle(out, name)
}

func (mdw *MockDirectoryWrapper) OpenInput(name string, ctx store.IOContext) (store.IndexInput, error) {
	if err := mdw.ensureOpen(); err != nil {
		return nil, err
	}
	if err := mdw.maybeFail("OpenInput", name); err != nil {
		return nil, err
	}
	mdw.Lock()
	if mdw.openFilesForWrite[name] {
		mdw.Unlock()
		return nil, errors.Errorf("MockDirectoryWrapper: file %v is still open for writing", name)
	}
	mdw.Unlock()

	delegate, err := mdw.Directory.OpenInput(name, ctx)
	if err != nil {
		return nil, err
	}
	in := newMockIndexInputWrapper(mdw, name, delegate, false)
	mdw.Lock()
	defer mdw.Unlock()
	mdw.addFileHandle(in, name)
	return in, nil
}

func (mdw *MockDirectoryWrapper) OpenChecksumInput(name string, ctx store.IOContext) (store.ChecksumIndexInput, error) {
	in, err := mdw.OpenInput(name, ctx)
	if err != nil {
		return nil, err
	}
	return store.NewBufferedChecksumIndexInput(in), nil
}

/* Slicers are tracked like inputs: they hold the file open. */
func (mdw *MockDirectoryWrapper) CreateSlicer(name string, ctx store.IOContext) (store.IndexInputSlicer, error) {
	in, err := mdw.OpenInput(name, ctx)
	if err != nil {
		return nil, err
	}
	return &mockSlicer{in}, nil
}

type mockSlicer struct {
	base store.IndexInput
}

func (s *mockSlicer) OpenSlice(desc string, offset, length int64) (store.IndexInput, error) {
	return s.base.Slice(desc, offset, length)
}

func (s *mockSlicer) Close() error {
	return s.base.Close()
}

/* Copies through this wrapper so that both handles are tracked. */
func (mdw *MockDirectoryWrapper) Copy(to store.Directory, src, dest string, ctx store.IOContext) (err error) {
	in, err := mdw.OpenInput(src, ctx)
	if err != nil {
		return err
	}
	out, err := to.CreateOutput(dest, ctx)
	if err != nil {
		return util.CloseWhileHandlingError(err, in)
	}
	err = out.CopyBytes(in, in.Length())
	return util.CloseWhileHandlingError(err, out, in)
}

/*
Simulates a crash of the OS or machine: every handle is closed and
every file that was not synced since it was written is deleted.
*/
func (mdw *MockDirectoryWrapper) Crash() error {
	mdw.Lock()
	handles := make([]io.Closer, 0, len(mdw.openFileHandles))
	for c := range mdw.openFileHandles {
		handles = append(handles, c)
	}
	mdw.Unlock()
	util.CloseWhileSuppressingError(handles...)

	for _, name := range mdw.UnSyncedFiles() {
		log.Debugf("MockDirectoryWrapper: crash drops unsynced file %v", name)
		if err := mdw.Directory.DeleteFile(name); err != nil && !store.IsFileNotFound(err) {
			return err
		}
	}
	mdw.Lock()
	defer mdw.Unlock()
	mdw.unSyncedFiles = make(map[string]bool)
	mdw.createdFiles = make(map[string]bool)
	return nil
}

func (mdw *MockDirectoryWrapper) Close() error {
	mdw.Lock()
	if len(mdw.openFiles) > 0 {
		open := make([]string, 0, len(mdw.openFiles))
		for name, n := range mdw.openFiles {
			open = append(open, fmt.Sprintf("%v(%d)", name, n))
		}
		mdw.Unlock()
		sort.Strings(open)
		return errors.Errorf("MockDirectoryWrapper: cannot close: there are still open files: %v", open)
	}
	mdw.Unlock()

	err := mdw.BaseDirectoryWrapper.Close()
	if mdw.onClose != nil {
		if err2 := mdw.onClose(); err == nil {
			err = err2
		}
	}
	return err
}

func (mdw *MockDirectoryWrapper) String() string {
	return fmt.Sprintf("MockDirectoryWrapper(%v)", mdw.Directory)
}

// store/MockIndexOutputWrapper.java

/*
Used by MockDirectoryWrapper to create an output stream that will
consult the failure hook and untrack itself on Close().
*/
type MockIndexOutputWrapper struct {
	*store.IndexOutputImpl
	delegate store.IndexOutput
	dir      *MockDirectoryWrapper
	name     string
	closed   bool
	single   []byte
}

func newMockIndexOutputWrapper(dir *MockDirectoryWrapper, name string, delegate store.IndexOutput) *MockIndexOutputWrapper {
	ans := &MockIndexOutputWrapper{
		delegate: delegate,
		dir:      dir,
		name:     name,
		single:   make([]byte, 1),
	}
	ans.IndexOutputImpl = store.NewIndexOutput(ans)
	return ans
}

func (out *MockIndexOutputWrapper) WriteByte(b byte) error {
	out.single[0] = b
	return out.WriteBytes(out.single)
}

func (out *MockIndexOutputWrapper) WriteBytes(buf []byte) error {
	if out.closed {
		return errors.WithStack(&store.AlreadyClosedError{Msg: fmt.Sprintf("Already closed: %v", out)})
	}
	if err := out.dir.maybeFail("WriteBytes", out.name); err != nil {
		return err
	}
	return out.delegate.WriteBytes(buf)
}

func (out *MockIndexOutputWrapper) FilePointer() int64 {
	return out.delegate.FilePointer()
}

func (out *MockIndexOutputWrapper) Checksum() (int64, error) {
	return out.delegate.Checksum()
}

func (out *MockIndexOutputWrapper) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true
	defer out.dir.removeIndexOutput(out, out.name)
	return out.delegate.Close()
}

func (out *MockIndexOutputWrapper) String() string {
	return fmt.Sprintf("MockIndexOutputWrapper(%v)", out.delegate)
}

// store/MockIndexInputWrapper.java

/*
Used by MockDirectoryWrapper to create an input stream that keeps
track of when it's been closed. Clones and slices are not tracked:
they close with their original.
*/
type MockIndexInputWrapper struct {
	*store.IndexInputImpl
	delegate store.IndexInput
	dir      *MockDirectoryWrapper
	name     string
	isClone  bool
	closed   bool
}

func newMockIndexInputWrapper(dir *MockDirectoryWrapper, name string, delegate store.IndexInput, isClone bool) *MockIndexInputWrapper {
	ans := &MockIndexInputWrapper{
		delegate: delegate,
		dir:      dir,
		name:     name,
		isClone:  isClone,
	}
	ans.IndexInputImpl = store.NewIndexInputImpl(fmt.Sprintf("MockIndexInputWrapper(%v)", delegate), ans)
	return ans
}

func (in *MockIndexInputWrapper) ensureOpen() error {
	if in.closed {
		return errors.WithStack(&store.AlreadyClosedError{Msg: fmt.Sprintf("Abusing closed IndexInput! %v", in)})
	}
	return nil
}

func (in *MockIndexInputWrapper) ReadByte() (byte, error) {
	if err := in.ensureOpen(); err != nil {
		return 0, err
	}
	return in.delegate.ReadByte()
}

func (in *MockIndexInputWrapper) ReadBytes(buf []byte) error {
	if err := in.ensureOpen(); err != nil {
		return err
	}
	return in.delegate.ReadBytes(buf)
}

func (in *MockIndexInputWrapper) ReadBytesBuffered(buf []byte, useBuffer bool) error {
	if err := in.ensureOpen(); err != nil {
		return err
	}
	return in.delegate.ReadBytesBuffered(buf, useBuffer)
}

func (in *MockIndexInputWrapper) FilePointer() int64 {
	return in.delegate.FilePointer()
}

func (in *MockIndexInputWrapper) Seek(pos int64) error {
	if err := in.ensureOpen(); err != nil {
		return err
	}
	return in.delegate.Seek(pos)
}

func (in *MockIndexInputWrapper) Length() int64 {
	return in.delegate.Length()
}

func (in *MockIndexInputWrapper) Clone() store.IndexInput {
	atomic.AddInt32(&in.dir.inputCloneCount, 1)
	return newMockIndexInputWrapper(in.dir, in.name, in.delegate.Clone(), true)
}

func (in *MockIndexInputWrapper) Slice(desc string, offset, length int64) (store.IndexInput, error) {
	if err := in.ensureOpen(); err != nil {
		return nil, err
	}
	slice, err := in.delegate.Slice(desc, offset, length)
	if err != nil {
		return nil, err
	}
	atomic.AddInt32(&in.dir.inputCloneCount, 1)
	return newMockIndexInputWrapper(in.dir, in.name, slice, true), nil
}

func (in *MockIndexInputWrapper) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	if !in.isClone {
		defer in.dir.removeFileHandle(in, in.name)
	}
	return in.delegate.Close()
}
