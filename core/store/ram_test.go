package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestIO(t *testing.T) {
	filename := "a.txt"
	testdata := "hello world"

	dir := NewRAMDirectory()
	func() {
		out, err := dir.CreateOutput(filename, IO_CONTEXT_DEFAULT)
		require.NoError(t, err)
		defer out.Close()
		require.NoError(t, out.WriteString(testdata))
	}()

	n, err := dir.FileLength(filename)
	require.NoError(t, err)
	assertEquals(t, n, int64(len(testdata))+1)

	in, err := dir.OpenInput(filename, IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	s, err := in.ReadString()
	require.NoError(t, err)
	assertEquals(t, s, testdata)
}

func TestRAMDirectoryNamespace(t *testing.T) {
	dir := NewRAMDirectory()
	writeTestFile(t, dir, "b", testBytes(10))
	writeTestFile(t, dir, "a", testBytes(2000))
	writeTestFile(t, dir, "c", nil)

	names, err := dir.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names)
	// allocation is quantized to whole buffers
	assert.Equal(t, int64(3*BUFFER_SIZE), dir.SizeInBytes())

	// overwrite replaces content and accounting
	writeTestFile(t, dir, "a", testBytes(5))
	assert.Equal(t, testBytes(5), readTestFile(t, dir, "a"))
	assert.Equal(t, int64(2*BUFFER_SIZE), dir.SizeInBytes())

	require.NoError(t, dir.RenameFile("b", "a"))
	assert.Equal(t, testBytes(10), readTestFile(t, dir, "a"))
	ok, err := dir.FileExists("b")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(BUFFER_SIZE), dir.SizeInBytes())

	require.NoError(t, dir.DeleteFile("a"))
	assert.True(t, IsFileNotFound(dir.DeleteFile("a")))
	_, err = dir.OpenInput("a", IO_CONTEXT_DEFAULT)
	assert.True(t, IsFileNotFound(err))
	_, err = dir.FileLength("a")
	assert.True(t, IsFileNotFound(err))
	assert.True(t, IsFileNotFound(dir.RenameFile("a", "z")))
	assert.Equal(t, int64(0), dir.SizeInBytes())
}

func TestRAMDirectoryOpenInputSeesSnapshot(t *testing.T) {
	dir := NewRAMDirectory()
	writeTestFile(t, dir, "f", testBytes(100))
	in, err := dir.OpenInput("f", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, dir.DeleteFile("f"))
	// an open input keeps reading the detached file
	buf := make([]byte, 100)
	require.NoError(t, in.ReadBytes(buf))
	assert.Equal(t, testBytes(100), buf)
}

func TestRAMDirectoryClosed(t *testing.T) {
	dir := NewRAMDirectory()
	writeTestFile(t, dir, "f", testBytes(10))
	require.NoError(t, dir.Close())
	require.NoError(t, dir.Close())

	_, err := dir.ListAll()
	assert.True(t, IsAlreadyClosed(err))
	_, err = dir.CreateOutput("g", IO_CONTEXT_DEFAULT)
	assert.True(t, IsAlreadyClosed(err))
	_, err = dir.OpenInput("f", IO_CONTEXT_DEFAULT)
	assert.True(t, IsAlreadyClosed(err))
	assert.True(t, IsAlreadyClosed(dir.Sync([]string{"f"})))
	assert.Equal(t, int64(0), dir.SizeInBytes())
}

func TestNewRAMDirectoryFrom(t *testing.T) {
	src := NewRAMDirectory()
	for i := 0; i < 5; i++ {
		writeTestFile(t, src, fmt.Sprintf("f%d", i), testBytes(i*700))
	}
	dst, err := NewRAMDirectoryFrom(src, IO_CONTEXT_DEFAULT)
	require.NoError(t, err)

	// the copy is independent
	require.NoError(t, src.DeleteFile("f1"))
	names, err := dst.ListAll()
	require.NoError(t, err)
	assert.Len(t, names, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, testBytes(i*700), readTestFile(t, dst, fmt.Sprintf("f%d", i)))
	}
}

func TestRAMDirectoryConcurrentWriters(t *testing.T) {
	dir := NewRAMDirectory()
	var g errgroup.Group
	for i := 0; i < 16; i++ {
		name := fmt.Sprintf("_%d.dat", i)
		size := 100 * (i + 1)
		g.Go(func() error {
			out, err := dir.CreateOutput(name, IO_CONTEXT_DEFAULT)
			if err != nil {
				return err
			}
			if err = out.WriteBytes(testBytes(size)); err != nil {
				return err
			}
			return out.Close()
		})
	}
	require.NoError(t, g.Wait())

	names, err := dir.ListAll()
	require.NoError(t, err)
	assert.Len(t, names, 16)
	for i := 0; i < 16; i++ {
		n, err := dir.FileLength(fmt.Sprintf("_%d.dat", i))
		require.NoError(t, err)
		assert.Equal(t, int64(100*(i+1)), n)
	}
}

func TestRAMDirectoryLocking(t *testing.T) {
	dir := NewRAMDirectory()
	l1, err := dir.MakeLock("write.lock")
	require.NoError(t, err)
	l2, err := dir.MakeLock("write.lock")
	require.NoError(t, err)

	ok, err := l1.Obtain()
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = l2.Obtain()
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, l1.Close())
	ok, err = l2.Obtain()
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l2.Close())
}
