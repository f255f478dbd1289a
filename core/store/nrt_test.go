package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNRTCachingDirectory(t *testing.T) {
	path := tempDir(t)
	defer os.RemoveAll(path)
	fsDir, err := NewSimpleFSDirectory(path, nil)
	require.NoError(t, err)
	nrt := NewNRTCachingDirectory(fsDir, 0.1, 1)

	// small flush: cached
	flush := NewIOContextForFlush(&FlushInfo{1, 1000})
	out, err := nrt.CreateOutput("_0.small", flush)
	require.NoError(t, err)
	require.NoError(t, out.WriteBytes(testBytes(1000)))
	require.NoError(t, out.Close())

	// big merge: straight to the delegate
	merge := NewIOContextForMerge(&MergeInfo{1, 1 << 20, false, -1})
	out, err = nrt.CreateOutput("_1.big", merge)
	require.NoError(t, err)
	require.NoError(t, out.WriteBytes(testBytes(3000)))
	require.NoError(t, out.Close())

	cached, err := nrt.ListCachedFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"_0.small"}, cached)
	onDisk, err := fsDir.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"_1.big"}, onDisk)
	all, err := nrt.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"_0.small", "_1.big"}, all)
	assert.True(t, nrt.SizeInBytes() > 0)

	n, err := nrt.FileLength("_0.small")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), n)
	assert.Equal(t, testBytes(1000), readTestFile(t, nrt, "_0.small"))
	assert.Equal(t, testBytes(3000), readTestFile(t, nrt, "_1.big"))
	ok, err := nrt.FileExists("_0.small")
	require.NoError(t, err)
	assert.True(t, ok)

	cin, err := nrt.OpenChecksumInput("_0.small", IO_CONTEXT_READONCE)
	require.NoError(t, err)
	require.NoError(t, cin.Close())
	slicer, err := nrt.CreateSlicer("_0.small", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, slicer.Close())

	// renames stay in the cache
	require.NoError(t, nrt.RenameFile("_0.small", "_0.renamed"))
	cached, _ = nrt.ListCachedFiles()
	assert.Equal(t, []string{"_0.renamed"}, cached)

	// sync moves the file to the delegate
	require.NoError(t, nrt.Sync([]string{"_0.renamed"}))
	cached, _ = nrt.ListCachedFiles()
	assert.Empty(t, cached)
	assert.Equal(t, testBytes(1000), readTestFile(t, fsDir, "_0.renamed"))
	assert.Equal(t, int64(0), nrt.SizeInBytes())

	// close flushes everything left in RAM
	out, err = nrt.CreateOutput("_2.tmp", IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, out.WriteBytes(testBytes(10)))
	require.NoError(t, out.Close())
	require.NoError(t, nrt.DeleteFile("_1.big"))
	require.NoError(t, nrt.Close())

	reopened, err := NewSimpleFSDirectory(path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	names, err := reopened.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"_0.renamed", "_2.tmp"}, names)
}

func TestNRTCachingDirectoryCacheLimit(t *testing.T) {
	delegate := NewRAMDirectory()
	nrt := NewNRTCachingDirectory(delegate, 1, 0.001) // about 1KB of cache
	flush := NewIOContextForFlush(&FlushInfo{1, 10})

	writeTestFile(t, nrt, "a", testBytes(2000))
	// the cache is now over its budget
	out, err := nrt.CreateOutput("b", flush)
	require.NoError(t, err)
	require.NoError(t, out.Close())

	cached, err := nrt.ListCachedFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cached)
	ok, err := delegate.FileExists("b")
	require.NoError(t, err)
	assert.True(t, ok)

	// overwriting a cached file on the delegate drops the cached copy
	writeTestFile(t, nrt, "a", testBytes(1))
	cached, _ = nrt.ListCachedFiles()
	assert.Empty(t, cached)
	assert.Equal(t, testBytes(1), readTestFile(t, nrt, "a"))
}

func TestNRTCachingDirectoryMissingDelegate(t *testing.T) {
	root := tempDir(t)
	defer os.RemoveAll(root)
	fsDir, err := NewSimpleFSDirectory(root+"/missing", nil)
	require.NoError(t, err)
	nrt := NewNRTCachingDirectory(fsDir, 1, 1)

	_, err = nrt.ListAll()
	assert.True(t, IsNoSuchDirectory(err), "%v", err)
	writeTestFile(t, nrt, "x", testBytes(3))
	names, err := nrt.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, names)
}
