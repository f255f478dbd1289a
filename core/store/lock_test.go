package store

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "gostore")
	require.NoError(t, err)
	return dir
}

func fastLockPolling(t *testing.T) func() {
	old := LOCK_POLL_INTERVAL
	LOCK_POLL_INTERVAL = 10
	return func() { LOCK_POLL_INTERVAL = old }
}

func checkExclusive(t *testing.T, f LockFactory) {
	l1 := f.Make("write.lock")
	l2 := f.Make("write.lock")

	ok, err := l1.Obtain()
	require.NoError(t, err)
	require.True(t, ok)
	locked, err := l2.IsLocked()
	require.NoError(t, err)
	assert.True(t, locked)

	ok, err = l2.Obtain()
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = l2.ObtainWithin(30)
	assert.False(t, ok)
	assert.True(t, IsLockObtainFailed(err), "%v", err)

	require.NoError(t, l1.Close())
	// releasing twice is harmless
	require.NoError(t, l1.Close())
	ok, err = l2.ObtainWithin(30)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l2.Close())
}

func TestNativeFSLock(t *testing.T) {
	defer fastLockPolling(t)()
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	checkExclusive(t, NewNativeFSLockFactory(filepath.Join(dir, "locks")))

	// a second factory on the same directory shares the in-process table
	f1 := NewNativeFSLockFactory(dir)
	f2 := NewNativeFSLockFactory(dir)
	l1 := f1.Make("x")
	ok, err := l1.Obtain()
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f2.Make("x").Obtain()
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, l1.Close())
	_, err = os.Stat(filepath.Join(dir, "x"))
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, f1.Clear("x"))
}

func TestSimpleFSLock(t *testing.T) {
	defer fastLockPolling(t)()
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	f := NewSimpleFSLockFactory(dir)
	checkExclusive(t, f)

	// a stale lock file blocks until cleared
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "stale"), nil, 0644))
	ok, err := f.Make("stale").Obtain()
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, f.Clear("stale"))
	require.NoError(t, f.Clear("stale"))
	ok, err = f.Make("stale").Obtain()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockPrefix(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	f := NewSimpleFSLockFactory(dir)
	f.SetLockPrefix("lucene-1")
	l := f.Make("write.lock")
	ok, err := l.Obtain()
	require.NoError(t, err)
	require.True(t, ok)
	_, err = os.Stat(filepath.Join(dir, "lucene-1-write.lock"))
	assert.NoError(t, err)
	require.NoError(t, l.Close())
}

func TestSingleInstanceLock(t *testing.T) {
	defer fastLockPolling(t)()
	checkExclusive(t, NewSingleInstanceLockFactory())
}

func TestNoLock(t *testing.T) {
	f := NoLockFactoryInstance()
	l1, l2 := f.Make("a"), f.Make("a")
	assert.True(t, l1 == l2)
	for _, l := range []Lock{l1, l2} {
		ok, err := l.Obtain()
		require.NoError(t, err)
		assert.True(t, ok)
		locked, err := l.IsLocked()
		require.NoError(t, err)
		assert.False(t, locked)
	}
	assert.NoError(t, f.Clear("a"))
}

func TestObtainWithinRejectsBadTimeout(t *testing.T) {
	l := NewSingleInstanceLockFactory().Make("a")
	_, err := l.ObtainWithin(-5)
	assert.Error(t, err)
	assert.False(t, IsLockObtainFailed(err))
}

func TestObtainContextCancel(t *testing.T) {
	defer fastLockPolling(t)()
	f := NewSingleInstanceLockFactory()
	held := f.Make("a")
	ok, err := held.Obtain()
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	waiter := f.Make("a").(*SingleInstanceLock)
	ok, err = waiter.ObtainContext(ctx, LOCK_OBTAIN_WAIT_FOREVER)
	assert.False(t, ok)
	assert.Equal(t, context.Canceled, err)
}

func TestWithLock(t *testing.T) {
	defer fastLockPolling(t)()
	f := NewSingleInstanceLockFactory()
	l := f.Make("a")

	ran := false
	err := WithLock(l, 100, func() error {
		ran = true
		locked, err := f.Make("a").IsLocked()
		require.NoError(t, err)
		assert.True(t, locked)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	locked, err := l.IsLocked()
	require.NoError(t, err)
	assert.False(t, locked)

	bodyErr := errors.New("body failed")
	assert.Equal(t, bodyErr, WithLock(l, 100, func() error { return bodyErr }))

	other := f.Make("a")
	ok, err := other.Obtain()
	require.NoError(t, err)
	require.True(t, ok)
	err = WithLock(l, 20, func() error {
		t.Fatal("body must not run")
		return nil
	})
	assert.True(t, IsLockObtainFailed(err))
}
