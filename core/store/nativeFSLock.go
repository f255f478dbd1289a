package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// store/NativeFSLockFactory.java

/*
Implements LockFactory using native OS file locks (flock(2) on unix).
Since the OS releases such locks when the process exits, this factory
does not leave stale lock files behind after a crash.

The OS lock is per process and per file, so the lock state of every
NativeFSLock in the process is kept in one process-wide table keyed by
the lock file path. It must be shared across all Directory instances:
two locks on the same path in one process would otherwise both
"succeed".
*/
type NativeFSLockFactory struct {
	*FSLockFactory
}

func NewNativeFSLockFactory(lockDir string) *NativeFSLockFactory {
	ans := &NativeFSLockFactory{newFSLockFactory()}
	if lockDir != "" {
		ans.setLockDir(lockDir)
	}
	return ans
}

func (f *NativeFSLockFactory) Make(name string) Lock {
	return newNativeFSLock(f.lockDir, f.prefixed(name))
}

func (f *NativeFSLockFactory) Clear(name string) error {
	// Note that this isn't strictly required anymore because the
	// existence of these files does not mean they are locked, but
	// still do this in case people really want to see the files go
	// away:
	return f.Make(name).Close()
}

func (f *NativeFSLockFactory) String() string {
	return fmt.Sprintf("NativeFSLockFactory@%v", f.lockDir)
}

var nativeLocksHeld = struct {
	sync.Mutex
	paths map[string]bool
}{paths: make(map[string]bool)}

type NativeFSLock struct {
	*LockImpl
	sync.Locker
	lockDir string
	path    string
	file    *os.File
}

func newNativeFSLock(lockDir, lockFileName string) *NativeFSLock {
	ans := &NativeFSLock{
		Locker:  &sync.Mutex{},
		lockDir: lockDir,
		path:    filepath.Join(lockDir, lockFileName),
	}
	ans.LockImpl = NewLockImpl(ans)
	return ans
}

func (lock *NativeFSLock) lockExists() bool {
	return lock.file != nil
}

func (lock *NativeFSLock) Obtain() (ok bool, err error) {
	lock.Lock()
	defer lock.Unlock()

	if lock.lockExists() {
		// Our instance is already locked:
		return false, nil
	}

	// Ensure that lockDir exists and is a directory.
	if err = os.MkdirAll(lock.lockDir, 0755); err != nil {
		return false, errors.Wrapf(err, "Cannot create directory: %v", lock.lockDir)
	}
	canonical, err := filepath.Abs(lock.path)
	if err != nil {
		return false, errors.WithStack(err)
	}

	nativeLocksHeld.Lock()
	defer nativeLocksHeld.Unlock()
	if nativeLocksHeld.paths[canonical] {
		// someone else in this process holds it
		return false, nil
	}

	f, err := os.OpenFile(lock.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return false, errors.Wrapf(err, "cannot open lock file %v", lock.path)
	}
	if ok, err = tryLockFile(f); !ok {
		// At least on OS X, we will sometimes get an intermittent
		// "Permission Denied" error here; record it as the reason.
		lock.failureReason = err
		f.Close()
		return false, nil
	}
	lock.file = f
	nativeLocksHeld.paths[canonical] = true
	log.Debugf("Obtained native lock %v", lock.path)
	return true, nil
}

func (lock *NativeFSLock) Close() error {
	lock.Lock()
	defer lock.Unlock()

	if !lock.lockExists() {
		return nil
	}
	canonical, _ := filepath.Abs(lock.path)
	err := unlockFile(lock.file)
	if err2 := lock.file.Close(); err == nil {
		err = err2
	}
	lock.file = nil
	nativeLocksHeld.Lock()
	delete(nativeLocksHeld.paths, canonical)
	nativeLocksHeld.Unlock()
	// we don't care if the file cannot be deleted, the OS lock is gone
	os.Remove(lock.path)
	log.Debugf("Released native lock %v", lock.path)
	return errors.Wrapf(err, "failed to release lock %v", lock.path)
}

func (lock *NativeFSLock) IsLocked() (bool, error) {
	lock.Lock()
	held := lock.lockExists()
	lock.Unlock()
	if held {
		return true, nil
	}
	// Look if lock file is present; if not, there can definitely be
	// no lock!
	if _, err := os.Stat(lock.path); os.IsNotExist(err) {
		return false, nil
	}
	// Try to obtain and release (if was locked) the lock
	obtained, err := lock.Obtain()
	if err != nil {
		return false, err
	}
	if obtained {
		if err = lock.Close(); err != nil {
			return false, err
		}
	}
	return !obtained, nil
}

func (lock *NativeFSLock) String() string {
	return fmt.Sprintf("NativeFSLock@%v", lock.path)
}
