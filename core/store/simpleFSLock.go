package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// store/SimpleFSLockFactory.java

/*
Implements LockFactory using exclusive creation of a marker file
(O_CREATE|O_EXCL).

NOTE: exclusive creation is not reliable on every file system, NFS in
particular, so two processes may both believe they hold the lock
there. Prefer NativeFSLockFactory unless the OS lock is unavailable.

The write lock is not released when the Go program exits abnormally.
When this happens, obtaining the lock fails until the lock file is
cleared explicitly, with Clear() or by removing the file by hand. Be
certain that no writer is in fact writing to the index first,
otherwise you can easily corrupt your index.
*/
type SimpleFSLockFactory struct {
	*FSLockFactory
}

func NewSimpleFSLockFactory(lockDir string) *SimpleFSLockFactory {
	ans := &SimpleFSLockFactory{newFSLockFactory()}
	if lockDir != "" {
		ans.setLockDir(lockDir)
	}
	return ans
}

func (f *SimpleFSLockFactory) Make(name string) Lock {
	return newSimpleFSLock(f.lockDir, f.prefixed(name))
}

func (f *SimpleFSLockFactory) Clear(name string) error {
	err := os.Remove(filepath.Join(f.lockDir, f.prefixed(name)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "Cannot delete lock %v", name)
	}
	return nil
}

func (f *SimpleFSLockFactory) String() string {
	return fmt.Sprintf("SimpleFSLockFactory@%v", f.lockDir)
}

type SimpleFSLock struct {
	*LockImpl
	file, dir string
	obtained  bool
}

func newSimpleFSLock(lockDir, lockFileName string) *SimpleFSLock {
	ans := &SimpleFSLock{
		dir:  lockDir,
		file: filepath.Join(lockDir, lockFileName),
	}
	ans.LockImpl = NewLockImpl(ans)
	return ans
}

func (lock *SimpleFSLock) Obtain() (ok bool, err error) {
	// Ensure that lockDir exists and is a directory:
	fi, err := os.Stat(lock.dir)
	if err == nil {
		if !fi.IsDir() {
			return false, errors.Errorf("Found regular file where directory expected: %v", lock.dir)
		}
	} else if os.IsNotExist(err) {
		if err = os.MkdirAll(lock.dir, 0755); err != nil {
			return false, errors.Wrapf(err, "Cannot create directory: %v", lock.dir)
		}
	} else {
		return false, errors.WithStack(err)
	}

	f, err := os.OpenFile(lock.file, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		lock.failureReason = err
		return false, errors.Wrapf(err, "Cannot create lock file %v", lock.file)
	}
	lock.obtained = true
	return true, f.Close()
}

func (lock *SimpleFSLock) Close() error {
	if !lock.obtained {
		return nil
	}
	lock.obtained = false
	if err := os.Remove(lock.file); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "failed to delete %v", lock.file)
	}
	return nil
}

func (lock *SimpleFSLock) IsLocked() (bool, error) {
	_, err := os.Stat(lock.file)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.WithStack(err)
}

func (lock *SimpleFSLock) String() string {
	return fmt.Sprintf("SimpleFSLock@%v", lock.file)
}
