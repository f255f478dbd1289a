package store

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
)

// store/Lock.java

// How long ObtainWithin() waits, in milliseconds, in between attempts
// to acquire the lock.
var LOCK_POLL_INTERVAL int64 = 1000

// Pass this value to ObtainWithin() to try forever to obtain the lock.
const LOCK_OBTAIN_WAIT_FOREVER = -1

/*
An interprocess mutex lock.

Typical use might look like:

	lock, _ := directory.MakeLock("my.lock")
	err := WithLock(lock, 1000, func() error {
		// code to execute while locked
		return nil
	})
*/
type Lock interface {
	// Releases exclusive access.
	io.Closer
	// Attempts to obtain exclusive access and immediately return
	// upon success or failure. Use Close() to release the lock.
	Obtain() (ok bool, err error)
	// Attempts to obtain an exclusive lock within amount of time
	// given. Polls once per LOCK_POLL_INTERVAL (currently 1000)
	// milliseconds until lockWaitTimeout is passed.
	ObtainWithin(lockWaitTimeout int64) (ok bool, err error)
	// Returns true if the resource is currently locked. Note that one
	// must still call Obtain() before using the resource.
	IsLocked() (bool, error)
}

type LockImpl struct {
	self Lock
	// If a lock obtain called, this failureReason may be set with the
	// "root cause" error as to why the lock was not obtained
	failureReason error
}

func NewLockImpl(self Lock) *LockImpl {
	return &LockImpl{self: self}
}

func (lock *LockImpl) ObtainWithin(lockWaitTimeout int64) (bool, error) {
	return lock.ObtainContext(context.Background(), lockWaitTimeout)
}

/*
Same as ObtainWithin(), but the polling stops early, with ctx.Err(),
when ctx is done.
*/
func (lock *LockImpl) ObtainContext(ctx context.Context, lockWaitTimeout int64) (locked bool, err error) {
	if lockWaitTimeout < 0 && lockWaitTimeout != LOCK_OBTAIN_WAIT_FOREVER {
		return false, errors.Errorf(
			"lockWaitTimeout should be LOCK_OBTAIN_WAIT_FOREVER or a non-negative number (got %v)",
			lockWaitTimeout)
	}
	lock.failureReason = nil
	if locked, err = lock.self.Obtain(); err != nil || locked {
		return
	}

	interval := LOCK_POLL_INTERVAL
	maxSleepCount := lockWaitTimeout / interval
	for sleepCount := int64(0); !locked; locked, err = lock.self.Obtain() {
		if err != nil {
			return false, err
		}
		if lockWaitTimeout != LOCK_OBTAIN_WAIT_FOREVER && sleepCount >= maxSleepCount {
			return false, errors.WithStack(&LockObtainFailedError{
				Msg:    fmt.Sprintf("Lock obtain timed out: %v", lock.self),
				Reason: lock.failureReason,
			})
		}
		sleepCount++
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Duration(interval) * time.Millisecond):
		}
	}
	return
}

/*
Utility to execute code with exclusive access. Obtains the lock within
lockWaitTimeout, runs body and releases the lock. The error of body
takes precedence over the error of releasing the lock.
*/
func WithLock(lock Lock, lockWaitTimeout int64, body func() error) (err error) {
	locked, err := lock.ObtainWithin(lockWaitTimeout)
	if err != nil {
		return err
	}
	if !locked {
		return errors.WithStack(&LockObtainFailedError{Msg: fmt.Sprintf("Lock obtain failed: %v", lock)})
	}
	defer func() {
		if err2 := lock.Close(); err == nil {
			err = err2
		}
	}()
	return body()
}

/*
Base class for Locking implementation. Directory uses instances of
this class to implement locking.

Lucene uses NativeFSLockFactory by default for FSDirectory-based
index directories.

Special care needs to be taken if you change the locking
implementation: First be certain that no writer is in fact writing to
the index otherwise you can easily corrupt your index. Be sure to do
the LockFactory change on all Lucene instances and clean up all
leftover lock files before starting the new configuration for the
first time. Different implementations can not work together!
*/
type LockFactory interface {
	Make(name string) Lock
	Clear(name string) error
	SetLockPrefix(prefix string)
	LockPrefix() string
}

type LockFactoryImpl struct {
	lockPrefix string
}

func (f *LockFactoryImpl) SetLockPrefix(prefix string) {
	f.lockPrefix = prefix
}

func (f *LockFactoryImpl) LockPrefix() string {
	return f.lockPrefix
}

func (f *LockFactoryImpl) prefixed(name string) string {
	if f.lockPrefix != "" {
		return fmt.Sprintf("%v-%v", f.lockPrefix, name)
	}
	return name
}

/* Base class for file system based locking implementation. */
type FSLockFactory struct {
	*LockFactoryImpl
	lockDir string // can not be set twice
}

func newFSLockFactory() *FSLockFactory {
	return &FSLockFactory{LockFactoryImpl: &LockFactoryImpl{}}
}

/*
Set the lock directory. This method can be only called once to
initialize the lock directory. It is used by FSDirectory to set the
lock directory to itself. Subclasses can also use this method to set
the directory in the constructor.
*/
func (f *FSLockFactory) setLockDir(lockDir string) {
	assert2(f.lockDir == "", "You can set the lock directory for this factory only once.")
	f.lockDir = lockDir
}

/* Retrieve the lock directory. */
func (f *FSLockFactory) LockDir() string {
	return f.lockDir
}

func (f *FSLockFactory) String() string {
	return fmt.Sprintf("FSLockFactory@%v", f.lockDir)
}

// fsLockFactory is implemented by the factories whose lock directory
// an FSDirectory may fill in.
type fsLockFactory interface {
	LockFactory
	LockDir() string
	setLockDir(string)
}
