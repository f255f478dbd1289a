package store

import (
	"fmt"
	"sync"
)

// store/SingleInstanceLockFactory.java

/*
Implements LockFactory for a single in-process instance, meaning all
locking will take place through this one instance. Only use this
LockFactory when you are certain all writers for a given index are
running against a single shared in-process Directory instance. This
is currently the default locking for RAMDirectory.
*/
type SingleInstanceLockFactory struct {
	*LockFactoryImpl
	sync.Locker
	locks map[string]bool
}

func NewSingleInstanceLockFactory() *SingleInstanceLockFactory {
	return &SingleInstanceLockFactory{
		LockFactoryImpl: &LockFactoryImpl{},
		Locker:          &sync.Mutex{},
		locks:           make(map[string]bool),
	}
}

func (fac *SingleInstanceLockFactory) Make(name string) Lock {
	// We do not use the LockPrefix at all, because the private map
	// instance effectively scopes the locking to this single Directory
	// instance.
	ans := &SingleInstanceLock{name: name, factory: fac}
	ans.LockImpl = NewLockImpl(ans)
	return ans
}

func (fac *SingleInstanceLockFactory) Clear(name string) error {
	fac.Lock()
	defer fac.Unlock()
	delete(fac.locks, name)
	return nil
}

func (fac *SingleInstanceLockFactory) String() string {
	return fmt.Sprintf("SingleInstanceLockFactory@%p", fac)
}

type SingleInstanceLock struct {
	*LockImpl
	name     string
	factory  *SingleInstanceLockFactory
	obtained bool
}

func (lock *SingleInstanceLock) Obtain() (bool, error) {
	lock.factory.Lock()
	defer lock.factory.Unlock()
	if lock.factory.locks[lock.name] {
		return false, nil
	}
	lock.factory.locks[lock.name] = true
	lock.obtained = true
	return true, nil
}

func (lock *SingleInstanceLock) Close() error {
	lock.factory.Lock()
	defer lock.factory.Unlock()
	if lock.obtained {
		delete(lock.factory.locks, lock.name)
		lock.obtained = false
	}
	return nil
}

func (lock *SingleInstanceLock) IsLocked() (bool, error) {
	lock.factory.Lock()
	defer lock.factory.Unlock()
	return lock.factory.locks[lock.name], nil
}

func (lock *SingleInstanceLock) String() string {
	return fmt.Sprintf("SingleInstanceLock: %v", lock.name)
}
