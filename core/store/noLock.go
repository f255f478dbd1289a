package store

// store/NoLockFactory.java

/*
Use this LockFactory to disable locking entirely. Only one instance
of this lock is created. You should call NoLockFactoryInstance() to
get the instance.

NOTE: this removes all cross-process and in-process safety. Two
writers on the same index will corrupt it.
*/
type NoLockFactory struct {
	*LockFactoryImpl
}

var (
	singletonLock        = newNoLock()
	singletonLockFactory = &NoLockFactory{&LockFactoryImpl{}}
)

func NoLockFactoryInstance() *NoLockFactory {
	return singletonLockFactory
}

func (f *NoLockFactory) Make(name string) Lock {
	return singletonLock
}

func (f *NoLockFactory) Clear(name string) error {
	return nil
}

func (f *NoLockFactory) String() string {
	return "NoLockFactory"
}

type NoLock struct {
	*LockImpl
}

func newNoLock() *NoLock {
	ans := &NoLock{}
	ans.LockImpl = NewLockImpl(ans)
	return ans
}

func (lock *NoLock) Obtain() (bool, error)   { return true, nil }
func (lock *NoLock) Close() error            { return nil }
func (lock *NoLock) IsLocked() (bool, error) { return false, nil }
func (lock *NoLock) String() string          { return "NoLock" }
