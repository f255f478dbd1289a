package store

import (
	"sync/atomic"
)

// store/BaseDirectory.java

type BaseDirectorySPI interface {
	LockID() string
}

/* Base implementation for a concrete Directory. */
type BaseDirectory struct {
	spi         BaseDirectorySPI
	isOpen      int32
	lockFactory LockFactory
}

func NewBaseDirectory(spi BaseDirectorySPI) *BaseDirectory {
	assertTrue(spi != nil)
	return &BaseDirectory{spi: spi, isOpen: 1}
}

func (d *BaseDirectory) MakeLock(name string) (Lock, error) {
	if err := d.EnsureOpen(); err != nil {
		return nil, err
	}
	return d.lockFactory.Make(name), nil
}

func (d *BaseDirectory) ClearLock(name string) error {
	if d.lockFactory != nil {
		return d.lockFactory.Clear(name)
	}
	return nil
}

func (d *BaseDirectory) SetLockFactory(lockFactory LockFactory) {
	assertTrue(lockFactory != nil)
	d.lockFactory = lockFactory
	d.lockFactory.SetLockPrefix(d.spi.LockID())
}

func (d *BaseDirectory) LockFactory() LockFactory {
	return d.lockFactory
}

/* Returns false once the directory has been closed. */
func (d *BaseDirectory) IsOpen() bool {
	return atomic.LoadInt32(&d.isOpen) == 1
}

/* Marks the directory closed. Returns false if it already was. */
func (d *BaseDirectory) markClosed() bool {
	return atomic.CompareAndSwapInt32(&d.isOpen, 1, 0)
}

/* Returns AlreadyClosedError if this Directory is closed. */
func (d *BaseDirectory) EnsureOpen() error {
	if !d.IsOpen() {
		return newAlreadyClosedError("this Directory is closed")
	}
	return nil
}
