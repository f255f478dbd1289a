package store

import (
	"fmt"
	"sync/atomic"

	"github.com/balzaczyy/gostore/core/store"
)

// store/BaseDirectoryWrapper.java

/*
Delegates everything to the wrapped directory and remembers whether
it was closed.
do NOT make any methods in this class synchronized, volatile
no randoms, no nothing.
*/
type BaseDirectoryWrapper struct {
	store.Directory // our in directory
	isOpen          int32
}

func NewBaseDirectoryWrapper(delegate store.Directory) *BaseDirectoryWrapper {
	return &BaseDirectoryWrapper{Directory: delegate, isOpen: 1}
}

func (dw *BaseDirectoryWrapper) IsOpen() bool {
	return atomic.LoadInt32(&dw.isOpen) == 1
}

func (dw *BaseDirectoryWrapper) Close() error {
	atomic.StoreInt32(&dw.isOpen, 0)
	return dw.Directory.Close()
}

func (dw *BaseDirectoryWrapper) Delegate() store.Directory {
	return dw.Directory
}

func (dw *BaseDirectoryWrapper) String() string {
	return fmt.Sprintf("BaseDirectoryWrapper(%v)", dw.Directory)
}
