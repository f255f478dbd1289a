package util

import (
	"fmt"
	"io"
)

// util/IOUtils.java

/*
CompoundError carries a primary error plus the errors suppressed while
cleaning up after it. The primary error stays the Cause(), so type
checks such as IsCorruptIndex() see through the compound.
*/
type CompoundError struct {
	errs []error
}

func (e *CompoundError) Error() string {
	if len(e.errs) == 1 {
		return e.errs[0].Error()
	}
	return fmt.Sprintf("%v (and %v suppressed)", e.errs[0], len(e.errs)-1)
}

func (e *CompoundError) Cause() error { return e.errs[0] }

func (e *CompoundError) Suppressed() []error { return e.errs[1:] }

func addSuppressed(err error, suppressed error) error {
	if suppressed == nil || err == suppressed {
		return err
	}
	if err == nil {
		return suppressed
	}
	if ce, ok := err.(*CompoundError); ok {
		ce.errs = append(ce.errs, suppressed)
		return ce
	}
	return &CompoundError{[]error{err, suppressed}}
}

/*
Closes all given objects, after priorErr has already happened. If
priorErr is not nil it is returned with every close error attached as
suppressed; otherwise the first close error is returned.
*/
func CloseWhileHandlingError(priorErr error, objects ...io.Closer) error {
	err := priorErr
	for _, object := range objects {
		if object == nil {
			continue
		}
		err = addSuppressed(err, object.Close())
	}
	return err
}

/* Closes all given objects, ignoring every error. */
func CloseWhileSuppressingError(objects ...io.Closer) {
	for _, object := range objects {
		if object == nil {
			continue
		}
		object.Close()
	}
}

/*
Closes all given objects. Every object is closed even if an earlier
one fails; the first error is returned.
*/
func Close(objects ...io.Closer) error {
	return CloseWhileHandlingError(nil, objects...)
}

type FileDeleter interface {
	DeleteFile(name string) error
}

/*
Deletes all given files, suppressing all throw errors.

Note that the files should not be nil.
*/
func DeleteFilesIgnoringErrors(dir FileDeleter, files ...string) {
	for _, name := range files {
		dir.DeleteFile(name) // ignore error
	}
}

// CloserFunc adapts a function to io.Closer.
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }
