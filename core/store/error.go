package store

import (
	"fmt"

	"github.com/pkg/errors"
)

// FileNotFoundError is returned when a named file does not exist in a
// Directory. Callers probing for optional files are expected to check
// for it with IsFileNotFound().
type FileNotFoundError struct {
	Name string
	Dir  string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("%v not found in %v", e.Name, e.Dir)
}

func newFileNotFoundError(name string, dir interface{}) error {
	return errors.WithStack(&FileNotFoundError{name, fmt.Sprintf("%v", dir)})
}

func IsFileNotFound(err error) bool {
	_, ok := errors.Cause(err).(*FileNotFoundError)
	return ok
}

// AlreadyClosedError is returned by any operation on a disposed
// Directory, input, output, lock or compound file writer.
type AlreadyClosedError struct {
	Msg string
}

func (e *AlreadyClosedError) Error() string {
	return e.Msg
}

func newAlreadyClosedError(format string, args ...interface{}) error {
	return errors.WithStack(&AlreadyClosedError{fmt.Sprintf(format, args...)})
}

func IsAlreadyClosed(err error) bool {
	_, ok := errors.Cause(err).(*AlreadyClosedError)
	return ok
}

// UnsupportedOperationError is returned when a resource refuses an
// operation, e.g. mutating a sealed compound file.
type UnsupportedOperationError struct {
	Op       string
	Resource string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("%v is not supported by %v", e.Op, e.Resource)
}

func newUnsupportedOperationError(op string, resource interface{}) error {
	return errors.WithStack(&UnsupportedOperationError{op, fmt.Sprintf("%v", resource)})
}

func IsUnsupportedOperation(err error) bool {
	_, ok := errors.Cause(err).(*UnsupportedOperationError)
	return ok
}

// LockObtainFailedError is returned when a lock could not be obtained
// within the requested timeout. Reason holds the root cause, if any.
type LockObtainFailedError struct {
	Msg    string
	Reason error
}

func (e *LockObtainFailedError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("%v: %v", e.Msg, e.Reason)
	}
	return e.Msg
}

func IsLockObtainFailed(err error) bool {
	_, ok := errors.Cause(err).(*LockObtainFailedError)
	return ok
}

type NoSuchDirectoryError struct {
	Msg string
}

func (e *NoSuchDirectoryError) Error() string {
	return e.Msg
}

func newNoSuchDirectoryError(format string, args ...interface{}) error {
	return errors.WithStack(&NoSuchDirectoryError{fmt.Sprintf(format, args...)})
}

func IsNoSuchDirectory(err error) bool {
	_, ok := errors.Cause(err).(*NoSuchDirectoryError)
	return ok
}
