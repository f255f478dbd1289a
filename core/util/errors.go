package util

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

/*
CorruptIndexError is returned when a check detects that the bytes read
from a resource are not what they should be: a malformed vInt, a bad
magic number, a checksum mismatch, a duplicate entry in an entry table.
It is never retried.
*/
type CorruptIndexError struct {
	Msg      string
	Resource string
}

func (e *CorruptIndexError) Error() string {
	if e.Resource == "" {
		return e.Msg
	}
	return fmt.Sprintf("%v (resource=%v)", e.Msg, e.Resource)
}

func NewCorruptIndexError(msg, resource string) error {
	return errors.WithStack(&CorruptIndexError{msg, resource})
}

func NewCorruptIndexErrorf(resource string, format string, args ...interface{}) error {
	return errors.WithStack(&CorruptIndexError{fmt.Sprintf(format, args...), resource})
}

func IsCorruptIndex(err error) bool {
	_, ok := errors.Cause(err).(*CorruptIndexError)
	return ok
}

// EOFError signals a read past the declared length of a resource.
type EOFError struct {
	Msg      string
	Resource string
}

func (e *EOFError) Error() string {
	if e.Resource == "" {
		return e.Msg
	}
	return fmt.Sprintf("%v: %v", e.Msg, e.Resource)
}

func NewEOFError(msg string, resource interface{}) error {
	return errors.WithStack(&EOFError{msg, fmt.Sprintf("%v", resource)})
}

// IsEOF also accepts a bare io.EOF coming from a wrapped reader.
func IsEOF(err error) bool {
	switch errors.Cause(err).(type) {
	case *EOFError:
		return true
	}
	return errors.Cause(err) == io.EOF || errors.Cause(err) == io.ErrUnexpectedEOF
}
