package codec

import (
	"fmt"

	"github.com/pkg/errors"
)

// index/IndexFormatTooOldException.java, index/IndexFormatTooNewException.java

type IndexFormatTooOldError struct {
	Resource                        string
	Version, MinVersion, MaxVersion int32
}

func (e *IndexFormatTooOldError) Error() string {
	return fmt.Sprintf(
		"Format version is not supported (resource: %v): %v (needs to be between %v and %v). This version only supports files created with a newer release.",
		e.Resource, e.Version, e.MinVersion, e.MaxVersion)
}

type IndexFormatTooNewError struct {
	Resource                        string
	Version, MinVersion, MaxVersion int32
}

func (e *IndexFormatTooNewError) Error() string {
	return fmt.Sprintf(
		"Format version is not supported (resource: %v): %v (needs to be between %v and %v)",
		e.Resource, e.Version, e.MinVersion, e.MaxVersion)
}

func NewIndexFormatTooOldError(in interface{}, version, minVersion, maxVersion int32) error {
	return errors.WithStack(&IndexFormatTooOldError{fmt.Sprintf("%v", in), version, minVersion, maxVersion})
}

func NewIndexFormatTooNewError(in interface{}, version, minVersion, maxVersion int32) error {
	return errors.WithStack(&IndexFormatTooNewError{fmt.Sprintf("%v", in), version, minVersion, maxVersion})
}

// IsUnsupportedFormat reports a header version outside the range the
// reader accepts, whether too old or too new.
func IsUnsupportedFormat(err error) bool {
	switch errors.Cause(err).(type) {
	case *IndexFormatTooOldError, *IndexFormatTooNewError:
		return true
	}
	return false
}
