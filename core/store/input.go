package store

import (
	"io"

	"github.com/balzaczyy/gostore/core/util"
)

// store/IndexInput.java

/*
Abstract base class for input from a file in a Directory. A
random-access input stream. Used for all Lucene index input
operations.

IndexInput may only be used from one goroutine, because it is not
thread safe (it keeps internal state like file position). To allow
multithreaded use, every IndexInput instance must be cloned before
used in another goroutine. Subclasses must therefore implement
Clone(), returning a new IndexInput which operates on the same
underlying resource, but positioned independently. Lucene never
closes cloned IndexInputs, it will only do this on the original one.
The original instance must take care that cloned instances throw
AlreadyClosedError when the original one is closed.
*/
type IndexInput interface {
	io.Closer
	util.DataInput
	// Returns the current position in this file, where the next read
	// will occur.
	FilePointer() int64
	// Sets current position in this file, where the next read will
	// occur.
	Seek(pos int64) error
	// The number of bytes in the file.
	Length() int64
	// Returns an independent cursor over the same resource, positioned
	// where this one is.
	Clone() IndexInput
	// Creates a slice of this index input, with the given description,
	// offset, and length. The slice is seeked to the beginning.
	Slice(desc string, offset, length int64) (IndexInput, error)
	String() string
}

type IndexInputImpl struct {
	*util.DataInputImpl
	desc string
}

func NewIndexInputImpl(desc string, r util.DataReader) *IndexInputImpl {
	assert2(desc != "", "resourceDescription must not be null")
	return &IndexInputImpl{util.NewDataInput(r), desc}
}

func (in *IndexInputImpl) String() string {
	return in.desc
}

const (
	BUFFER_SIZE       = 1024
	MERGE_BUFFER_SIZE = 4096
)

func bufferSize(context IOContext) int {
	switch context.context {
	case IO_CONTEXT_TYPE_MERGE:
		// The normal read buffer size defaults to 1024, but
		// increasing this during merging seems to yield
		// performance gains.  However we don't want to increase
		// it too much because there are quite a few
		// BufferedIndexInputs created during merging.  See
		// LUCENE-888 for details.
		return MERGE_BUFFER_SIZE
	default:
		return BUFFER_SIZE
	}
}
