package store

import (
	"io"

	"github.com/balzaczyy/gostore/core/util"
)

// store/IndexOutput.java

/*
Abstract base class for output to a file in a Directory. A
random-access output stream. Used for all Lucene index output
operations.

IndexOutput may only be used from one goroutine, because it is not
thread safe (it keeps internal state like file position).
*/
type IndexOutput interface {
	io.Closer
	util.DataOutput
	// Returns the current position in this file, where the next write
	// will occur.
	FilePointer() int64
	// Returns the current checksum of bytes written so far.
	Checksum() (int64, error)
}

type IndexOutputImpl struct {
	*util.DataOutputImpl
}

func NewIndexOutput(part util.DataWriter) *IndexOutputImpl {
	return &IndexOutputImpl{util.NewDataOutput(part)}
}
