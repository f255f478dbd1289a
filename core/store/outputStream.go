package store

import (
	"io"

	"github.com/balzaczyy/gostore/core/util"
	"github.com/pkg/errors"
)

// store/OutputStreamIndexOutput.java

/* Implementation class for buffered IndexOutput that writes to a WriteCloser. */
type OutputStreamIndexOutput struct {
	*BufferedIndexOutput
	os     io.WriteCloser
	closed bool
}

/* Creates a new OutputStreamIndexOutput with the given buffer size. */
func newOutputStreamIndexOutput(out io.WriteCloser, bufferSize int) *OutputStreamIndexOutput {
	ans := &OutputStreamIndexOutput{os: out}
	ans.BufferedIndexOutput = newBufferedIndexOutputBySize(ans, bufferSize)
	return ans
}

func (out *OutputStreamIndexOutput) flushBuffer(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := out.os.Write(b)
	return errors.WithStack(err)
}

func (out *OutputStreamIndexOutput) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true
	return util.CloseWhileHandlingError(out.BufferedIndexOutput.Close(), out.os)
}
