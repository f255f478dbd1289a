package store

import (
	"fmt"

	"github.com/balzaczyy/gostore/core/util"
	"github.com/pkg/errors"
)

// store/BufferedIndexInput.java

/*
SeekReader is what a concrete backend supplies to BufferedIndexInput.
readInternal() reads exactly len(buf) bytes starting at the current
FilePointer() of the BufferedIndexInput; seekInternal() moves any
OS-level cursor and is a no-op for position based reads.
*/
type SeekReader interface {
	seekInternal(pos int64) error
	readInternal(buf []byte) error
	Length() int64
}

/*
Backends that know when they were closed implement openChecker; every
read and seek consults it first, so buffered bytes are not served
after Close().
*/
type openChecker interface {
	ensureOpen() error
}

/* Minimum buffer size allowed */
const MIN_BUFFER_SIZE = 8

/*
Base implementation class for buffered IndexInput.

Invariant: 0 <= bufferPosition <= bufferLength <= bufferSize, and
FilePointer() == bufferStart + bufferPosition.
*/
type BufferedIndexInput struct {
	*IndexInputImpl
	spi            SeekReader
	checker        openChecker // nil if spi cannot tell
	bufferSize     int
	buffer         []byte
	bufferStart    int64 // position in file of buffer
	bufferLength   int   // end of valid bytes
	bufferPosition int   // next byte to read
}

func newBufferedIndexInput(spi SeekReader, desc string, context IOContext) *BufferedIndexInput {
	return newBufferedIndexInputBySize(spi, desc, bufferSize(context))
}

func newBufferedIndexInputBySize(spi SeekReader, desc string, bufferSize int) *BufferedIndexInput {
	checkBufferSize(bufferSize)
	ans := &BufferedIndexInput{spi: spi, bufferSize: bufferSize}
	ans.checker, _ = spi.(openChecker)
	ans.IndexInputImpl = NewIndexInputImpl(desc, ans)
	return ans
}

func (in *BufferedIndexInput) ensureOpen() error {
	if in.checker == nil {
		return nil
	}
	return in.checker.ensureOpen()
}

func checkBufferSize(bufferSize int) {
	assert2(bufferSize >= MIN_BUFFER_SIZE,
		"bufferSize must be at least MIN_BUFFER_SIZE (got %v)",
		bufferSize)
}

/* Change the buffer size used by this IndexInput */
func (in *BufferedIndexInput) SetBufferSize(newSize int) {
	assertTrue(in.buffer == nil || in.bufferSize == len(in.buffer))
	if newSize == in.bufferSize {
		return
	}
	checkBufferSize(newSize)
	in.bufferSize = newSize
	if in.buffer != nil {
		// Resize the existing buffer and carefully save as many bytes
		// as possible starting from the current bufferPosition
		newBuffer := make([]byte, newSize)
		numToCopy := in.bufferLength - in.bufferPosition
		if numToCopy > newSize {
			numToCopy = newSize
		}
		copy(newBuffer, in.buffer[in.bufferPosition:in.bufferPosition+numToCopy])
		in.bufferStart += int64(in.bufferPosition)
		in.bufferPosition = 0
		in.bufferLength = numToCopy
		in.buffer = newBuffer
	}
}

/* Returns buffer size. */
func (in *BufferedIndexInput) BufferSize() int {
	return in.bufferSize
}

func (in *BufferedIndexInput) ReadByte() (b byte, err error) {
	if err = in.ensureOpen(); err != nil {
		return
	}
	if in.bufferPosition >= in.bufferLength {
		if err = in.refill(); err != nil {
			return 0, err
		}
	}
	b = in.buffer[in.bufferPosition]
	in.bufferPosition++
	return
}

func (in *BufferedIndexInput) ReadBytes(buf []byte) error {
	return in.ReadBytesBuffered(buf, true)
}

func (in *BufferedIndexInput) ReadBytesBuffered(buf []byte, useBuffer bool) error {
	if err := in.ensureOpen(); err != nil {
		return err
	}
	available := in.bufferLength - in.bufferPosition
	if length := len(buf); length <= available {
		// the buffer contains enough data to satisfy this request
		if length > 0 {
			copy(buf, in.buffer[in.bufferPosition:in.bufferPosition+length])
		}
		in.bufferPosition += length
		return nil
	}
	// the buffer does not have enough data. First serve all we've got.
	if available > 0 {
		copy(buf, in.buffer[in.bufferPosition:in.bufferPosition+available])
		buf = buf[available:]
		in.bufferPosition += available
	}
	// and now, read the remaining 'len' bytes:
	if length := len(buf); useBuffer && length < in.bufferSize {
		// If the amount left to read is small enough, and we are
		// allowed to use our buffer, do it in the usual buffered way:
		// fill the buffer and copy from it:
		if err := in.refill(); err != nil {
			return err
		}
		if in.bufferLength < length {
			// Throw an error when refill() could not read len bytes:
			copy(buf, in.buffer[0:in.bufferLength])
			in.bufferPosition = in.bufferLength
			return util.NewEOFError("read past EOF", in)
		}
		copy(buf, in.buffer[0:length])
		in.bufferPosition += length
		return nil
	}
	// The amount left to read is larger than the buffer or we've been
	// asked to not use our buffer - there's no performance reason not
	// to read it all at once. Note that unlike the previous code of
	// this function, there is no need to do a seek here, because
	// there's no need to reread what we had in the buffer.
	after := in.bufferStart + int64(in.bufferPosition) + int64(len(buf))
	if after > in.spi.Length() {
		return util.NewEOFError("read past EOF", in)
	}
	if err := in.spi.readInternal(buf); err != nil {
		return err
	}
	in.bufferStart = after
	in.bufferPosition = 0
	in.bufferLength = 0 // trigger refill() on read
	return nil
}

func (in *BufferedIndexInput) ReadShort() (n int16, err error) {
	if err = in.ensureOpen(); err != nil {
		return
	}
	if 2 <= in.bufferLength-in.bufferPosition {
		in.bufferPosition += 2
		return (int16(in.buffer[in.bufferPosition-2]) << 8) | int16(in.buffer[in.bufferPosition-1]), nil
	}
	return in.DataInputImpl.ReadShort()
}

func (in *BufferedIndexInput) ReadInt() (n int32, err error) {
	if err = in.ensureOpen(); err != nil {
		return
	}
	if 4 <= in.bufferLength-in.bufferPosition {
		in.bufferPosition += 4
		return (int32(in.buffer[in.bufferPosition-4]) << 24) | (int32(in.buffer[in.bufferPosition-3]) << 16) |
			(int32(in.buffer[in.bufferPosition-2]) << 8) | int32(in.buffer[in.bufferPosition-1]), nil
	}
	return in.DataInputImpl.ReadInt()
}

func (in *BufferedIndexInput) ReadLong() (n int64, err error) {
	if err = in.ensureOpen(); err != nil {
		return
	}
	if 8 <= in.bufferLength-in.bufferPosition {
		for _, b := range in.buffer[in.bufferPosition : in.bufferPosition+8] {
			n = (n << 8) | int64(b)
		}
		in.bufferPosition += 8
		return n, nil
	}
	return in.DataInputImpl.ReadLong()
}

func (in *BufferedIndexInput) ReadVInt() (n int32, err error) {
	if err = in.ensureOpen(); err != nil {
		return
	}
	if 5 <= in.bufferLength-in.bufferPosition {
		n, size, err := util.DecodeVInt(in.buffer[in.bufferPosition:in.bufferLength])
		in.bufferPosition += size
		return n, err
	}
	return in.DataInputImpl.ReadVInt()
}

func (in *BufferedIndexInput) ReadVLong() (n int64, err error) {
	if err = in.ensureOpen(); err != nil {
		return
	}
	if 9 <= in.bufferLength-in.bufferPosition {
		n, size, err := util.DecodeVLong(in.buffer[in.bufferPosition:in.bufferLength])
		in.bufferPosition += size
		return n, err
	}
	return in.DataInputImpl.ReadVLong()
}

func (in *BufferedIndexInput) refill() error {
	start := in.bufferStart + int64(in.bufferPosition)
	end := start + int64(in.bufferSize)
	if n := in.spi.Length(); end > n { // don't read past EOF
		end = n
	}
	newLength := int(end - start)
	if newLength <= 0 {
		return util.NewEOFError("read past EOF", in)
	}

	if in.buffer == nil {
		in.buffer = make([]byte, in.bufferSize) // allocate buffer lazily
		if err := in.spi.seekInternal(in.bufferStart); err != nil {
			return err
		}
	}
	if err := in.spi.readInternal(in.buffer[0:newLength]); err != nil {
		return err
	}
	in.bufferLength = newLength
	in.bufferStart = start
	in.bufferPosition = 0
	return nil
}

func (in *BufferedIndexInput) FilePointer() int64 {
	return in.bufferStart + int64(in.bufferPosition)
}

func (in *BufferedIndexInput) Seek(pos int64) error {
	if err := in.ensureOpen(); err != nil {
		return err
	}
	if pos < 0 {
		return errors.Errorf("Seeking to negative position: %v", in)
	}
	if pos >= in.bufferStart && pos < in.bufferStart+int64(in.bufferLength) {
		in.bufferPosition = int(pos - in.bufferStart) // seek within buffer
		return nil
	}
	in.bufferStart = pos
	in.bufferPosition = 0
	in.bufferLength = 0 // trigger refill() on read()
	return in.spi.seekInternal(pos)
}

/*
Returns a blank copy positioned at the current file pointer and
reading through spi. The buffer is not shared: the clone allocates
its own on first read.
*/
func (in *BufferedIndexInput) cloneFor(spi SeekReader) *BufferedIndexInput {
	ans := &BufferedIndexInput{
		spi:         spi,
		bufferSize:  in.bufferSize,
		bufferStart: in.FilePointer(),
	}
	ans.checker, _ = spi.(openChecker)
	ans.IndexInputImpl = NewIndexInputImpl(in.desc, ans)
	return ans
}

/*
Implementation of an IndexInput that reads from a portion of another
IndexInput. Used for inputs that cannot slice themselves natively.
*/
type SlicedIndexInput struct {
	*BufferedIndexInput
	base       IndexInput
	fileOffset int64
	length     int64
	closed     bool
}

/*
Creates a slice of base at [offset, offset+length), reading through
a clone of base.
*/
func wrapSlice(desc string, base IndexInput, offset, length int64, bufferSize int) (IndexInput, error) {
	if offset < 0 || length < 0 || offset+length > base.Length() {
		return nil, errors.Errorf("slice() %v out of bounds: %v", desc, base)
	}
	ans := &SlicedIndexInput{base: base.Clone(), fileOffset: offset, length: length}
	ans.BufferedIndexInput = newBufferedIndexInputBySize(ans, fmt.Sprintf(
		"SlicedIndexInput(%v in %v)", desc, base), bufferSize)
	return ans, nil
}

func (in *SlicedIndexInput) readInternal(buf []byte) (err error) {
	start := in.FilePointer()
	if start+int64(len(buf)) > in.length {
		return util.NewEOFError("read past EOF", in)
	}
	if err = in.base.Seek(in.fileOffset + start); err != nil {
		return err
	}
	return in.base.ReadBytesBuffered(buf, false)
}

func (in *SlicedIndexInput) seekInternal(pos int64) error {
	return nil // nothing
}

func (in *SlicedIndexInput) ensureOpen() error {
	if in.closed {
		return newAlreadyClosedError("Already closed: %v", in)
	}
	return nil
}

func (in *SlicedIndexInput) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	return in.base.Close()
}

func (in *SlicedIndexInput) Length() int64 {
	return in.length
}

func (in *SlicedIndexInput) Clone() IndexInput {
	ans := &SlicedIndexInput{
		base:       in.base.Clone(),
		fileOffset: in.fileOffset,
		length:     in.length,
	}
	ans.BufferedIndexInput = in.BufferedIndexInput.cloneFor(ans)
	return ans
}

func (in *SlicedIndexInput) Slice(desc string, offset, length int64) (IndexInput, error) {
	if offset < 0 || length < 0 || offset+length > in.length {
		return nil, errors.Errorf("slice() %v out of bounds: %v", desc, in)
	}
	return wrapSlice(desc, in.base, in.fileOffset+offset, length, in.bufferSize)
}
