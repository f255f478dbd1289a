package store

import (
	"hash"
	"hash/crc32"
)

// store/BufferedIndexOutput.java

/* The default buffer size in bytes. */
const DEFAULT_BUFFER_SIZE = 16384

// flushBufferer is what a concrete backend supplies to
// BufferedIndexOutput: it writes b to the underlying sink.
type flushBufferer interface {
	flushBuffer(b []byte) error
}

/*
Base implementation class for buffered IndexOutput.

The running CRC-32 is updated as bytes reach the sink, never while
they sit in the buffer.
*/
type BufferedIndexOutput struct {
	*IndexOutputImpl
	spi            flushBufferer
	bufferSize     int
	buffer         []byte
	bufferStart    int64 // position in file of buffer
	bufferPosition int   // position in buffer
	crc            hash.Hash32
	closed         bool
}

func newBufferedIndexOutput(spi flushBufferer) *BufferedIndexOutput {
	return newBufferedIndexOutputBySize(spi, DEFAULT_BUFFER_SIZE)
}

func newBufferedIndexOutputBySize(spi flushBufferer, bufferSize int) *BufferedIndexOutput {
	assert2(bufferSize > 0, "bufferSize must be greater than 0 (got %v)", bufferSize)
	ans := &BufferedIndexOutput{
		spi:        spi,
		bufferSize: bufferSize,
		buffer:     make([]byte, bufferSize),
		crc:        crc32.NewIEEE(),
	}
	ans.IndexOutputImpl = NewIndexOutput(ans)
	return ans
}

func (out *BufferedIndexOutput) ensureOpen() error {
	if out.closed {
		return newAlreadyClosedError("this IndexOutput is closed")
	}
	return nil
}

func (out *BufferedIndexOutput) WriteByte(b byte) error {
	if err := out.ensureOpen(); err != nil {
		return err
	}
	if out.bufferPosition >= out.bufferSize {
		if err := out.Flush(); err != nil {
			return err
		}
	}
	out.buffer[out.bufferPosition] = b
	out.bufferPosition++
	return nil
}

func (out *BufferedIndexOutput) WriteBytes(buf []byte) error {
	if err := out.ensureOpen(); err != nil {
		return err
	}
	length := len(buf)
	bytesLeft := out.bufferSize - out.bufferPosition
	// is there enough space in the buffer?
	if bytesLeft >= length {
		// we add the data to the end of the buffer
		copy(out.buffer[out.bufferPosition:], buf)
		out.bufferPosition += length
		// if the buffer is full, flush it
		if out.bufferSize == out.bufferPosition {
			return out.Flush()
		}
		return nil
	}
	// is data larger then buffer?
	if length > out.bufferSize {
		// we flush the buffer
		if out.bufferPosition > 0 {
			if err := out.Flush(); err != nil {
				return err
			}
		}
		// and write data at once
		out.crc.Write(buf)
		if err := out.spi.flushBuffer(buf); err != nil {
			return err
		}
		out.bufferStart += int64(length)
		return nil
	}
	// we fill/flush the buffer (until the input is written)
	for pos := 0; pos < length; {
		pieceLength := length - pos
		if bytesLeft < pieceLength {
			pieceLength = bytesLeft
		}
		copy(out.buffer[out.bufferPosition:], buf[pos:pos+pieceLength])
		pos += pieceLength
		out.bufferPosition += pieceLength
		// if the buffer is full, flush it
		if bytesLeft = out.bufferSize - out.bufferPosition; bytesLeft == 0 {
			if err := out.Flush(); err != nil {
				return err
			}
			bytesLeft = out.bufferSize
		}
	}
	return nil
}

/* Forces any buffered output to be written. */
func (out *BufferedIndexOutput) Flush() error {
	out.crc.Write(out.buffer[:out.bufferPosition])
	if err := out.spi.flushBuffer(out.buffer[:out.bufferPosition]); err != nil {
		return err
	}
	out.bufferStart += int64(out.bufferPosition)
	out.bufferPosition = 0
	return nil
}

/*
Flushes the remaining buffer. Only the first call has an effect, so
concrete outputs can call it from their own Close() unconditionally.
*/
func (out *BufferedIndexOutput) Close() error {
	if out.closed {
		return nil
	}
	out.closed = true
	return out.Flush()
}

func (out *BufferedIndexOutput) FilePointer() int64 {
	return out.bufferStart + int64(out.bufferPosition)
}

func (out *BufferedIndexOutput) Checksum() (int64, error) {
	if !out.closed {
		if err := out.Flush(); err != nil {
			return 0, err
		}
	}
	return int64(out.crc.Sum32()), nil
}

/* Returns size of the used output buffer. */
func (out *BufferedIndexOutput) BufferSize() int {
	return out.bufferSize
}
