package store

import (
	"bytes"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bytesWriteCloser struct {
	bytes.Buffer
	writes int
	closed bool
}

func (w *bytesWriteCloser) Write(p []byte) (int, error) {
	w.writes++
	return w.Buffer.Write(p)
}

func (w *bytesWriteCloser) Close() error {
	w.closed = true
	return nil
}

func TestBufferedOutputSmallAndLargeWrites(t *testing.T) {
	sink := &bytesWriteCloser{}
	out := newOutputStreamIndexOutput(sink, 64)
	expected := testBytes(1000)

	require.NoError(t, out.WriteByte(expected[0]))
	require.NoError(t, out.WriteBytes(expected[1:30]))
	// fills and flushes the buffer piecewise
	require.NoError(t, out.WriteBytes(expected[30:80]))
	// larger than the buffer: bypasses it
	require.NoError(t, out.WriteBytes(expected[80:900]))
	require.NoError(t, out.WriteBytes(expected[900:]))
	assert.Equal(t, int64(1000), out.FilePointer())

	cs, err := out.Checksum()
	require.NoError(t, err)
	assert.Equal(t, int64(crc32.ChecksumIEEE(expected)), cs)

	require.NoError(t, out.Close())
	require.NoError(t, out.Close())
	assert.True(t, sink.closed)
	assert.Equal(t, expected, sink.Bytes())

	// checksum stays available after close
	cs2, err := out.Checksum()
	require.NoError(t, err)
	assert.Equal(t, cs, cs2)

	assert.True(t, IsAlreadyClosed(out.WriteByte(1)))
	assert.True(t, IsAlreadyClosed(out.WriteBytes([]byte{1, 2})))
}

func TestBufferedOutputFullBufferFlushes(t *testing.T) {
	sink := &bytesWriteCloser{}
	out := newOutputStreamIndexOutput(sink, 16)
	require.NoError(t, out.WriteBytes(make([]byte, 16)))
	assert.Equal(t, 1, sink.writes)
	assert.Equal(t, 16, sink.Len())
	require.NoError(t, out.WriteInt(7))
	assert.Equal(t, 16, sink.Len())
	require.NoError(t, out.Close())
	assert.Equal(t, 20, sink.Len())
}

func TestRAMOutputWriteTo(t *testing.T) {
	out := NewRAMOutputStreamBuffer()
	data := testBytes(5000)
	require.NoError(t, out.WriteBytes(data))

	dest := NewRAMOutputStreamBuffer()
	require.NoError(t, out.WriteTo(dest))
	require.NoError(t, dest.Close())
	assert.Equal(t, int64(len(data)), dest.File().Length())

	in := newRAMInputStream("dest", dest.File())
	buf := make([]byte, len(data))
	require.NoError(t, in.ReadBytes(buf))
	assert.Equal(t, data, buf)
}
