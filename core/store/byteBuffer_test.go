package store

import (
	"testing"

	"github.com/balzaczyy/gostore/core/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byten(int64(i))
	}
	return data
}

func newTestByteBufferInput(data []byte, power uint, cleaner func([][]byte) error) *ByteBufferIndexInput {
	chunkSize := 1 << power
	chunks := make([][]byte, len(data)>>power+1)
	for i := range chunks {
		start := i << power
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks[i] = data[start:end]
	}
	return newByteBufferIndexInput("ByteBufferIndexInput(test)", chunks, int64(len(data)), power, true, cleaner)
}

func TestByteBufferReadAcrossChunks(t *testing.T) {
	data := testBytes(1000)
	for _, power := range []uint{0, 1, 4, 10} {
		in := newTestByteBufferInput(data, power, nil)
		for size := 1; size < 300; size += 37 {
			require.NoError(t, in.Seek(0))
			buf := make([]byte, size)
			for pos := 0; pos+size <= len(data); pos += size {
				require.NoError(t, in.ReadBytes(buf))
				assert.Equal(t, data[pos:pos+size], buf)
				assert.Equal(t, int64(pos+size), in.FilePointer())
			}
		}
		for _, pos := range []int64{0, 15, 16, 17, 511, 512, 999} {
			require.NoError(t, in.Seek(pos))
			b, err := in.ReadByte()
			require.NoError(t, err)
			assert.Equal(t, data[pos], b, "power=%v pos=%v", power, pos)
		}
		require.NoError(t, in.Seek(1000))
		_, err := in.ReadByte()
		assert.True(t, util.IsEOF(err))
		require.NoError(t, in.Close())
	}
}

func TestByteBufferPrimitivesAcrossChunks(t *testing.T) {
	out := NewByteArrayDataOutput(make([]byte, 64))
	require.NoError(t, out.WriteBytes([]byte{1, 2, 3}))
	require.NoError(t, out.WriteInt(0x01020304))
	require.NoError(t, out.WriteLong(-42))
	require.NoError(t, out.WriteVInt(1<<30))
	require.NoError(t, out.WriteVLong(1<<62))
	require.NoError(t, out.WriteShort(0x0506))
	data := make([]byte, out.Position())
	copy(data, out.bytes)

	in := newTestByteBufferInput(data, 2, nil)
	require.NoError(t, in.Seek(3))
	i, err := in.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int32(0x01020304), i)
	l, err := in.ReadLong()
	require.NoError(t, err)
	assert.Equal(t, int64(-42), l)
	vi, err := in.ReadVInt()
	require.NoError(t, err)
	assert.Equal(t, int32(1<<30), vi)
	vl, err := in.ReadVLong()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<62), vl)
	s, err := in.ReadShort()
	require.NoError(t, err)
	assert.Equal(t, int16(0x0506), s)
}

func TestByteBufferSeekBounds(t *testing.T) {
	in := newTestByteBufferInput(testBytes(100), 4, nil)
	assert.Error(t, in.Seek(-1))
	assert.True(t, util.IsEOF(in.Seek(101)))
	// a failed seek leaves the position alone
	require.NoError(t, in.Seek(42))
	assert.Error(t, in.Seek(1000))
	assert.Equal(t, int64(42), in.FilePointer())
}

func TestByteBufferEmpty(t *testing.T) {
	in := newTestByteBufferInput(nil, 4, nil)
	assert.Equal(t, int64(0), in.Length())
	_, err := in.ReadByte()
	assert.True(t, util.IsEOF(err))
	slice, err := in.Slice("empty", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), slice.Length())
}

func TestByteBufferSlices(t *testing.T) {
	data := testBytes(1000)
	in := newTestByteBufferInput(data, 4, nil)
	for _, r := range [][2]int64{{13, 50}, {16, 32}, {0, 1000}, {999, 1}, {500, 0}, {1000, 0}, {7, 9}} {
		offset, length := r[0], r[1]
		slice, err := in.Slice("s", offset, length)
		require.NoError(t, err)
		assert.Equal(t, length, slice.Length())
		assert.Equal(t, int64(0), slice.FilePointer())
		buf := make([]byte, length)
		require.NoError(t, slice.ReadBytes(buf))
		assert.Equal(t, data[offset:offset+length], buf)
		assert.Equal(t, length, slice.FilePointer())
		_, err = slice.ReadByte()
		assert.True(t, util.IsEOF(err), "slice %v:%v", offset, length)

		if length > 2 {
			require.NoError(t, slice.Seek(length-2))
			b, err := slice.ReadByte()
			require.NoError(t, err)
			assert.Equal(t, data[offset+length-2], b)
		}
		assert.Error(t, slice.Seek(length+1))
	}
	_, err := in.Slice("oob", 990, 11)
	assert.Error(t, err)
	_, err = in.Slice("neg", -1, 10)
	assert.Error(t, err)
}

func TestByteBufferSliceOfSlice(t *testing.T) {
	data := testBytes(1000)
	in := newTestByteBufferInput(data, 4, nil)
	slice, err := in.Slice("outer", 100, 500)
	require.NoError(t, err)

	// slices are clones, and clones cannot be sliced
	_, err = slice.Slice("inner", 10, 10)
	assert.Error(t, err)

	clone := slice.Clone()
	require.NoError(t, slice.Seek(200))
	assert.Equal(t, int64(0), clone.FilePointer())
	b, err := clone.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, data[100], b)
}

func TestByteBufferCloneAtPosition(t *testing.T) {
	data := testBytes(1000)
	in := newTestByteBufferInput(data, 4, nil)
	require.NoError(t, in.Seek(333))
	clone := in.Clone()
	assert.Equal(t, int64(333), clone.FilePointer())
	b, err := clone.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, data[333], b)
	assert.Equal(t, int64(333), in.FilePointer())
}

func TestByteBufferCloseInvalidatesClones(t *testing.T) {
	cleaned := 0
	in := newTestByteBufferInput(testBytes(1000), 4, func(chunks [][]byte) error {
		cleaned++
		assert.Len(t, chunks, 1000>>4+1)
		return nil
	})
	clone := in.Clone()
	slice, err := in.Slice("s", 10, 100)
	require.NoError(t, err)
	assert.Len(t, in.clones.clones, 2)

	// closing a clone only releases the clone
	closedClone := in.Clone()
	require.NoError(t, closedClone.Close())
	assert.Len(t, in.clones.clones, 2)
	_, err = closedClone.ReadByte()
	assert.True(t, IsAlreadyClosed(err))
	_, err = in.ReadByte()
	require.NoError(t, err)

	require.NoError(t, in.Close())
	assert.Equal(t, 1, cleaned)
	require.NoError(t, in.Close())
	assert.Equal(t, 1, cleaned, "cleaner runs once")

	_, err = clone.ReadByte()
	assert.True(t, IsAlreadyClosed(err))
	assert.True(t, IsAlreadyClosed(slice.ReadBytes(make([]byte, 4))))
	assert.True(t, IsAlreadyClosed(slice.Seek(0)))
	_, err = in.ReadInt()
	assert.True(t, IsAlreadyClosed(err))

	assert.Panics(t, func() { clone.FilePointer() })
	assert.Panics(t, func() { in.Clone() })
}
