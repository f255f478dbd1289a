package store

import (
	"fmt"
	"io/ioutil"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/balzaczyy/gostore/core/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBytes(aFile *os.File, size int64) (err error) {
	buf := make([]byte, 0, 4096)
	for i := int64(0); i < size; i++ {
		if i%4096 == 0 && len(buf) > 0 {
			_, err = aFile.Write(buf)
			if err != nil {
				return err
			}
			buf = make([]byte, 0, 4096)
		}
		buf = append(buf, byten(i))
	}
	if len(buf) > 0 {
		_, err = aFile.Write(buf)
	}
	return err
}

const TEST_FILE_LENGTH = int64(100 * 1024)

// Call readByte() repeatedly, past the buffer boundary, and see that it
// is working as expected.
// Our input comes from a dynamically generated/ "file" - see
// MyBufferedIndexInput below.
func TestReadByte(t *testing.T) {
	input := newMyBufferedIndexInput(math.MaxInt64)
	for i := 0; i < BUFFER_SIZE*10; i++ {
		b, err := input.ReadByte()
		if err != nil {
			t.Fatal(err)
		}
		assertEquals(t, b, byten(int64(i)))
	}
}

func assertEquals(t *testing.T, a, b interface{}) {
	if a != b {
		t.Errorf("Expected '%v', but '%v'", b, a)
	}
}

// Call readBytes() repeatedly, with various chunk sizes (from 1 byte to
// larger than the buffer size), and see that it returns the bytes we expect.
// Our input comes from a dynamically generated "file" -
// see MyBufferedIndexInput below.
func TestReadBytes(t *testing.T) {
	input := newMyBufferedIndexInput(math.MaxInt64)
	err := runReadBytes(input, BUFFER_SIZE, random(), t)
	if err != nil {
		t.Error(err)
	}

	inputBufferSize := 128
	tmpDir, err := ioutil.TempDir("", "IndexInput")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)
	tmpInputFile, err := os.Create(filepath.Join(tmpDir, "IndexInput"))
	require.NoError(t, err)
	err = writeBytes(tmpInputFile, TEST_FILE_LENGTH)
	tmpInputFile.Close()
	require.NoError(t, err)

	// run test with chunk size of 10 bytes
	dir, err := NewSimpleFSDirectory(tmpDir, nil)
	require.NoError(t, err)
	defer dir.Close()
	in, err := dir.OpenInput("IndexInput", newTestIOContext(random()))
	require.NoError(t, err)
	in.(*SimpleFSIndexInput).SetBufferSize(inputBufferSize)
	err = runReadBytesAndClose(in, inputBufferSize, random(), t)
	if err != nil {
		t.Error(err)
	}
}

func random() *rand.Rand {
	seed := time.Now().Unix()
	fmt.Println("Seed: ", seed)
	return rand.New(rand.NewSource(seed))
}

func runReadBytesAndClose(input IndexInput, bufferSize int, r *rand.Rand, t *testing.T) (err error) {
	defer func() {
		err = util.CloseWhileHandlingError(err, input)
	}()

	return runReadBytes(input, bufferSize, r, t)
}

func runReadBytes(input IndexInput, bufferSize int, r *rand.Rand, t *testing.T) (err error) {
	pos := 0
	// gradually increasing size:
	for size := 1; size < bufferSize*10; size += size/200 + 1 {
		err = checkReadBytes(input, size, pos, t)
		if err != nil {
			return err
		}
		if pos += size; int64(pos) >= TEST_FILE_LENGTH { // wrap
			pos = 0
			input.Seek(0)
		}
	}
	// wildly fluctuating size:
	for i := int64(0); i < 100; i++ {
		size := r.Intn(10000)
		err = checkReadBytes(input, size+1, pos, t)
		if err != nil {
			return err
		}
		if pos += size + 1; int64(pos) >= TEST_FILE_LENGTH { // wrap
			pos = 0
			input.Seek(0)
		}
	}
	// constant small size (7 bytes):
	for i := 0; i < bufferSize; i++ {
		err = checkReadBytes(input, 7, pos, t)
		if err != nil {
			return err
		}
		if pos += 7; int64(pos) >= TEST_FILE_LENGTH { // wrap
			pos = 0
			input.Seek(0)
		}
	}
	return nil
}

var buffer []byte = make([]byte, 10)

func grow(buffer []byte, newCap int) []byte {
	if newCap <= cap(buffer) {
		return buffer[0:newCap]
	}
	ans := make([]byte, newCap)
	copy(ans, buffer)
	return ans
}

func checkReadBytes(input IndexInput, size, pos int, t *testing.T) error {
	// Just to see that "offset" is treated properly in readBytes(), we
	// add an arbitrary offset at the beginning of the array
	offset := size % 10 // arbitrary
	buffer = grow(buffer, offset+size)
	assertEquals(t, input.FilePointer(), int64(pos))
	left := TEST_FILE_LENGTH - input.FilePointer()
	if left <= 0 {
		return nil
	} else if left < int64(size) {
		size = int(left)
	}
	if err := input.ReadBytes(buffer[offset : offset+size]); err != nil {
		return err
	}
	assertEquals(t, input.FilePointer(), int64(pos+size))
	for i := 0; i < size; i++ {
		assertEquals(t, buffer[offset+i], byten(int64(pos+i)))
	}
	return nil
}

// This tests that attempts to readBytes() past an EOF will fail, while
// reads up to the EOF will succeed. The EOF is determined by the
// BufferedIndexInput's arbitrary length() value.
func TestEOF(t *testing.T) {
	input := newMyBufferedIndexInput(1024)
	// see that we can read all the bytes at one go:
	all := make([]byte, input.Length())
	require.NoError(t, input.ReadBytes(all))
	// go back and see that we can't read more than that, for small and
	// large overflows:
	pos := input.Length() - 10
	for _, n := range []int{10, 11, 50, 100000} {
		require.NoError(t, input.Seek(pos))
		err := input.ReadBytes(make([]byte, n))
		if n == 10 {
			assert.NoError(t, err)
		} else {
			assert.True(t, util.IsEOF(err), "Block read past end of file: %v", err)
		}
	}
	require.NoError(t, input.Seek(input.Length()))
	_, err := input.ReadByte()
	assert.True(t, util.IsEOF(err))
}

func TestBufferedReadPrimitives(t *testing.T) {
	out := NewRAMOutputStreamBuffer()
	// put a few values across the 1024 bytes buffer boundary
	require.NoError(t, out.WriteBytes(make([]byte, BUFFER_SIZE-3)))
	require.NoError(t, out.WriteInt(-123456789))
	require.NoError(t, out.WriteVInt(math.MaxInt32))
	require.NoError(t, out.WriteLong(math.MinInt64))
	require.NoError(t, out.WriteVLong(math.MaxInt64))
	require.NoError(t, out.WriteShort(-2))
	require.NoError(t, out.Close())

	input := newBufferedOver(out.File(), BUFFER_SIZE)
	require.NoError(t, input.Seek(BUFFER_SIZE-3))
	i, err := input.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int32(-123456789), i)
	vi, err := input.ReadVInt()
	require.NoError(t, err)
	assert.Equal(t, int32(math.MaxInt32), vi)
	l, err := input.ReadLong()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), l)
	vl, err := input.ReadVLong()
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), vl)
	s, err := input.ReadShort()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), s)
	assert.Equal(t, input.Length(), input.FilePointer())
}

func TestSetBufferSizeKeepsPosition(t *testing.T) {
	input := newMyBufferedIndexInput(TEST_FILE_LENGTH)
	buf := make([]byte, 100)
	require.NoError(t, input.ReadBytes(buf))
	input.SetBufferSize(MIN_BUFFER_SIZE)
	assert.Equal(t, MIN_BUFFER_SIZE, input.BufferSize())
	assert.Equal(t, int64(100), input.FilePointer())
	b, err := input.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byten(100), b)

	input.SetBufferSize(4096)
	require.NoError(t, input.ReadBytes(buf))
	for i, b := range buf {
		assertEquals(t, b, byten(int64(101+i)))
	}
}

func TestSeekNegative(t *testing.T) {
	input := newMyBufferedIndexInput(TEST_FILE_LENGTH)
	assert.Error(t, input.Seek(-1))
}

func TestBufferedClone(t *testing.T) {
	input := newMyBufferedIndexInput(TEST_FILE_LENGTH)
	require.NoError(t, input.Seek(5000))
	clone := input.Clone()
	assert.Equal(t, int64(5000), clone.FilePointer())

	// the clone moves independently
	require.NoError(t, clone.Seek(10))
	b, err := clone.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byten(10), b)
	b, err = input.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byten(5000), b)
}

func TestSlicedIndexInput(t *testing.T) {
	input := newMyBufferedIndexInput(TEST_FILE_LENGTH)
	slice, err := input.Slice("slice", 3000, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), slice.Length())
	assert.Equal(t, int64(0), slice.FilePointer())
	buf := make([]byte, 2000)
	require.NoError(t, slice.ReadBytes(buf))
	for i, b := range buf {
		assertEquals(t, b, byten(int64(3000+i)))
	}
	_, err = slice.ReadByte()
	assert.True(t, util.IsEOF(err))

	sub, err := slice.Slice("sub", 100, 10)
	require.NoError(t, err)
	b, err := sub.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byten(3100), b)

	_, err = slice.Slice("too big", 1500, 1000)
	assert.Error(t, err)
	require.NoError(t, slice.Close())
}

func byten(n int64) byte {
	return byte(n * n % 256)
}

type MyBufferedIndexInput struct {
	*BufferedIndexInput
	pos    int64
	length int64
}

func newMyBufferedIndexInput(length int64) *MyBufferedIndexInput {
	ans := &MyBufferedIndexInput{pos: 0, length: length}
	ans.BufferedIndexInput = newBufferedIndexInputBySize(ans, fmt.Sprintf(
		"MyBufferedIndexInput(len=%v)", length), BUFFER_SIZE)
	return ans
}

func (in *MyBufferedIndexInput) readInternal(buf []byte) error {
	for i := range buf {
		buf[i] = byten(in.pos)
		in.pos++
	}
	return nil
}

func (in *MyBufferedIndexInput) seekInternal(pos int64) error {
	in.pos = pos
	return nil
}

func (in *MyBufferedIndexInput) Close() error {
	return nil
}

func (in *MyBufferedIndexInput) Length() int64 {
	return in.length
}

func (in *MyBufferedIndexInput) Slice(desc string, offset, length int64) (IndexInput, error) {
	return wrapSlice(desc, in, offset, length, BUFFER_SIZE)
}

func (in *MyBufferedIndexInput) Clone() IndexInput {
	ans := &MyBufferedIndexInput{pos: in.pos, length: in.length}
	ans.BufferedIndexInput = in.BufferedIndexInput.cloneFor(ans)
	return ans
}

// bufferedRAMInput reads a RAMFile through a BufferedIndexInput, so the
// buffered fast paths can be checked against bytes written by the
// regular DataOutput code.
type bufferedRAMInput struct {
	*BufferedIndexInput
	file *RAMFile
}

func newBufferedOver(f *RAMFile, bufferSize int) *bufferedRAMInput {
	ans := &bufferedRAMInput{file: f}
	ans.BufferedIndexInput = newBufferedIndexInputBySize(ans, "bufferedRAMInput", bufferSize)
	return ans
}

func (in *bufferedRAMInput) readInternal(buf []byte) error {
	chunks, _ := in.file.chunks()
	pos := in.FilePointer()
	for len(buf) > 0 {
		chunk := chunks[pos>>ramChunkSizePower][pos&(1<<ramChunkSizePower-1):]
		n := copy(buf, chunk)
		buf = buf[n:]
		pos += int64(n)
	}
	return nil
}

func (in *bufferedRAMInput) seekInternal(pos int64) error { return nil }
func (in *bufferedRAMInput) Close() error                { return nil }
func (in *bufferedRAMInput) Length() int64               { return in.file.Length() }

func (in *bufferedRAMInput) Clone() IndexInput {
	ans := &bufferedRAMInput{file: in.file}
	ans.BufferedIndexInput = in.BufferedIndexInput.cloneFor(ans)
	return ans
}

func (in *bufferedRAMInput) Slice(desc string, offset, length int64) (IndexInput, error) {
	return wrapSlice(desc, in, offset, length, in.bufferSize)
}
