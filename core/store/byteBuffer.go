package store

import (
	"fmt"
	"sync"

	"github.com/balzaczyy/gostore/core/util"
	"github.com/pkg/errors"
)

// store/ByteBufferIndexInput.java

/*
cloneRegistry tracks every live clone and slice of one original
ByteBufferIndexInput. Clones register when created and deregister
when closed; closing the original invalidates whatever is still
registered before the chunks are released.
*/
type cloneRegistry struct {
	sync.Mutex
	clones map[*ByteBufferIndexInput]bool
}

func newCloneRegistry() *cloneRegistry {
	return &cloneRegistry{clones: make(map[*ByteBufferIndexInput]bool)}
}

func (r *cloneRegistry) add(in *ByteBufferIndexInput) {
	r.Lock()
	defer r.Unlock()
	r.clones[in] = true
}

func (r *cloneRegistry) remove(in *ByteBufferIndexInput) {
	r.Lock()
	defer r.Unlock()
	delete(r.clones, in)
}

func (r *cloneRegistry) unsetAll() {
	r.Lock()
	defer r.Unlock()
	for clone := range r.clones {
		assertTrue(clone.isClone)
		clone.unsetBuffers()
	}
	r.clones = make(map[*ByteBufferIndexInput]bool)
}

/*
Base IndexInput implementation that uses an array of byte slices
("chunks") to represent a file.

Because the chunks are typically memory mapped, they can be large:
each chunk holds 1<<chunkSizePower bytes, except the last one. The
array always has (length>>chunkSizePower)+1 entries, so the last
chunk may be empty.

For efficiency, this type requires that the chunk size is a power of
two.

After Close() the chunks are gone and every operation fails with an
AlreadyClosedError.
*/
type ByteBufferIndexInput struct {
	*IndexInputImpl
	chunks         [][]byte
	chunkSizeMask  int64
	chunkSizePower uint
	offset         int
	length         int64
	sliceDesc      string

	curBufIndex int
	curBuf      []byte // chunks[curBufIndex], limited for slices
	curPos      int

	isClone bool
	clones  *cloneRegistry
	cleaner func(chunks [][]byte) error
}

/*
Creates an original input over chunks. If trackClones is true,
closing it invalidates all its clones and slices. cleaner, if not
nil, is called with the chunks once the original is closed.
*/
func newByteBufferIndexInput(desc string, chunks [][]byte, length int64,
	chunkSizePower uint, trackClones bool, cleaner func([][]byte) error) *ByteBufferIndexInput {

	assert2(int64(len(chunks)) == length>>chunkSizePower+1,
		"expected %v chunks for length %v, got %v", length>>chunkSizePower+1, length, len(chunks))
	ans := &ByteBufferIndexInput{
		chunks:         chunks,
		length:         length,
		chunkSizePower: chunkSizePower,
		chunkSizeMask:  (int64(1) << chunkSizePower) - 1,
		cleaner:        cleaner,
	}
	if trackClones {
		ans.clones = newCloneRegistry()
	}
	ans.IndexInputImpl = NewIndexInputImpl(desc, ans)
	ans.Seek(0)
	return ans
}

func (in *ByteBufferIndexInput) ensureOpen() error {
	if in.chunks == nil {
		return newAlreadyClosedError("Already closed: %v", in)
	}
	return nil
}

// next moves to the following non-empty chunk.
func (in *ByteBufferIndexInput) next() error {
	for {
		in.curBufIndex++
		if in.curBufIndex >= len(in.chunks) {
			in.curBufIndex = len(in.chunks) - 1
			in.curPos = len(in.curBuf)
			return util.NewEOFError("read past EOF", in)
		}
		in.curBuf = in.chunks[in.curBufIndex]
		in.curPos = 0
		if len(in.curBuf) > 0 {
			return nil
		}
	}
}

func (in *ByteBufferIndexInput) ReadByte() (byte, error) {
	if err := in.ensureOpen(); err != nil {
		return 0, err
	}
	if in.curPos >= len(in.curBuf) {
		if err := in.next(); err != nil {
			return 0, err
		}
	}
	in.curPos++
	return in.curBuf[in.curPos-1], nil
}

func (in *ByteBufferIndexInput) ReadBytes(buf []byte) error {
	if err := in.ensureOpen(); err != nil {
		return err
	}
	curAvail := len(in.curBuf) - in.curPos
	for len(buf) > curAvail {
		copy(buf, in.curBuf[in.curPos:])
		buf = buf[curAvail:]
		in.curPos += curAvail
		if err := in.next(); err != nil {
			return err
		}
		curAvail = len(in.curBuf)
	}
	in.curPos += copy(buf, in.curBuf[in.curPos:in.curPos+len(buf)])
	return nil
}

func (in *ByteBufferIndexInput) ReadBytesBuffered(buf []byte, useBuffer bool) error {
	return in.ReadBytes(buf)
}

func (in *ByteBufferIndexInput) remaining() int {
	return len(in.curBuf) - in.curPos
}

func (in *ByteBufferIndexInput) ReadShort() (int16, error) {
	if in.chunks != nil && in.remaining() >= 2 {
		in.curPos += 2
		return int16(in.curBuf[in.curPos-2])<<8 | int16(in.curBuf[in.curPos-1]), nil
	}
	return in.DataInputImpl.ReadShort()
}

func (in *ByteBufferIndexInput) ReadInt() (n int32, err error) {
	if in.chunks != nil && in.remaining() >= 4 {
		for _, b := range in.curBuf[in.curPos : in.curPos+4] {
			n = n<<8 | int32(b)
		}
		in.curPos += 4
		return n, nil
	}
	return in.DataInputImpl.ReadInt()
}

func (in *ByteBufferIndexInput) ReadLong() (n int64, err error) {
	if in.chunks != nil && in.remaining() >= 8 {
		for _, b := range in.curBuf[in.curPos : in.curPos+8] {
			n = n<<8 | int64(b)
		}
		in.curPos += 8
		return n, nil
	}
	return in.DataInputImpl.ReadLong()
}

func (in *ByteBufferIndexInput) ReadVInt() (int32, error) {
	if in.chunks != nil && in.remaining() >= 5 {
		n, size, err := util.DecodeVInt(in.curBuf[in.curPos:])
		in.curPos += size
		return n, err
	}
	return in.DataInputImpl.ReadVInt()
}

func (in *ByteBufferIndexInput) ReadVLong() (int64, error) {
	if in.chunks != nil && in.remaining() >= 9 {
		n, size, err := util.DecodeVLong(in.curBuf[in.curPos:])
		in.curPos += size
		return n, err
	}
	return in.DataInputImpl.ReadVLong()
}

/*
Returns the current position. Panics with *AlreadyClosedError if the
input was closed, since the position of a released resource has no
meaning.
*/
func (in *ByteBufferIndexInput) FilePointer() int64 {
	if in.chunks == nil {
		panic(&AlreadyClosedError{fmt.Sprintf("Already closed: %v", in)})
	}
	return int64(in.curBufIndex)<<in.chunkSizePower + int64(in.curPos) - int64(in.offset)
}

func (in *ByteBufferIndexInput) Seek(pos int64) error {
	if err := in.ensureOpen(); err != nil {
		return err
	}
	// necessary in case offset != 0 and pos < 0, but pos >= -offset
	if pos < 0 {
		return errors.Errorf("Seeking to negative position: %v", in)
	}
	if pos > in.length {
		return util.NewEOFError("seek past EOF", in)
	}
	pos += int64(in.offset)
	bi := int(pos >> in.chunkSizePower)
	p := int(pos & in.chunkSizeMask)
	if bi >= len(in.chunks) || p > len(in.chunks[bi]) {
		return util.NewEOFError("seek past EOF", in)
	}
	// write values, on error all is unchanged
	in.curBufIndex = bi
	in.curBuf = in.chunks[bi]
	in.curPos = p
	return nil
}

func (in *ByteBufferIndexInput) Length() int64 {
	return in.length
}

/*
Returns an independent cursor at the same position. Clones share the
chunks, and are invalidated when the original is closed. A clone that
is never closed stays registered until the original closes.
*/
func (in *ByteBufferIndexInput) Clone() IndexInput {
	clone, err := in.buildSlice(0, in.length)
	if err != nil {
		panic(err)
	}
	if err = clone.Seek(in.FilePointer()); err != nil {
		panic(err)
	}
	return clone
}

/*
Creates a slice of this index input, with the given description,
offset, and length. The slice is seeked to the beginning. Only
original inputs can be sliced.
*/
func (in *ByteBufferIndexInput) Slice(desc string, offset, length int64) (IndexInput, error) {
	if in.isClone { // well we could, but this is stupid
		return nil, errors.Errorf("cannot slice() %v from a cloned IndexInput: %v", desc, in)
	}
	clone, err := in.buildSlice(offset, length)
	if err != nil {
		return nil, err
	}
	clone.sliceDesc = desc
	if err = clone.Seek(0); err != nil {
		return nil, err
	}
	return clone, nil
}

func (in *ByteBufferIndexInput) buildSlice(offset, length int64) (*ByteBufferIndexInput, error) {
	if err := in.ensureOpen(); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 || offset+length > in.length {
		return nil, errors.Errorf("slice() %v out of bounds: offset=%v,length=%v,fileLength=%v: %v",
			in.sliceDesc, offset, length, in.length, in)
	}

	// include our own offset into the final offset:
	offset += int64(in.offset)

	clone := &ByteBufferIndexInput{
		chunks:         in.sliceChunks(offset, length),
		chunkSizeMask:  in.chunkSizeMask,
		chunkSizePower: in.chunkSizePower,
		offset:         int(offset & in.chunkSizeMask),
		length:         length,
		sliceDesc:      in.sliceDesc,
		isClone:        true,
		// we keep clone.clones, so it shares the same registry with
		// the original
		clones: in.clones,
	}
	clone.IndexInputImpl = NewIndexInputImpl(in.desc, clone)

	// register the new clone in our clone list to clean it up on
	// closing:
	if in.clones != nil {
		in.clones.add(clone)
	}
	return clone, nil
}

/* Returns a sliced view of the chunks. */
func (in *ByteBufferIndexInput) sliceChunks(offset, length int64) [][]byte {
	sliceEnd := offset + length
	startIndex := int(offset >> in.chunkSizePower)
	endIndex := int(sliceEnd >> in.chunkSizePower)

	// we always allocate one more slice, the last one may be a 0 byte one
	slices := make([][]byte, endIndex-startIndex+1)
	copy(slices, in.chunks[startIndex:endIndex+1])

	// set the last chunk's limit for the sliced view.
	last := len(slices) - 1
	slices[last] = slices[last][:sliceEnd&in.chunkSizeMask]
	return slices
}

/*
Closes this input. Closing a clone or slice only releases that view.
Closing the original invalidates every registered clone, then hands
the chunks to the cleaner.
*/
func (in *ByteBufferIndexInput) Close() error {
	if in.chunks == nil {
		return nil
	}
	// make local copy, then un-set early
	chunks := in.chunks
	in.unsetBuffers()
	if in.clones != nil && in.isClone {
		in.clones.remove(in)
	}
	if in.isClone {
		return nil
	}

	// for extra safety unset also all clones' buffers:
	if in.clones != nil {
		in.clones.unsetAll()
	}
	if in.cleaner != nil {
		return in.cleaner(chunks)
	}
	return nil
}

/*
Called to remove all references to chunks, so we can free them
without risking to read them afterwards.
*/
func (in *ByteBufferIndexInput) unsetBuffers() {
	in.chunks = nil
	in.curBuf = nil
	in.curBufIndex = 0
	in.curPos = 0
}

func (in *ByteBufferIndexInput) String() string {
	if in.sliceDesc != "" {
		return fmt.Sprintf("%v [slice=%v]", in.desc, in.sliceDesc)
	}
	return in.desc
}
