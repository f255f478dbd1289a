package store

import (
	"github.com/balzaczyy/gostore/core/util"
	"github.com/pkg/errors"
)

// store/ByteArrayDataInput.java

/* DataInput backed by a byte array. */
type ByteArrayDataInput struct {
	*util.DataInputImpl
	bytes []byte
	Pos   int
	limit int
}

func NewByteArrayDataInput(bytes []byte) *ByteArrayDataInput {
	ans := &ByteArrayDataInput{}
	ans.DataInputImpl = util.NewDataInput(ans)
	ans.Reset(bytes)
	return ans
}

func NewEmptyByteArrayDataInput() *ByteArrayDataInput {
	return NewByteArrayDataInput(make([]byte, 0))
}

func (in *ByteArrayDataInput) Reset(bytes []byte) {
	in.ResetRange(bytes, 0, len(bytes))
}

func (in *ByteArrayDataInput) ResetRange(bytes []byte, offset, length int) {
	in.bytes = bytes
	in.Pos = offset
	in.limit = offset + length
}

// NOTE: sets pos to 0, which is not right if you had
// called reset w/ non-zero offset!!
func (in *ByteArrayDataInput) Rewind() {
	in.Pos = 0
}

func (in *ByteArrayDataInput) Position() int {
	return in.Pos
}

func (in *ByteArrayDataInput) SetPosition(pos int) {
	in.Pos = pos
}

func (in *ByteArrayDataInput) Length() int {
	return in.limit
}

func (in *ByteArrayDataInput) EOF() bool {
	return in.Pos == in.limit
}

func (in *ByteArrayDataInput) SkipBytes(count int64) error {
	if count < 0 || int64(in.Pos)+count > int64(in.limit) {
		return util.NewEOFError("skip past EOF", "ByteArrayDataInput")
	}
	in.Pos += int(count)
	return nil
}

func (in *ByteArrayDataInput) ReadVInt() (n int32, err error) {
	if in.limit-in.Pos >= 5 {
		n, size, err := util.DecodeVInt(in.bytes[in.Pos:in.limit])
		in.Pos += size
		return n, err
	}
	return in.DataInputImpl.ReadVInt()
}

func (in *ByteArrayDataInput) ReadVLong() (n int64, err error) {
	if in.limit-in.Pos >= 9 {
		n, size, err := util.DecodeVLong(in.bytes[in.Pos:in.limit])
		in.Pos += size
		return n, err
	}
	return in.DataInputImpl.ReadVLong()
}

func (in *ByteArrayDataInput) ReadByte() (b byte, err error) {
	if in.Pos >= in.limit {
		return 0, util.NewEOFError("read past EOF", "ByteArrayDataInput")
	}
	in.Pos++
	return in.bytes[in.Pos-1], nil
}

func (in *ByteArrayDataInput) ReadBytes(buf []byte) error {
	if in.Pos+len(buf) > in.limit {
		return util.NewEOFError("read past EOF", "ByteArrayDataInput")
	}
	copy(buf, in.bytes[in.Pos:in.Pos+len(buf)])
	in.Pos += len(buf)
	return nil
}

// store/ByteArrayDataOutput.java

/* DataOutput backed by a byte array. */
type ByteArrayDataOutput struct {
	*util.DataOutputImpl
	bytes []byte
	pos   int
	limit int
}

func NewByteArrayDataOutput(bytes []byte) *ByteArrayDataOutput {
	ans := &ByteArrayDataOutput{}
	ans.DataOutputImpl = util.NewDataOutput(ans)
	ans.Reset(bytes)
	return ans
}

func (o *ByteArrayDataOutput) Reset(bytes []byte) {
	o.bytes = bytes
	o.pos = 0
	o.limit = len(bytes)
}

func (o *ByteArrayDataOutput) Position() int {
	return o.pos
}

func (o *ByteArrayDataOutput) WriteByte(b byte) error {
	if o.pos >= o.limit {
		return errors.Errorf("ByteArrayDataOutput is full (limit=%v)", o.limit)
	}
	o.bytes[o.pos] = b
	o.pos++
	return nil
}

func (o *ByteArrayDataOutput) WriteBytes(b []byte) error {
	if o.pos+len(b) > o.limit {
		return errors.Errorf("ByteArrayDataOutput is full (limit=%v)", o.limit)
	}
	o.pos += copy(o.bytes[o.pos:], b)
	return nil
}
