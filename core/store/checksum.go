package store

import (
	"fmt"
	"hash/crc32"

	"github.com/balzaczyy/gostore/core/codec"
	"github.com/balzaczyy/gostore/core/util"
)

// store/ChecksumIndexInput.java

/*
Extension of IndexInput, computing checksum as it goes.
Callers can retrieve the checksum via Checksum().
*/
type ChecksumIndexInput interface {
	IndexInput
	Checksum() int64
}

/*
Simple implementation of ChecksumIndexInput that wraps another input
and delegates calls.

Seeking is only supported forward, and is done by reading and
discarding bytes so the checksum still covers them.
*/
type BufferedChecksumIndexInput struct {
	*IndexInputImpl
	main   IndexInput
	digest *BufferedChecksum
}

func NewBufferedChecksumIndexInput(main IndexInput) *BufferedChecksumIndexInput {
	ans := &BufferedChecksumIndexInput{
		main:   main,
		digest: newBufferedChecksum(crc32.NewIEEE()),
	}
	ans.IndexInputImpl = NewIndexInputImpl(
		fmt.Sprintf("BufferedChecksumIndexInput(%v)", main), ans)
	return ans
}

func (in *BufferedChecksumIndexInput) ReadByte() (b byte, err error) {
	if b, err = in.main.ReadByte(); err == nil {
		in.digest.WriteByte(b)
	}
	return
}

func (in *BufferedChecksumIndexInput) ReadBytes(p []byte) (err error) {
	if err = in.main.ReadBytes(p); err == nil {
		in.digest.Write(p)
	}
	return
}

func (in *BufferedChecksumIndexInput) Checksum() int64 {
	return int64(in.digest.Sum32())
}

func (in *BufferedChecksumIndexInput) Close() error {
	return in.main.Close()
}

func (in *BufferedChecksumIndexInput) FilePointer() int64 {
	return in.main.FilePointer()
}

func (in *BufferedChecksumIndexInput) Seek(pos int64) error {
	skip := pos - in.FilePointer()
	if skip < 0 {
		return newUnsupportedOperationError(fmt.Sprintf(
			"seeking backwards (pos=%v fp=%v)", pos, in.FilePointer()), in)
	}
	return in.SkipBytes(skip)
}

func (in *BufferedChecksumIndexInput) Length() int64 {
	return in.main.Length()
}

func (in *BufferedChecksumIndexInput) Clone() IndexInput {
	panic(&UnsupportedOperationError{"Clone", in.String()})
}

func (in *BufferedChecksumIndexInput) Slice(desc string, offset, length int64) (IndexInput, error) {
	return nil, newUnsupportedOperationError("Slice", in)
}

/*
Clones the provided input, reads all bytes from the file, and calls
CheckFooter(). The clone is closed before returning.

Note that this method may be slow, as it must process the entire file.
If you just need to extract the checksum value, call
codec.RetrieveChecksum().
*/
func ChecksumEntireFile(input IndexInput) (hash int64, err error) {
	clone := input.Clone()
	defer func() {
		err = util.CloseWhileHandlingError(err, clone)
	}()
	if err = clone.Seek(0); err != nil {
		return 0, err
	}
	in := NewBufferedChecksumIndexInput(clone)
	if in.Length() < codec.FOOTER_LENGTH {
		return 0, util.NewCorruptIndexErrorf(in.String(), "file too short to hold a footer: %v", in.Length())
	}
	if err = in.Seek(in.Length() - codec.FOOTER_LENGTH); err != nil {
		return 0, err
	}
	return codec.CheckFooter(in)
}
