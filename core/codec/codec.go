package codec

import (
	"fmt"

	"github.com/balzaczyy/gostore/core/util"
	"github.com/pkg/errors"
)

// codecs/CodecUtil.java

/* Constant to identify the start of a codec header. */
const CODEC_MAGIC = 0x3fd76c17

/* Constant to identify the start of a codec footer. */
const FOOTER_MAGIC = ^CODEC_MAGIC

/* Length of the footer written by WriteFooter(). */
const FOOTER_LENGTH = 16

type DataOutput interface {
	WriteInt(n int32) error
	WriteString(s string) error
}

/*
Writes a codc header, which records both a string to identify the
file and a version number. This header can be parsed and validated
with CheckHeader().

CodecHeader --> Magic,CodecName,Version
	Magic --> uint32. This identifies the start of the header. It is
	always CODEC_MAGIC.
	CodecName --> string. This is a string to identify this file.
	Version --> uint32. Records the version of the file.

Note that the length of a codec header depends only upon the name of
the codec, so this length can be computed at any time with
HeaderLength().
*/
func WriteHeader(out DataOutput, codec string, version int) error {
	if !isSimpleASCII(codec) || len(codec) >= 128 {
		return errors.Errorf(
			"codec must be simple ASCII, less than 128 characters in length [got %v]", codec)
	}
	err := out.WriteInt(CODEC_MAGIC)
	if err == nil {
		err = out.WriteString(codec)
		if err == nil {
			err = out.WriteInt(int32(version))
		}
	}
	return err
}

func isSimpleASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

/* Computes the length of a codec header */
func HeaderLength(codec string) int {
	return 9 + len(codec)
}

type DataInput interface {
	ReadInt() (int32, error)
	ReadString() (string, error)
}

/*
Reads and validates a header previously written with WriteHeader().
Returns the actual version found, which is within [minVersion,
maxVersion].
*/
func CheckHeader(in DataInput, codec string, minVersion, maxVersion int32) (v int32, err error) {
	// Safety to guard against reading a bogus string:
	actualHeader, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	if actualHeader != CODEC_MAGIC {
		return 0, util.NewCorruptIndexErrorf(fmt.Sprintf("%v", in),
			"codec header mismatch: actual header=%v vs expected header=%v",
			actualHeader, CODEC_MAGIC)
	}
	return CheckHeaderNoMagic(in, codec, minVersion, maxVersion)
}

/*
Like CheckHeader() except this version assumes the first int has
already been read and validated from the input.
*/
func CheckHeaderNoMagic(in DataInput, codec string, minVersion, maxVersion int32) (v int32, err error) {
	actualCodec, err := in.ReadString()
	if err != nil {
		return 0, err
	}
	if actualCodec != codec {
		return 0, util.NewCorruptIndexErrorf(fmt.Sprintf("%v", in),
			"codec mismatch: actual codec=%v vs expected codec=%v", actualCodec, codec)
	}

	actualVersion, err := in.ReadInt()
	if err != nil {
		return 0, err
	}
	if actualVersion < minVersion {
		return 0, NewIndexFormatTooOldError(in, actualVersion, minVersion, maxVersion)
	}
	if actualVersion > maxVersion {
		return 0, NewIndexFormatTooNewError(in, actualVersion, minVersion, maxVersion)
	}

	return actualVersion, nil
}

type IndexOutput interface {
	WriteInt(n int32) error
	WriteLong(n int64) error
	Checksum() (int64, error)
}

/*
Writes a codec footer, which records both a checksum algorithm ID and
a checksum. This footer can be parsed and validated with CheckFooter().

CodecFooter --> Magic,AlgorithmID,Checksum
	- Magic --> uint32. This identifies the start of the footer. It is
		always FOOTER_MAGIC.
	- AlgorithmID --> uing32. This indicates the checksum algorithm
		used. Currently this is always 0, for zlib-crc32.
	- Checksum --> uint64. The actual checksum value for all previous
		bytes in the stream, including the bytes from Magic and AlgorithmID.
*/
func WriteFooter(out IndexOutput) (err error) {
	if err = out.WriteInt(FOOTER_MAGIC); err == nil {
		if err = out.WriteInt(0); err == nil {
			var cs int64
			if cs, err = out.Checksum(); err == nil {
				err = out.WriteLong(cs)
			}
		}
	}
	return
}

type IndexInput interface {
	FilePointer() int64
	Seek(int64) error
	Length() int64
	ReadInt() (int32, error)
	ReadLong() (int64, error)
}

type ChecksumIndexInput interface {
	IndexInput
	Checksum() int64
}

/* Validates the codec footer previously written by WriteFooter(). */
func CheckFooter(in ChecksumIndexInput) (cs int64, err error) {
	if err = validateFooter(in); err != nil {
		return 0, err
	}
	cs = in.Checksum()
	var cs2 int64
	if cs2, err = in.ReadLong(); err != nil {
		return 0, err
	}
	if cs2&^0xFFFFFFFF != 0 {
		return 0, util.NewCorruptIndexErrorf(fmt.Sprintf("%v", in),
			"Illegal CRC-32 checksum: %v", cs2)
	}
	if cs != cs2 {
		return 0, util.NewCorruptIndexErrorf(fmt.Sprintf("%v", in),
			"checksum failed (hardware problem?): expected=%v actual=%v",
			util.ItoHex(cs2), util.ItoHex(cs))
	}
	if in.FilePointer() != in.Length() {
		return 0, util.NewCorruptIndexErrorf(fmt.Sprintf("%v", in),
			"did not read all bytes from file: read %v vs size %v",
			in.FilePointer(), in.Length())
	}
	return cs, nil
}

/* Returns (but does not validate) the checksum previously written by CheckFooter. */
func RetrieveChecksum(in IndexInput) (int64, error) {
	if in.Length() < FOOTER_LENGTH {
		return 0, util.NewCorruptIndexErrorf(fmt.Sprintf("%v", in),
			"misplaced codec footer (file truncated?): length=%v but footerLength==%v",
			in.Length(), FOOTER_LENGTH)
	}
	if err := in.Seek(in.Length() - FOOTER_LENGTH); err != nil {
		return 0, err
	}
	if err := validateFooter(in); err != nil {
		return 0, err
	}
	return in.ReadLong()
}

func validateFooter(in IndexInput) error {
	magic, err := in.ReadInt()
	if err != nil {
		return err
	}
	if magic != FOOTER_MAGIC {
		return util.NewCorruptIndexErrorf(fmt.Sprintf("%v", in),
			"codec footer mismatch: actual footer=%v vs expected footer=%v",
			magic, FOOTER_MAGIC)
	}

	algorithmId, err := in.ReadInt()
	if err != nil {
		return err
	}
	if algorithmId != 0 {
		return util.NewCorruptIndexErrorf(fmt.Sprintf("%v", in),
			"codec footer mismatch: unknown algorithmID: %v", algorithmId)
	}
	return nil
}

/* Checks that the stream is positioned at the end, and returns error if it is not. */
func CheckEOF(in IndexInput) error {
	if in.FilePointer() != in.Length() {
		return util.NewCorruptIndexErrorf(fmt.Sprintf("%v", in),
			"did not read all bytes from file: read %v vs size %v",
			in.FilePointer(), in.Length())
	}
	return nil
}
