package codec_test

import (
	"testing"

	. "github.com/balzaczyy/gostore/core/codec"
	"github.com/balzaczyy/gostore/core/store"
	"github.com/balzaczyy/gostore/core/util"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWithFooter(t *testing.T, dir store.Directory, name, codec string, version int, payload []byte) {
	out, err := dir.CreateOutput(name, store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, WriteHeader(out, codec, version))
	require.NoError(t, out.WriteBytes(payload))
	require.NoError(t, WriteFooter(out))
	require.NoError(t, out.Close())
}

func TestHeaderRoundTrip(t *testing.T) {
	dir := store.NewRAMDirectory()
	writeWithFooter(t, dir, "f", "SegmentInfo", 3, []byte("payload"))

	in, err := dir.OpenInput("f", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	defer in.Close()
	v, err := CheckHeader(in, "SegmentInfo", 1, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(3), v)
	assert.Equal(t, int64(HeaderLength("SegmentInfo")), in.FilePointer())

	require.NoError(t, in.Seek(0))
	_, err = CheckHeader(in, "SegmentInfo", 4, 5)
	assert.True(t, IsUnsupportedFormat(err), "%v", err)
	_, ok := errors.Cause(err).(*IndexFormatTooOldError)
	assert.True(t, ok)

	require.NoError(t, in.Seek(0))
	_, err = CheckHeader(in, "SegmentInfo", 0, 2)
	assert.True(t, IsUnsupportedFormat(err), "%v", err)

	require.NoError(t, in.Seek(0))
	_, err = CheckHeader(in, "Other", 0, 5)
	assert.True(t, util.IsCorruptIndex(err), "%v", err)

	require.NoError(t, in.Seek(1))
	_, err = CheckHeader(in, "SegmentInfo", 0, 5)
	assert.True(t, util.IsCorruptIndex(err), "%v", err)
}

func TestWriteHeaderRejectsBadNames(t *testing.T) {
	out := store.NewRAMOutputStreamBuffer()
	assert.Error(t, WriteHeader(out, "héllo", 0))
	long := make([]byte, 128)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, WriteHeader(out, string(long), 0))
	assert.Equal(t, int64(0), out.FilePointer())
}

func TestFooter(t *testing.T) {
	dir := store.NewRAMDirectory()
	writeWithFooter(t, dir, "f", "Foo", 0, make([]byte, 3000))

	in, err := dir.OpenChecksumInput("f", store.IO_CONTEXT_READONCE)
	require.NoError(t, err)
	_, err = CheckHeader(in, "Foo", 0, 0)
	require.NoError(t, err)
	require.NoError(t, in.Seek(in.Length()-FOOTER_LENGTH))
	cs, err := CheckFooter(in)
	require.NoError(t, err)
	require.NoError(t, in.Close())

	plain, err := dir.OpenInput("f", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	retrieved, err := RetrieveChecksum(plain)
	require.NoError(t, err)
	assert.Equal(t, cs, retrieved)
	assert.NoError(t, CheckEOF(plain))
	require.NoError(t, plain.Seek(0))
	assert.True(t, util.IsCorruptIndex(CheckEOF(plain)))
	require.NoError(t, plain.Close())
}

func TestFooterNotAtEnd(t *testing.T) {
	dir := store.NewRAMDirectory()
	out, err := dir.CreateOutput("f", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, WriteFooter(out))
	require.NoError(t, out.WriteInt(1))
	require.NoError(t, out.Close())

	in, err := dir.OpenChecksumInput("f", store.IO_CONTEXT_READONCE)
	require.NoError(t, err)
	defer in.Close()
	_, err = CheckFooter(in)
	assert.True(t, util.IsCorruptIndex(err), "%v", err)
}

func TestRetrieveChecksumOnShortOrForeignFile(t *testing.T) {
	dir := store.NewRAMDirectory()
	out, err := dir.CreateOutput("short", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, out.WriteInt(7))
	require.NoError(t, out.Close())
	in, err := dir.OpenInput("short", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	_, err = RetrieveChecksum(in)
	assert.True(t, util.IsCorruptIndex(err), "%v", err)

	out, err = dir.CreateOutput("foreign", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	require.NoError(t, out.WriteBytes(make([]byte, 32)))
	require.NoError(t, out.Close())
	in, err = dir.OpenInput("foreign", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	_, err = RetrieveChecksum(in)
	assert.True(t, util.IsCorruptIndex(err), "%v", err)
}
