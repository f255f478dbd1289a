package util

import (
	"testing"
	"time"

	"github.com/balzaczyy/gostore/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottledIndexOutput(t *testing.T) {
	dir := store.NewRAMDirectory()
	defer dir.Close()

	raw, err := dir.CreateOutput("throttled", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	// 100 KB/s: 4 KB should take at least ~40ms
	out := NewThrottledIndexOutput(100*1024, 0, raw)

	start := time.Now()
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, out.WriteBytes(data[:1000]))
	require.NoError(t, out.WriteInt(42))
	require.NoError(t, out.WriteBytes(data[1000:]))
	assert.Equal(t, int64(4100), out.FilePointer())
	require.NoError(t, out.Close())
	assert.True(t, time.Since(start) >= 30*time.Millisecond, "took %v", time.Since(start))

	in, err := dir.OpenInput("throttled", store.IO_CONTEXT_DEFAULT)
	require.NoError(t, err)
	defer in.Close()
	buf := make([]byte, 1000)
	require.NoError(t, in.ReadBytes(buf))
	assert.Equal(t, data[:1000], buf)
	n, err := in.ReadInt()
	require.NoError(t, err)
	assert.Equal(t, int32(42), n)
}

func TestMBitsToBytes(t *testing.T) {
	assert.Equal(t, 125000, MBitsToBytes(1))
	assert.Equal(t, 5000000, MBitsToBytes(40))
}

func TestNextIntIsInclusive(t *testing.T) {
	r := Random()
	seen := make(map[int]bool)
	for i := 0; i < 200; i++ {
		v := NextInt(r, 3, 5)
		assert.True(t, v >= 3 && v <= 5, "%v out of range", v)
		seen[v] = true
	}
	assert.Len(t, seen, 3)
}

func TestAssume(t *testing.T) {
	assert.NoError(t, AssumeTrue("ok", true))
	assert.Error(t, AssumeTrue("not ok", false))
	assert.NoError(t, AssumeFalse("ok", false))
	assert.Error(t, AssumeFalse("not ok", true))
}
