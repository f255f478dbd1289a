package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/balzaczyy/gostore/core/codec"
	"github.com/balzaczyy/gostore/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDir(t *testing.T) string {
	path, err := ioutil.TempDir("", "cfstool")
	require.NoError(t, err)
	return path
}

// Writes a small segment: two files with codec footers, one without,
// and a file of another segment.
func writeSegment(t *testing.T, path string) map[string][]byte {
	dir, err := store.NewSimpleFSDirectory(path, store.NoLockFactoryInstance())
	require.NoError(t, err)
	defer dir.Close()

	for _, name := range []string{"_0.fdt", "_0.tim"} {
		out, err := dir.CreateOutput(name, store.IO_CONTEXT_DEFAULT)
		require.NoError(t, err)
		require.NoError(t, codec.WriteHeader(out, "Test", 1))
		for i := 0; i < 100; i++ {
			require.NoError(t, out.WriteVInt(int32(i*i)))
		}
		require.NoError(t, codec.WriteFooter(out))
		require.NoError(t, out.Close())
	}
	for _, name := range []string{"_0.raw", "_1.raw"} {
		out, err := dir.CreateOutput(name, store.IO_CONTEXT_DEFAULT)
		require.NoError(t, err)
		require.NoError(t, out.WriteString("plain contents of "+name))
		require.NoError(t, out.Close())
	}

	files := make(map[string][]byte)
	for _, name := range []string{"_0.fdt", "_0.tim", "_0.raw"} {
		data, err := ioutil.ReadFile(filepath.Join(path, name))
		require.NoError(t, err)
		files[name] = data
	}
	return files
}

func TestPackListVerifyExtract(t *testing.T) {
	src, dst, out := tempDir(t), tempDir(t), tempDir(t)
	defer os.RemoveAll(src)
	defer os.RemoveAll(dst)
	defer os.RemoveAll(out)

	files := writeSegment(t, src)
	cfg := defaultConfig()

	var buf bytes.Buffer
	require.NoError(t, doPack(&buf, cfg, src, dst, "_0.cfs", nil))
	assert.Contains(t, buf.String(), "packed 3 files into _0.cfs")
	for _, name := range []string{"_0.cfs", "_0.cfe"} {
		_, err := os.Stat(filepath.Join(dst, name))
		assert.NoError(t, err, name)
	}

	buf.Reset()
	require.NoError(t, doList(&buf, cfg, dst, "_0.cfs"))
	for name := range files {
		assert.Contains(t, buf.String(), name)
	}
	assert.NotContains(t, buf.String(), "_1.raw")
	assert.Contains(t, buf.String(), "3 entries")
	assert.Contains(t, buf.String(), "version 1")

	buf.Reset()
	require.NoError(t, doVerify(&buf, cfg, dst, "_0.cfs"))
	assert.Contains(t, buf.String(), "OK   _0.cfs checksum=")
	assert.Contains(t, buf.String(), "OK   _0.cfe checksum=")
	assert.Contains(t, buf.String(), "OK   _0.fdt checksum=")
	assert.Contains(t, buf.String(), "OK   _0.raw (no footer)")

	buf.Reset()
	require.NoError(t, doExtract(&buf, cfg, dst, "_0.cfs", out, nil))
	for name, data := range files {
		extracted, err := ioutil.ReadFile(filepath.Join(out, name))
		require.NoError(t, err)
		assert.Equal(t, data, extracted, name)
	}

	// packing twice into the same name is refused
	err := doPack(&buf, cfg, src, dst, "_0.cfs", nil)
	assert.Error(t, err)
}

func TestPackRejectsForeignFiles(t *testing.T) {
	src, dst := tempDir(t), tempDir(t)
	defer os.RemoveAll(src)
	defer os.RemoveAll(dst)
	writeSegment(t, src)

	var buf bytes.Buffer
	assert.Error(t, doPack(&buf, defaultConfig(), src, dst, "_0.cfs", []string{"_0.fdt", "_1.raw"}))
	assert.Error(t, doPack(&buf, defaultConfig(), src, dst, "_0.dat", nil))
	assert.Error(t, doPack(&buf, defaultConfig(), src, dst, "_7.cfs", nil))
}

func TestVerifyDetectsCorruption(t *testing.T) {
	src, dst := tempDir(t), tempDir(t)
	defer os.RemoveAll(src)
	defer os.RemoveAll(dst)
	writeSegment(t, src)

	var buf bytes.Buffer
	cfg := defaultConfig()
	require.NoError(t, doPack(&buf, cfg, src, dst, "_0.cfs", []string{"_0.fdt"}))

	// flip a byte inside the first entry, past the compound header
	f, err := os.OpenFile(filepath.Join(dst, "_0.cfs"), os.O_RDWR, 0)
	require.NoError(t, err)
	offset := int64(codec.HeaderLength(store.CFD_DATA_CODEC) + 30)
	b := make([]byte, 1)
	_, err = f.ReadAt(b, offset)
	require.NoError(t, err)
	b[0] ^= 0xFF
	_, err = f.WriteAt(b, offset)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	buf.Reset()
	err = doVerify(&buf, cfg, dst, "_0.cfs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 bad files")
	assert.Contains(t, buf.String(), "FAIL _0.cfs")
	assert.Contains(t, buf.String(), "FAIL _0.fdt")
	assert.Contains(t, buf.String(), "OK   _0.cfe")
}

func TestDirectoryKinds(t *testing.T) {
	src, dst := tempDir(t), tempDir(t)
	defer os.RemoveAll(src)
	defer os.RemoveAll(dst)
	writeSegment(t, src)

	var buf bytes.Buffer
	require.NoError(t, doPack(&buf, &Config{
		Directory:        "simple",
		LockFactory:      "simple",
		MaxWriteMBPerSec: 100,
		ReadBuffer:       "read",
	}, src, dst, "_0.cfs", nil))

	for _, cfg := range []*Config{
		{Directory: "mmap", ChunkSizePower: 6, LockFactory: "native", ReadBuffer: "merge"},
		{Directory: "simple", LockFactory: "single", ReadBuffer: "readonce"},
		{Directory: "ram-copy", LockFactory: "none", ReadBuffer: "read"},
	} {
		require.NoError(t, cfg.validate())
		buf.Reset()
		require.NoError(t, doVerify(&buf, cfg, dst, "_0.cfs"), "%+v", cfg)
		assert.NotContains(t, buf.String(), "FAIL")
	}

	_, err := defaultConfig().openReadDirectory(filepath.Join(dst, "missing"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := tempDir(t)
	defer os.RemoveAll(path)

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)

	good := filepath.Join(path, "good.toml")
	require.NoError(t, ioutil.WriteFile(good, []byte(`
directory = "simple"
chunk_size_power = 20
lock_factory = "single"
max_write_mb_per_sec = 12.5
read_buffer = "merge"
`), 0644))
	cfg, err = loadConfig(good)
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Directory:        "simple",
		ChunkSizePower:   20,
		LockFactory:      "single",
		MaxWriteMBPerSec: 12.5,
		ReadBuffer:       "merge",
	}, cfg)
	assert.Equal(t, store.IO_CONTEXT_TYPE_MERGE, cfg.readContext().Type())

	partial := filepath.Join(path, "partial.toml")
	require.NoError(t, ioutil.WriteFile(partial, []byte(`directory = "ram-copy"`), 0644))
	cfg, err = loadConfig(partial)
	require.NoError(t, err)
	assert.Equal(t, "ram-copy", cfg.Directory)
	assert.Equal(t, "native", cfg.LockFactory)

	for name, content := range map[string]string{
		"unknown.toml":   `colour = "blue"`,
		"directory.toml": `directory = "nfs"`,
		"lock.toml":      `lock_factory = "flock"`,
		"buffer.toml":    `read_buffer = "huge"`,
		"chunk.toml":     `chunk_size_power = 40`,
		"rate.toml":      `max_write_mb_per_sec = -1.0`,
		"syntax.toml":    `directory = `,
	} {
		bad := filepath.Join(path, name)
		require.NoError(t, ioutil.WriteFile(bad, []byte(content), 0644))
		_, err := loadConfig(bad)
		assert.Error(t, err, name)
	}
}
