package main

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/balzaczyy/gostore/core/store"
	"github.com/pkg/errors"
)

// Config tunes how cfstool opens directories. Every field is optional.
type Config struct {
	// mmap, simple or ram-copy
	Directory string `toml:"directory"`
	// mmap chunk size as a power of two, 0 for the default
	ChunkSizePower int `toml:"chunk_size_power"`
	// native, simple, single or none
	LockFactory string `toml:"lock_factory"`
	// limits pack output, 0 for unlimited
	MaxWriteMBPerSec float64 `toml:"max_write_mb_per_sec"`
	// read, readonce or merge: selects the IOContext of inputs
	ReadBuffer string `toml:"read_buffer"`
}

func defaultConfig() *Config {
	return &Config{
		Directory:   "mmap",
		LockFactory: "native",
		ReadBuffer:  "read",
	}
}

/* Loads the TOML file at path over the defaults; an empty path keeps the defaults. */
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %v", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("unknown keys in config %v: %v", path, undecoded)
	}
	if err = cfg.validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %v", path)
	}
	log.Debugf("Loaded config %v: %+v", path, *cfg)
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Directory {
	case "mmap", "simple", "ram-copy":
	default:
		return errors.Errorf("directory must be one of mmap, simple, ram-copy: %q", c.Directory)
	}
	switch c.LockFactory {
	case "native", "simple", "single", "none":
	default:
		return errors.Errorf("lock_factory must be one of native, simple, single, none: %q", c.LockFactory)
	}
	switch c.ReadBuffer {
	case "read", "readonce", "merge":
	default:
		return errors.Errorf("read_buffer must be one of read, readonce, merge: %q", c.ReadBuffer)
	}
	if c.ChunkSizePower < 0 || c.ChunkSizePower > 30 {
		return errors.Errorf("chunk_size_power must be in [0, 30]: %v", c.ChunkSizePower)
	}
	if c.MaxWriteMBPerSec < 0 {
		return errors.Errorf("max_write_mb_per_sec must not be negative: %v", c.MaxWriteMBPerSec)
	}
	return nil
}

func (c *Config) readContext() store.IOContext {
	switch c.ReadBuffer {
	case "readonce":
		return store.IO_CONTEXT_READONCE
	case "merge":
		return store.NewIOContextForMerge(&store.MergeInfo{MergeMaxNumSegments: -1})
	default:
		return store.IO_CONTEXT_READ
	}
}

// A nil factory lets FS directories pick NativeFSLockFactory.
func (c *Config) lockFactory(path string) store.LockFactory {
	switch c.LockFactory {
	case "simple":
		return store.NewSimpleFSLockFactory(path)
	case "single":
		return store.NewSingleInstanceLockFactory()
	case "none":
		return store.NoLockFactoryInstance()
	default:
		return nil
	}
}

func (c *Config) openFSDirectory(path string) (store.Directory, error) {
	lf := c.lockFactory(path)
	if c.Directory == "mmap" {
		if c.ChunkSizePower > 0 {
			return store.NewMMapDirectoryWithChunkSize(path, lf, 1<<uint(c.ChunkSizePower))
		}
		return store.NewMMapDirectory(path, lf)
	}
	return store.NewSimpleFSDirectory(path, lf)
}

/*
Opens path for reading. With ram-copy the whole directory is loaded
into a RAMDirectory and the files are released right away.
*/
func (c *Config) openReadDirectory(path string) (store.Directory, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.WithStack(err)
	}
	dir, err := c.openFSDirectory(path)
	if err != nil {
		return nil, err
	}
	if c.Directory != "ram-copy" {
		return dir, nil
	}
	ram, err := store.NewRAMDirectoryFrom(dir, store.IO_CONTEXT_READONCE)
	if err != nil {
		dir.Close()
		return nil, err
	}
	log.Debugf("Copied %v into memory: %v bytes", path, ram.SizeInBytes())
	return ram, dir.Close()
}

/* Opens path for writing, rate limited if max_write_mb_per_sec is set. */
func (c *Config) openWriteDirectory(path string) (store.Directory, error) {
	dir, err := c.openFSDirectory(path)
	if err != nil {
		return nil, err
	}
	if c.MaxWriteMBPerSec <= 0 {
		return dir, nil
	}
	w := store.NewRateLimitedDirectoryWrapper(dir)
	for t := store.IO_CONTEXT_TYPE_MERGE; t <= store.IO_CONTEXT_TYPE_DEFAULT; t++ {
		if err = w.SetMaxWriteMBPerSec(c.MaxWriteMBPerSec, t); err != nil {
			w.Close()
			return nil, err
		}
	}
	return w, nil
}
