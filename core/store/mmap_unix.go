// +build !windows

package store

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const MMAP_SUPPORTED = true

/*
Maps the file in chunks of 1<<power bytes. Every mapping starts on a
page boundary; the returned chunk views skip the alignment prefix.
The returned cleaner unmaps everything.
*/
func mapChunks(f *os.File, length int64, power uint, ctx IOContext) ([][]byte, func([][]byte) error, error) {
	chunkSize := int64(1) << power
	nrChunks := int(length>>power) + 1
	pageMask := int64(os.Getpagesize()) - 1

	chunks := make([][]byte, nrChunks)
	mappings := make([][]byte, 0, nrChunks)
	cleaner := func([][]byte) (err error) {
		for _, m := range mappings {
			if err2 := unix.Munmap(m); err == nil && err2 != nil {
				err = errors.WithStack(err2)
			}
		}
		mappings = nil
		return err
	}

	for i := range chunks {
		offset := int64(i) << power
		size := length - offset
		if size > chunkSize {
			size = chunkSize
		}
		if size == 0 {
			chunks[i] = []byte{}
			continue
		}
		aligned := offset &^ pageMask
		delta := int(offset - aligned)
		m, err := unix.Mmap(int(f.Fd()), aligned, delta+int(size), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			cleaner(nil)
			return nil, nil, errors.WithStack(err)
		}
		if ctx.ReadOnce() || ctx.Type() == IO_CONTEXT_TYPE_MERGE {
			// only a hint; the mapping is usable either way
			if err = unix.Madvise(m, unix.MADV_SEQUENTIAL); err != nil {
				log.Debugf("madvise %v chunk %v: %v", f.Name(), i, err)
			}
		}
		mappings = append(mappings, m)
		chunks[i] = m[delta : delta+int(size) : delta+int(size)]
	}
	return chunks, cleaner, nil
}
