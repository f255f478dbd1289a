package store

import (
	"math/rand"
	"os"

	"github.com/balzaczyy/gostore/core/store"
	tu "github.com/balzaczyy/gostore/test_framework/util"
	"github.com/pkg/errors"
)

var directoryKinds = []string{"RAMDirectory", "SimpleFSDirectory", "MMapDirectory"}

/*
Returns a new directory wrapped for testing. The implementation is
picked by the tests_directory environment variable ("RAMDirectory",
"SimpleFSDirectory", "MMapDirectory" or "random"). FS based
directories live in a fresh temp dir which is removed on Close().
*/
func NewDirectory(r *rand.Rand) (*MockDirectoryWrapper, error) {
	kind := tu.TEST_DIRECTORY
	if kind == "random" {
		kind = directoryKinds[r.Intn(len(directoryKinds))]
	}
	dir, cleanup, err := newDirectoryImpl(r, kind)
	if err != nil {
		return nil, err
	}
	if tu.Rarely(r) {
		log.Debugf("NewDirectory: wrapping %v with NRTCachingDirectory", dir)
		dir = store.NewNRTCachingDirectory(dir, 0.5+r.Float64()*2, 1+r.Float64()*4)
	} else if tu.Rarely(r) {
		log.Debugf("NewDirectory: wrapping %v with RateLimitedDirectoryWrapper", dir)
		w := store.NewRateLimitedDirectoryWrapper(dir)
		mbPerSec := float64(tu.NextInt(r, 10, 50))
		if err := w.SetMaxWriteMBPerSec(mbPerSec, store.IO_CONTEXT_TYPE_FLUSH); err != nil {
			return nil, err
		}
		if err := w.SetMaxWriteMBPerSec(mbPerSec, store.IO_CONTEXT_TYPE_MERGE); err != nil {
			return nil, err
		}
		dir = w
	}
	ans := NewMockDirectoryWrapper(r, dir)
	ans.onClose = cleanup
	return ans, nil
}

func newDirectoryImpl(r *rand.Rand, kind string) (store.Directory, func() error, error) {
	if kind == "RAMDirectory" {
		return store.NewRAMDirectory(), nil, nil
	}
	path, err := tu.TempDir("index")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error { return os.RemoveAll(path) }
	var dir store.Directory
	switch kind {
	case "SimpleFSDirectory":
		dir, err = store.NewSimpleFSDirectory(path, nil)
	case "MMapDirectory":
		dir, err = store.NewMMapDirectoryWithChunkSize(path, nil, 1<<uint(tu.NextInt(r, 10, 20)))
	default:
		err = errors.Errorf("unknown directory kind: %v", kind)
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return dir, cleanup, nil
}

/* Returns a random IOContext, sometimes replacing the given one. */
func NewIOContext(r *rand.Rand, old store.IOContext) store.IOContext {
	randomNumDocs := r.Intn(4192)
	size := int64(r.Intn(512) * randomNumDocs)
	if old.FlushInfo != nil {
		// Randomly upgrade the FlushInfo
		if r.Intn(2) == 0 {
			return store.NewIOContextForFlush(&store.FlushInfo{
				NumDocs:              randomNumDocs,
				EstimatedSegmentSize: size,
			})
		}
		return old
	} else if old.MergeInfo != nil {
		// Randomly upgrade the MergeInfo
		if r.Intn(2) == 0 {
			return store.NewIOContextForMerge(&store.MergeInfo{
				TotalDocCount:       randomNumDocs,
				EstimatedMergeBytes: size,
				IsExternal:          true,
				MergeMaxNumSegments: -1,
			})
		}
		return old
	}
	// Make a totally random IOContext
	switch r.Intn(5) {
	case 0:
		return store.IO_CONTEXT_DEFAULT
	case 1:
		return store.IO_CONTEXT_READ
	case 2:
		return store.IO_CONTEXT_READONCE
	case 3:
		return store.NewIOContextForMerge(&store.MergeInfo{
			TotalDocCount:       randomNumDocs,
			EstimatedMergeBytes: size,
			IsExternal:          true,
			MergeMaxNumSegments: -1,
		})
	default:
		return store.NewIOContextForFlush(&store.FlushInfo{
			NumDocs:              randomNumDocs,
			EstimatedSegmentSize: size,
		})
	}
}
