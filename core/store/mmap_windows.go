package store

import (
	"os"
)

const MMAP_SUPPORTED = false

func mapChunks(f *os.File, length int64, power uint, ctx IOContext) ([][]byte, func([][]byte) error, error) {
	return nil, nil, newUnsupportedOperationError("mmap", f.Name())
}
