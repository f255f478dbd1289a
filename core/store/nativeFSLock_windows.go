package store

import (
	"os"
)

func tryLockFile(f *os.File) (bool, error) {
	return false, newUnsupportedOperationError("native file lock", f.Name())
}

func unlockFile(f *os.File) error {
	return nil
}

// Directories cannot be fsynced on windows.
func fsyncDir(path string) error {
	return nil
}
