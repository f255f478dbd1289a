// +build !windows

package store

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func tryLockFile(f *os.File) (bool, error) {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	switch err {
	case nil:
		return true, nil
	case unix.EWOULDBLOCK:
		return false, errors.Wrapf(err, "lock held by another process: %v", f.Name())
	}
	return false, errors.Wrapf(err, "flock %v", f.Name())
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// fsyncDir syncs the directory entry itself, so renames and newly
// created files survive a crash.
func fsyncDir(path string) error {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "open dir %v", path)
	}
	defer unix.Close(fd)
	return errors.Wrapf(unix.Fsync(fd), "fsync dir %v", path)
}
