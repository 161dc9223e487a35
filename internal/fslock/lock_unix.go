//go:build unix || linux || darwin

package fslock

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Acquire opens (creating if necessary) the lock sentinel file inside dir
// and takes an exclusive, non-blocking flock on it.
func Acquire(dir string) (*DirLock, error) {
	path := filepath.Join(dir, LockFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, err
	}
	return &DirLock{f: f}, nil
}

func (l *DirLock) platformUnlock() error {
	return unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
}
