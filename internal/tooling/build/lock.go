package build

import (
	"fmt"
	"os"
	"path/filepath"

	mferrors "github.com/gomanifold/manifold/pkg/errors"
)

// LockPath is the lock file guarding a registry file.
func LockPath(registryPath string) string {
	return registryPath + ".lock"
}

// Lock is an exclusive build lock held as a file next to the registry.
type Lock struct {
	path string
}

// AcquireLock creates the lock file and fails fast when it already exists.
// A stale lock left by a killed build must be removed by hand.
func AcquireLock(registryPath string) (*Lock, error) {
	path := LockPath(registryPath)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, mferrors.NewRegistryUnwritable(path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, mferrors.NewBuildLocked(path)
		}
		return nil, mferrors.NewRegistryUnwritable(path, err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, mferrors.NewRegistryUnwritable(path, err)
	}
	return &Lock{path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
