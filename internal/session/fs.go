package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FS is the filesystem collaborator used by Open and Delete.
type FS interface {
	MkdirAll(path string, perm os.FileMode) error
	Remove(path string) error
}

// OSFS implements FS on the host filesystem.
type OSFS struct{}

func (OSFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFS) Remove(path string) error {
	return os.Remove(path)
}

// sidecarSuffixes are the files SQLite keeps next to a database.
var sidecarSuffixes = []string{"-journal", "-wal", "-shm"}

// removeDatabaseFiles removes a database file and its sidecars.
// Files that do not exist are ignored.
func removeDatabaseFiles(fsys FS, path string) error {
	if err := fsys.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	for _, suffix := range sidecarSuffixes {
		if err := fsys.Remove(path + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ensureParentDir creates the directory holding path.
func ensureParentDir(fsys FS, path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return fsys.MkdirAll(dir, 0o755)
}
