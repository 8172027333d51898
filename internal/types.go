package internal

import "os"

// PrivateSnapshotHelper defines an interface for the file system operations
// performed by the snapshot manager, allowing them to be mocked in tests so
// failure paths (link errors, full disks) can be exercised deterministically.
type PrivateSnapshotHelper interface {
	Stat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	RemoveAll(path string) error
	ReadDir(name string) ([]os.DirEntry, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
}
