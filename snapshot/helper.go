package snapshot

import (
	"os"

	"github.com/INLOpen/nexusolap/internal"
)

// helperSnapshot is the production PrivateSnapshotHelper backed by the os
// package.
type helperSnapshot struct{}

var _ internal.PrivateSnapshotHelper = (*helperSnapshot)(nil)

func newHelperSnapshot() *helperSnapshot {
	return &helperSnapshot{}
}

func (h *helperSnapshot) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (h *helperSnapshot) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (h *helperSnapshot) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (h *helperSnapshot) ReadDir(name string) ([]os.DirEntry, error) {
	return os.ReadDir(name)
}

func (h *helperSnapshot) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
