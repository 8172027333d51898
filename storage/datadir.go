// Package storage models the configured storage roots of the engine. Each
// DataDir is one root directory holding a data/ tree with tablet headers and
// rowset files, and a snapshot/ tree with staged snapshots.
package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/INLOpen/nexusolap/core"
	"github.com/shirou/gopsutil/v3/disk"
)

const (
	// DataPrefix is the subdirectory of a root holding tablet data.
	DataPrefix = "data"
	// SnapshotPrefix is the subdirectory of a root holding snapshots. Every
	// path ever returned by the snapshot manager lives under it.
	SnapshotPrefix = "snapshot"
)

// DataDir is a single configured storage root.
type DataDir struct {
	path string
}

// NewDataDir wraps a root path. Call Open before using it.
func NewDataDir(path string) *DataDir {
	return &DataDir{path: path}
}

// Open creates the root's directory skeleton.
func (d *DataDir) Open() error {
	for _, dir := range []string{d.path, d.DataPath(), d.SnapshotPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory %s: %w", dir, err)
		}
	}
	return nil
}

// Path returns the root path as configured.
func (d *DataDir) Path() string { return d.path }

// DataPath returns the root's tablet data directory.
func (d *DataDir) DataPath() string { return filepath.Join(d.path, DataPrefix) }

// SnapshotPath returns the root's snapshot directory.
func (d *DataDir) SnapshotPath() string { return filepath.Join(d.path, SnapshotPrefix) }

// TabletPath returns the directory holding all schema generations of a tablet.
func (d *DataDir) TabletPath(id core.TabletID) string {
	return filepath.Join(d.DataPath(), fmt.Sprintf("%d", id))
}

// SchemaHashPath returns the directory holding one schema generation's header
// and rowset files.
func (d *DataDir) SchemaHashPath(id core.TabletID, hash core.SchemaHash) string {
	return filepath.Join(d.TabletPath(id), fmt.Sprintf("%d", hash))
}

// CheckFreeSpace fails when the filesystem backing the root has less than
// minFree bytes available. A zero minFree disables the check.
func (d *DataDir) CheckFreeSpace(minFree uint64) error {
	if minFree == 0 {
		return nil
	}
	usage, err := disk.Usage(d.path)
	if err != nil {
		return fmt.Errorf("failed to stat disk usage for %s: %w", d.path, err)
	}
	if usage.Free < minFree {
		return fmt.Errorf("storage root %s has %d bytes free, below the configured minimum %d", d.path, usage.Free, minFree)
	}
	return nil
}
