package snapshot

import (
	"context"
	"time"

	"github.com/INLOpen/nexusolap/core"
)

// Info describes one snapshot directory under a storage root, for listing.
type Info struct {
	ID        string // the <timestamp>.<counter> directory name
	Path      string // absolute path, valid input to ReleaseSnapshot
	CreatedAt time.Time
	Size      int64 // apparent size; hard-linked data counts once per link
}

// ManagerInterface is the API exposed to clone/backup callers.
type ManagerInterface interface {
	// MakeSnapshot produces a consistent on-disk snapshot for the requested
	// tablet and returns its canonical path. The request dispatches to
	// incremental mode when MissingVersions is set, else to full mode. On
	// failure no trace of the attempt remains on disk.
	MakeSnapshot(ctx context.Context, req *core.SnapshotRequest) (string, error)

	// ReleaseSnapshot deletes a snapshot previously returned by
	// MakeSnapshot. Paths outside every configured storage root's snapshot
	// prefix are rejected without deleting anything.
	ReleaseSnapshot(ctx context.Context, path string) error

	// ListSnapshots enumerates the snapshot directories of every configured
	// storage root.
	ListSnapshots() ([]Info, error)

	// Stats returns creation/release counters and latency quantiles.
	Stats() StatsSnapshot
}
