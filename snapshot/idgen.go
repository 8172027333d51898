package snapshot

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/storage"
	"github.com/INLOpen/nexusolap/utils"
)

// snapshotTimeFormat gives second-granularity, lexically sortable directory
// names.
const snapshotTimeFormat = "20060102150405"

// idAllocator produces unique, time-ordered staging paths under a storage
// root's snapshot prefix. The counter is process-wide and monotonic; its
// mutex guards only the read-increment-format step so unrelated snapshot
// requests are serialized for as short a window as possible.
type idAllocator struct {
	mu     sync.Mutex
	nextID uint64
	clock  utils.Clock
}

func newIDAllocator(clock utils.Clock) *idAllocator {
	return &idAllocator{clock: clock}
}

// Allocate returns a fresh staging path for a snapshot of a tablet stored in
// the given root. Two concurrent calls never return the same path, even
// within the same second.
func (a *idAllocator) Allocate(store *storage.DataDir) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	name := fmt.Sprintf("%s.%d", a.clock.Now().Format(snapshotTimeFormat), a.nextID)
	a.nextID++
	return filepath.Join(store.SnapshotPath(), name)
}

// parseSnapshotID recovers the creation time from a snapshot directory name
// of the form <timestamp>.<counter>.
func parseSnapshotID(name string) (time.Time, error) {
	stamp, _, ok := strings.Cut(name, ".")
	if !ok {
		return time.Time{}, fmt.Errorf("%w: malformed snapshot directory name %q", core.ErrInvalidArgument, name)
	}
	ts, err := time.ParseInLocation(snapshotTimeFormat, stamp, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed snapshot directory name %q", core.ErrInvalidArgument, name)
	}
	return ts, nil
}
