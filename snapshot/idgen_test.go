package snapshot

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/storage"
	"github.com/INLOpen/nexusolap/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDAllocatorConcurrentUniqueness(t *testing.T) {
	store := storage.NewDataDir(t.TempDir())
	clock := utils.NewMockClock(mustTime(t, "20260115093000"))
	alloc := newIDAllocator(clock)

	const workers = 16
	const perWorker = 50

	var mu sync.Mutex
	seen := make(map[string]struct{}, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				path := alloc.Allocate(store)
				mu.Lock()
				seen[path] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// The clock never moved, so uniqueness rests entirely on the counter.
	assert.Len(t, seen, workers*perWorker)
	for path := range seen {
		assert.Equal(t, store.SnapshotPath(), filepath.Dir(path))
		assert.True(t, strings.HasPrefix(filepath.Base(path), "20260115093000."))
	}
}

func TestParseSnapshotID(t *testing.T) {
	ts, err := parseSnapshotID("20260115093000.7")
	require.NoError(t, err)
	assert.Equal(t, mustTime(t, "20260115093000"), ts)

	for _, name := range []string{"nodot", "garbage.3", ""} {
		_, err := parseSnapshotID(name)
		assert.ErrorIs(t, err, core.ErrInvalidArgument, name)
	}
}

func TestIDAllocatorOrderedAcrossTime(t *testing.T) {
	store := storage.NewDataDir(t.TempDir())
	clock := utils.NewMockClock(mustTime(t, "20260115093000"))
	alloc := newIDAllocator(clock)

	first := alloc.Allocate(store)
	clock.Advance(time.Second)
	second := alloc.Allocate(store)
	assert.Less(t, filepath.Base(first), filepath.Base(second))
}
