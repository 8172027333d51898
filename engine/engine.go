// Package engine assembles the storage roots, the tablet registry and the
// snapshot manager into one runnable unit. There is no process-wide
// singleton; callers construct an engine and pass the handle around.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/INLOpen/nexusolap/config"
	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/hooks"
	"github.com/INLOpen/nexusolap/snapshot"
	"github.com/INLOpen/nexusolap/storage"
	"github.com/INLOpen/nexusolap/tablet"
	"github.com/INLOpen/nexusolap/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ErrEngineClosed is returned by operations on an engine that has not been
// started or has been closed.
var ErrEngineClosed = errors.New("storage engine is not started")

// StorageEngine owns the configured storage roots and every tablet loaded
// from them, and fronts the snapshot manager.
type StorageEngine struct {
	cfg     *config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	clock   utils.Clock
	hookMgr hooks.HookManager

	stores    []*storage.DataDir
	tablets   *tablet.Manager
	snapshots snapshot.ManagerInterface

	isStarted atomic.Bool
}

// NewStorageEngine wires an engine from its configuration. Call Start before
// use. A nil logger discards output.
func NewStorageEngine(cfg *config.Config, logger *slog.Logger) (*StorageEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("component", "StorageEngine")

	e := &StorageEngine{
		cfg:     cfg,
		logger:  logger,
		tracer:  otel.Tracer("nexusolap/engine"),
		clock:   utils.NewSystemClock(),
		hookMgr: hooks.NewHookManager(logger.With("component", "HookManager")),
		tablets: tablet.NewManager(),
	}
	for _, root := range cfg.Storage.Roots {
		e.stores = append(e.stores, storage.NewDataDir(root))
	}

	mgr, err := snapshot.NewManager(e)
	if err != nil {
		return nil, err
	}
	e.snapshots = mgr
	return e, nil
}

// Start opens every storage root and loads the persisted tablet headers into
// the registry.
func (e *StorageEngine) Start() error {
	if e.isStarted.Load() {
		return nil
	}
	for _, store := range e.stores {
		if err := store.Open(); err != nil {
			return err
		}
		if err := e.loadTablets(store); err != nil {
			return err
		}
	}
	e.isStarted.Store(true)
	e.logger.Info("Storage engine started.", "roots", len(e.stores), "tablets", len(e.tablets.Tablets()))
	return nil
}

// loadTablets scans data/<tablet_id>/<schema_hash>/<tablet_id>.hdr under a
// root and registers every tablet found. Directories that do not parse as
// ids are skipped with a warning rather than failing startup.
func (e *StorageEngine) loadTablets(store *storage.DataDir) error {
	tabletDirs, err := os.ReadDir(store.DataPath())
	if err != nil {
		return fmt.Errorf("failed to scan data directory %s: %w", store.DataPath(), err)
	}
	for _, td := range tabletDirs {
		if !td.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(td.Name(), 10, 64)
		if err != nil {
			e.logger.Warn("Skipping non-tablet directory.", "dir", td.Name())
			continue
		}
		hashDirs, err := os.ReadDir(filepath.Join(store.DataPath(), td.Name()))
		if err != nil {
			return fmt.Errorf("failed to scan tablet directory %s: %w", td.Name(), err)
		}
		for _, hd := range hashDirs {
			if !hd.IsDir() {
				continue
			}
			hash, err := strconv.ParseInt(hd.Name(), 10, 32)
			if err != nil {
				e.logger.Warn("Skipping non-schema-hash directory.", "tablet", td.Name(), "dir", hd.Name())
				continue
			}
			meta, err := tablet.LoadHeader(store, core.TabletID(id), core.SchemaHash(hash))
			if err != nil {
				return fmt.Errorf("failed to load tablet %s.%s: %w", td.Name(), hd.Name(), err)
			}
			if err := e.tablets.Register(tablet.NewTablet(meta, store)); err != nil {
				return err
			}
			e.hookMgr.Trigger(context.Background(), hooks.NewPostTabletLoadEvent(hooks.PostTabletLoadPayload{
				TabletID:   meta.TabletID,
				SchemaHash: meta.SchemaHash,
			}))
			e.logger.Debug("Loaded tablet.", "tablet", meta.TabletID, "schema_hash", meta.SchemaHash, "rowsets", len(meta.RowsetMetas))
		}
	}
	return nil
}

// Close stops the engine. Outstanding asynchronous hook listeners are waited
// for; subsequent operations fail with ErrEngineClosed.
func (e *StorageEngine) Close() error {
	if !e.isStarted.Swap(false) {
		return nil
	}
	e.hookMgr.Stop()
	e.logger.Info("Storage engine closed.")
	return nil
}

// CreateTablet persists a new tablet header into the first configured root
// and registers the tablet.
func (e *StorageEngine) CreateTablet(meta *tablet.TabletMeta) (*tablet.Tablet, error) {
	if err := e.CheckStarted(); err != nil {
		return nil, err
	}
	store := e.stores[0]
	if err := tablet.SaveHeader(store, meta); err != nil {
		return nil, err
	}
	t := tablet.NewTablet(meta, store)
	if err := e.tablets.Register(t); err != nil {
		return nil, err
	}
	return t, nil
}

// MakeSnapshot delegates to the snapshot manager.
func (e *StorageEngine) MakeSnapshot(ctx context.Context, req *core.SnapshotRequest) (string, error) {
	return e.snapshots.MakeSnapshot(ctx, req)
}

// ReleaseSnapshot delegates to the snapshot manager.
func (e *StorageEngine) ReleaseSnapshot(ctx context.Context, path string) error {
	return e.snapshots.ReleaseSnapshot(ctx, path)
}

// ListSnapshots delegates to the snapshot manager.
func (e *StorageEngine) ListSnapshots() ([]snapshot.Info, error) {
	return e.snapshots.ListSnapshots()
}

// SnapshotStats returns the snapshot manager's counters.
func (e *StorageEngine) SnapshotStats() snapshot.StatsSnapshot {
	return e.snapshots.Stats()
}
