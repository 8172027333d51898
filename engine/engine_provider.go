package engine

import (
	"log/slog"

	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/hooks"
	"github.com/INLOpen/nexusolap/snapshot"
	"github.com/INLOpen/nexusolap/storage"
	"github.com/INLOpen/nexusolap/tablet"
	"github.com/INLOpen/nexusolap/utils"
	"go.opentelemetry.io/otel/trace"
)

// This file implements snapshot.EngineProvider for StorageEngine, bridging
// the snapshot manager to the engine's internal state and keeping the two
// packages decoupled.

var _ snapshot.EngineProvider = (*StorageEngine)(nil)

func (e *StorageEngine) CheckStarted() error {
	if !e.isStarted.Load() {
		return ErrEngineClosed
	}
	return nil
}

func (e *StorageEngine) GetTablet(id core.TabletID, hash core.SchemaHash) (*tablet.Tablet, error) {
	return e.tablets.Get(id, hash)
}

func (e *StorageEngine) ListDataDirs() []*storage.DataDir {
	return e.stores
}

func (e *StorageEngine) MinFreeSpaceBytes() uint64 {
	return e.cfg.Storage.MinFreeSpaceBytes
}

func (e *StorageEngine) GetLogger() *slog.Logger {
	return e.logger
}

func (e *StorageEngine) GetTracer() trace.Tracer {
	return e.tracer
}

func (e *StorageEngine) GetClock() utils.Clock {
	return e.clock
}

func (e *StorageEngine) GetHookManager() hooks.HookManager {
	return e.hookMgr
}
