package snapshot

import (
	"log/slog"

	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/hooks"
	"github.com/INLOpen/nexusolap/storage"
	"github.com/INLOpen/nexusolap/tablet"
	"github.com/INLOpen/nexusolap/utils"
	"go.opentelemetry.io/otel/trace"
)

// EngineProvider defines the slice of engine state the snapshot manager
// needs. It decouples the snapshot logic from the engine implementation and
// lets tests substitute a minimal fixture.
type EngineProvider interface {
	CheckStarted() error
	GetTablet(id core.TabletID, hash core.SchemaHash) (*tablet.Tablet, error)
	// ListDataDirs returns every configured storage root. ReleaseSnapshot
	// accepts only paths under one of their snapshot prefixes.
	ListDataDirs() []*storage.DataDir
	// MinFreeSpaceBytes is the staging guard threshold; zero disables it.
	MinFreeSpaceBytes() uint64

	GetLogger() *slog.Logger
	GetTracer() trace.Tracer
	GetClock() utils.Clock
	GetHookManager() hooks.HookManager
}
