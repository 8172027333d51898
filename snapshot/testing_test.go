package snapshot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/INLOpen/nexusolap/compressors"
	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/hooks"
	"github.com/INLOpen/nexusolap/storage"
	"github.com/INLOpen/nexusolap/tablet"
	"github.com/INLOpen/nexusolap/utils"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type tabletKey struct {
	id   core.TabletID
	hash core.SchemaHash
}

// testProvider is a minimal EngineProvider fixture.
type testProvider struct {
	startErr error
	tablets  map[tabletKey]*tablet.Tablet
	stores   []*storage.DataDir
	minFree  uint64
	logger   *slog.Logger
	tracer   trace.Tracer
	clock    utils.Clock
	hookMgr  hooks.HookManager
}

func newTestProvider() *testProvider {
	return &testProvider{
		tablets: make(map[tabletKey]*tablet.Tablet),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  noop.NewTracerProvider().Tracer("test"),
		clock:   utils.NewSystemClock(),
		hookMgr: hooks.NewHookManager(nil),
	}
}

func (p *testProvider) CheckStarted() error { return p.startErr }

func (p *testProvider) GetTablet(id core.TabletID, hash core.SchemaHash) (*tablet.Tablet, error) {
	t, ok := p.tablets[tabletKey{id: id, hash: hash}]
	if !ok {
		return nil, fmt.Errorf("%w: tablet %d.%d", core.ErrTabletNotFound, id, hash)
	}
	return t, nil
}

func (p *testProvider) ListDataDirs() []*storage.DataDir { return p.stores }
func (p *testProvider) MinFreeSpaceBytes() uint64        { return p.minFree }
func (p *testProvider) GetLogger() *slog.Logger          { return p.logger }
func (p *testProvider) GetTracer() trace.Tracer          { return p.tracer }
func (p *testProvider) GetClock() utils.Clock            { return p.clock }
func (p *testProvider) GetHookManager() hooks.HookManager {
	return p.hookMgr
}

func testSchema() *tablet.TabletSchema {
	return &tablet.TabletSchema{
		Columns: []tablet.ColumnSchema{
			{UniqueID: 0, Name: "user_id", Type: tablet.TypeBigInt, IsKey: true, Length: 8},
			{UniqueID: 1, Name: "cost", Type: tablet.TypeBigInt, Aggregation: tablet.AggSum, Length: 8},
		},
		NumRowsPerRowBlock: 1024,
	}
}

// addTestTablet persists a tablet with one rowset per version into a fresh
// storage root and registers both with the provider. Rowset ids count up
// from 1 in version order; version hashes are 100 plus the end version.
func addTestTablet(t *testing.T, p *testProvider, id core.TabletID, hash core.SchemaHash, versions []core.Version) (*tablet.Tablet, *storage.DataDir) {
	t.Helper()
	store := storage.NewDataDir(t.TempDir())
	require.NoError(t, store.Open())

	meta := &tablet.TabletMeta{
		TabletID:           id,
		SchemaHash:         hash,
		Schema:             testSchema(),
		KeysType:           core.AggKeys,
		CompressionKind:    core.CompressionSnappy,
		NextColumnUniqueID: 2,
	}
	codec, err := compressors.NewCompressor(core.CompressionSnappy)
	require.NoError(t, err)

	dir := store.SchemaHashPath(id, hash)
	for i, v := range versions {
		w, err := tablet.NewRowsetWriter(dir, uint64(i+1), v, core.VersionHash(100+v.End), codec)
		require.NoError(t, err)
		require.NoError(t, w.AppendBlock([][]byte{[]byte(fmt.Sprintf("row-%d", v.Start))}))
		rs, err := w.Finish()
		require.NoError(t, err)
		meta.RowsetMetas = append(meta.RowsetMetas, rs.Meta())
	}
	require.NoError(t, tablet.SaveHeader(store, meta))

	tab := tablet.NewTablet(meta, store)
	p.tablets[tabletKey{id: id, hash: hash}] = tab
	p.stores = append(p.stores, store)
	return tab, store
}

var errInjected = errors.New("injected failure")

// faultHelper delegates to the os package, with switchable failures and a
// record of every RemoveAll.
type faultHelper struct {
	failWriteFile bool
	failMkdirAll  bool
	removed       []string
}

func (h *faultHelper) Stat(name string) (os.FileInfo, error) { return os.Stat(name) }

func (h *faultHelper) MkdirAll(path string, perm os.FileMode) error {
	if h.failMkdirAll {
		return errInjected
	}
	return os.MkdirAll(path, perm)
}

func (h *faultHelper) RemoveAll(path string) error {
	h.removed = append(h.removed, path)
	return os.RemoveAll(path)
}

func (h *faultHelper) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

func (h *faultHelper) WriteFile(name string, data []byte, perm os.FileMode) error {
	if h.failWriteFile {
		return errInjected
	}
	return os.WriteFile(name, data, perm)
}
