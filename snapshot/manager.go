package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/INLOpen/nexusolap/compressors"
	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/hooks"
	"github.com/INLOpen/nexusolap/internal"
	"github.com/INLOpen/nexusolap/storage"
	"github.com/INLOpen/nexusolap/tablet"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// manager implements ManagerInterface. It owns the staging lifecycle of
// every snapshot attempt: allocate -> lock tablet header -> select versions
// -> stage header -> link data -> unlock -> finalize or roll back.
type manager struct {
	provider EngineProvider
	alloc    *idAllocator
	stats    *Stats
	wrapper  internal.PrivateSnapshotHelper
}

// NewManager creates a snapshot manager bound to an engine provider.
func NewManager(provider EngineProvider) (ManagerInterface, error) {
	return NewManagerWithTesting(provider, newHelperSnapshot())
}

// NewManagerWithTesting lets tests substitute the filesystem helper to
// exercise failure paths.
func NewManagerWithTesting(provider EngineProvider, wrapper internal.PrivateSnapshotHelper) (ManagerInterface, error) {
	if wrapper == nil {
		wrapper = newHelperSnapshot()
	}
	stats, err := newStats()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot stats: %w", err)
	}
	return &manager{
		provider: provider,
		alloc:    newIDAllocator(provider.GetClock()),
		stats:    stats,
		wrapper:  wrapper,
	}, nil
}

func (m *manager) MakeSnapshot(ctx context.Context, req *core.SnapshotRequest) (string, error) {
	p := m.provider
	if err := p.CheckStarted(); err != nil {
		return "", err
	}
	if req == nil {
		return "", fmt.Errorf("%w: snapshot request cannot be nil", core.ErrInvalidArgument)
	}

	ctx, span := p.GetTracer().Start(ctx, "SnapshotManager.MakeSnapshot")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("snapshot.tablet_id", int64(req.TabletID)),
		attribute.Int64("snapshot.schema_hash", int64(req.SchemaHash)),
		attribute.Bool("snapshot.incremental", req.Incremental()),
	)

	t, err := p.GetTablet(req.TabletID, req.SchemaHash)
	if err != nil {
		return "", err
	}

	prePayload := hooks.PreCreateSnapshotPayload{TabletID: req.TabletID, SchemaHash: req.SchemaHash, Request: req}
	if hookErr := p.GetHookManager().Trigger(ctx, hooks.NewPreCreateSnapshotEvent(prePayload)); hookErr != nil {
		p.GetLogger().Info("MakeSnapshot cancelled by PreCreateSnapshot hook", "tablet", t.FullName(), "error", hookErr)
		return "", fmt.Errorf("operation cancelled by pre-hook: %w", hookErr)
	}

	if err := t.Store().CheckFreeSpace(p.MinFreeSpaceBytes()); err != nil {
		return "", fmt.Errorf("refusing to stage snapshot for tablet %s: %w", t.FullName(), err)
	}

	start := p.GetClock().Now()
	var path string
	if req.Incremental() {
		path, err = m.createIncrementalSnapshot(ctx, t, req)
		if err == nil {
			// Signals that the result can be layered on a prior snapshot.
			req.AllowIncrementalClone = true
		}
	} else {
		path, err = m.createFullSnapshot(ctx, t, req)
	}
	m.stats.observeCreate(p.GetClock().Now().Sub(start), err)

	if err != nil {
		p.GetLogger().Warn("Failed to make snapshot.", "tablet", t.FullName(), "error", err)
		return "", err
	}

	p.GetHookManager().Trigger(ctx, hooks.NewPostCreateSnapshotEvent(hooks.PostCreateSnapshotPayload{
		TabletID:     req.TabletID,
		SchemaHash:   req.SchemaHash,
		SnapshotPath: path,
		Incremental:  req.Incremental(),
	}))
	p.GetLogger().Info("Snapshot created successfully.", "tablet", t.FullName(), "path", path)
	return path, nil
}

// schemaHashDir returns the staging subdirectory holding the tablet's header
// and linked files: <staging>/<tablet_id>/<schema_hash>.
func schemaHashDir(stagingPath string, t *tablet.Tablet) string {
	return filepath.Join(stagingPath, fmt.Sprintf("%d", t.ID()), fmt.Sprintf("%d", t.SchemaHash()))
}

func headerPath(schemaDir string, t *tablet.Tablet) string {
	return filepath.Join(schemaDir, tablet.HeaderFileName(t.ID()))
}

// prepareStagingDirs allocates the staging path and creates its directory
// tree, clearing any stale residue of an aborted attempt first.
func (m *manager) prepareStagingDirs(t *tablet.Tablet) (stagingPath, schemaDir string, err error) {
	stagingPath = m.alloc.Allocate(t.Store())
	schemaDir = schemaHashDir(stagingPath, t)
	if _, statErr := m.wrapper.Stat(schemaDir); statErr == nil {
		m.provider.GetLogger().Debug("Removing stale schema hash directory.", "dir", schemaDir)
		if err := m.wrapper.RemoveAll(schemaDir); err != nil {
			return "", "", fmt.Errorf("failed to clear stale staging directory %s: %w", schemaDir, err)
		}
	}
	if err := m.wrapper.MkdirAll(schemaDir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create staging directory %s: %w", schemaDir, err)
	}
	return stagingPath, schemaDir, nil
}

// canonicalize resolves symlinks and returns the absolute form of path.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize %s: %w", path, err)
	}
	return filepath.Abs(resolved)
}

// createFullSnapshot stages a complete snapshot of the tablet at a target
// version: the header revised to exactly the covering rowset set, plus a
// hard link of every file those rowsets own.
func (m *manager) createFullSnapshot(ctx context.Context, t *tablet.Tablet, req *core.SnapshotRequest) (path string, err error) {
	stagingPath, schemaDir, err := m.prepareStagingDirs(t)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			m.provider.GetLogger().Warn("Snapshot staging failed, deleting staging directory.", "path", stagingPath, "error", err)
			m.wrapper.RemoveAll(stagingPath)
		}
	}()

	snapshotID, err := canonicalize(stagingPath)
	if err != nil {
		return "", err
	}

	headerLocked := true
	t.HeaderRLock()
	defer func() {
		if headerLocked {
			t.HeaderRUnlock()
		}
	}()

	latest := t.MaxVersionRowset()
	if latest == nil {
		return "", fmt.Errorf("%w: tablet %s has no versions", core.ErrVersionNotFound, t.FullName())
	}

	version := latest.EndVersion()
	if req.Version != nil {
		if err := validatePinnedVersion(t, latest, req); err != nil {
			return "", err
		}
		version = *req.Version
	}

	consistent, err := t.CaptureConsistentRowsets(core.Version{Start: 0, End: version})
	if err != nil {
		return "", err
	}

	// Load the header fresh from the backing store, never from the live
	// in-memory object: the revision below must not touch live state.
	scratch, err := tablet.LoadHeader(t.Store(), t.ID(), t.SchemaHash())
	if err != nil {
		return "", fmt.Errorf("failed to load header for tablet %s: %w", t.FullName(), err)
	}

	// Everything below touches only the scratch copy and immutable rowset
	// files; release the lock early so compaction is not starved.
	t.HeaderRUnlock()
	headerLocked = false

	metas := make([]*tablet.RowsetMeta, len(consistent))
	for i, rs := range consistent {
		metas[i] = rs.Meta()
	}
	scratch.Revise(metas)
	if err := m.stageHeader(scratch, headerPath(schemaDir, t)); err != nil {
		return "", err
	}

	if err := m.linkRowsetFiles(ctx, schemaDir, consistent); err != nil {
		return "", err
	}

	if req.Version != nil {
		if err := m.maybeAppendSingleDelta(t, consistent, *req.Version); err != nil {
			return "", err
		}
	}

	return snapshotID, nil
}

// validatePinnedVersion rejects a pinned version beyond the tablet's max end
// version, and rejects a version-hash disagreement when the max-version
// rowset is itself the single-version delta the caller pinned. A hash
// mismatch against a multi-version rowset is not rejected; see the narrower
// rule in the original capture logic.
func validatePinnedVersion(t *tablet.Tablet, latest *tablet.Rowset, req *core.SnapshotRequest) error {
	pinned := *req.Version
	if pinned < 0 {
		return fmt.Errorf("%w: snapshot request for tablet %s pins negative version %d", core.ErrInvalidArgument, t.FullName(), pinned)
	}
	if latest.EndVersion() < pinned ||
		(latest.Version().Singleton() && latest.EndVersion() == pinned && latest.VersionHash() != req.VersionHash) {
		return fmt.Errorf("%w: snapshot request for tablet %s version=%d version_hash=%d conflicts with max version %s hash=%d",
			core.ErrInvalidArgument, t.FullName(), pinned, req.VersionHash, latest.Version(), latest.VersionHash())
	}
	return nil
}

// stageHeader serializes a header into the staging directory through the
// helper so tests can inject write failures.
func (m *manager) stageHeader(meta *tablet.TabletMeta, path string) error {
	data, err := meta.Marshal()
	if err != nil {
		return err
	}
	if err := m.wrapper.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to stage header to %s: %w", path, err)
	}
	return nil
}

// linkRowsetFiles materializes every selected rowset into the staging
// directory. Rowsets are immutable once visible, so linking needs no lock;
// order does not matter and the rowsets are linked concurrently. The first
// failure aborts the group and the caller deletes the staging directory
// wholesale.
func (m *manager) linkRowsetFiles(ctx context.Context, schemaDir string, rowsets []*tablet.Rowset) error {
	g, _ := errgroup.WithContext(ctx)
	for _, rs := range rowsets {
		g.Go(func() error {
			if _, err := rs.MakeSnapshot(schemaDir); err != nil {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to link rowset files into %s: %w", schemaDir, err)
	}
	return nil
}

// maybeAppendSingleDelta runs the compensation for a pinned version that
// lands on the end of a multi-version rowset. Downstream clone and restore
// logic assumes the last version of a snapshot is a single-version delta;
// when the covering set ends in a wider rowset, an empty single-version
// delta is appended to the live tablet right after the pinned version so a
// follow-up incremental clone finds one.
//
// Precondition: pinned equals the end version of a rowset in the captured
// set whose start differs. Postcondition: the tablet's persisted header
// contains a single-version delta starting at pinned+1, either pre-existing
// or freshly synthesized.
func (m *manager) maybeAppendSingleDelta(t *tablet.Tablet, consistent []*tablet.Rowset, pinned int64) error {
	for _, rs := range consistent {
		if rs.EndVersion() != pinned {
			continue
		}
		if rs.StartVersion() != pinned {
			if err := m.appendSingleDelta(t, pinned); err != nil {
				return fmt.Errorf("failed to append single delta after version %d: %w", pinned, err)
			}
		}
		return nil
	}
	return nil
}

func (m *manager) appendSingleDelta(t *tablet.Tablet, pinned int64) error {
	t.HeaderLock()
	defer t.HeaderUnlock()

	// Re-check against the live index: another writer may already have
	// produced a delta right after the pinned version while the snapshot
	// was staging.
	latest := t.MaxVersionRowset()
	if latest == nil {
		return fmt.Errorf("%w: tablet %s lost all versions", core.ErrVersionNotFound, t.FullName())
	}
	next := core.Version{Start: pinned + 1, End: pinned + 1}
	if latest.StartVersion() == pinned || t.RowsetForVersion(next) != nil {
		return nil
	}

	meta, err := tablet.LoadHeader(t.Store(), t.ID(), t.SchemaHash())
	if err != nil {
		return err
	}
	rowsetID := uint64(1)
	for _, rm := range meta.RowsetMetas {
		if rm.RowsetID >= rowsetID {
			rowsetID = rm.RowsetID + 1
		}
	}

	codec, err := compressors.NewCompressor(meta.CompressionKind)
	if err != nil {
		return err
	}
	w, err := tablet.NewRowsetWriter(t.SchemaHashDir(), rowsetID, next, 0, codec)
	if err != nil {
		return err
	}
	empty, err := w.Finish()
	if err != nil {
		return err
	}

	if err := t.AddRowset(empty); err != nil {
		return err
	}
	if err := t.SaveHeader(); err != nil {
		return err
	}
	m.provider.GetLogger().Info("Appended empty single-version delta.", "tablet", t.FullName(), "version", pinned+1)
	return nil
}

// createIncrementalSnapshot stages only the requested missing versions,
// each of which must exist as an exact single-version rowset. The header
// lock is held for the whole operation because every lookup runs against
// the live, mutable rowset index.
func (m *manager) createIncrementalSnapshot(ctx context.Context, t *tablet.Tablet, req *core.SnapshotRequest) (path string, err error) {
	p := m.provider
	p.GetLogger().Info("Begin to create incremental snapshot.", "tablet", t.FullName(), "missing_versions", req.MissingVersions)

	stagingPath, schemaDir, err := m.prepareStagingDirs(t)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			p.GetLogger().Warn("Incremental snapshot staging failed, deleting staging directory.", "path", stagingPath, "error", err)
			m.wrapper.RemoveAll(stagingPath)
		}
	}()

	snapshotID, err := canonicalize(stagingPath)
	if err != nil {
		return "", err
	}

	t.HeaderRLock()
	defer t.HeaderRUnlock()

	// The header snapshot reflects the tablet's full current state; no
	// revision, since the caller layers the deltas onto a prior snapshot.
	scratch, err := tablet.LoadHeader(t.Store(), t.ID(), t.SchemaHash())
	if err != nil {
		return "", fmt.Errorf("failed to load header for tablet %s: %w", t.FullName(), err)
	}
	if err := m.stageHeader(scratch, headerPath(schemaDir, t)); err != nil {
		return "", err
	}

	for _, missed := range req.MissingVersions {
		v := core.Version{Start: missed, End: missed}
		rs := t.RowsetForVersion(v)
		if rs == nil {
			return "", fmt.Errorf("%w: tablet %s has no rowset for missing version %s (may have been compacted)",
				core.ErrVersionNotFound, t.FullName(), v)
		}
		if _, err := rs.MakeSnapshot(schemaDir); err != nil {
			return "", fmt.Errorf("failed to link missing version %s: %w", v, err)
		}
	}

	return snapshotID, nil
}

func (m *manager) ReleaseSnapshot(ctx context.Context, path string) error {
	p := m.provider
	_, span := p.GetTracer().Start(ctx, "SnapshotManager.ReleaseSnapshot")
	defer span.End()
	span.SetAttributes(attribute.String("snapshot.path", path))

	if hookErr := p.GetHookManager().Trigger(ctx, hooks.NewPreReleaseSnapshotEvent(hooks.PreReleaseSnapshotPayload{SnapshotPath: path})); hookErr != nil {
		return fmt.Errorf("operation cancelled by pre-hook: %w", hookErr)
	}

	// Clean the input so ".." segments cannot smuggle the path out of a
	// root after the prefix check.
	cleaned := filepath.Clean(path)

	for _, store := range p.ListDataDirs() {
		root, err := canonicalize(store.Path())
		if err != nil {
			continue
		}
		// Clean strips trailing separators, so a cleaned path equal to the
		// snapshot root itself fails the prefix test and is rejected.
		prefix := filepath.Join(root, storage.SnapshotPrefix) + string(os.PathSeparator)
		if !strings.HasPrefix(cleaned, prefix) {
			continue
		}
		if err := m.wrapper.RemoveAll(cleaned); err != nil {
			return fmt.Errorf("failed to remove snapshot path %s: %w", cleaned, err)
		}
		m.stats.observeRelease()
		p.GetHookManager().Trigger(ctx, hooks.NewPostReleaseSnapshotEvent(hooks.PostReleaseSnapshotPayload{SnapshotPath: cleaned}))
		p.GetLogger().Info("Released snapshot path.", "path", cleaned)
		return nil
	}

	p.GetLogger().Warn("Refusing to release path outside every storage root's snapshot prefix.", "path", path)
	return fmt.Errorf("%w: %s is not under any configured snapshot directory", core.ErrInvalidArgument, path)
}

func (m *manager) ListSnapshots() ([]Info, error) {
	var infos []Info
	for _, store := range m.provider.ListDataDirs() {
		base := store.SnapshotPath()
		entries, err := m.wrapper.ReadDir(base)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read snapshot directory %s: %w", base, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			dir := filepath.Join(base, entry.Name())
			info := Info{ID: entry.Name(), Path: dir}
			if ts, parseErr := parseSnapshotID(entry.Name()); parseErr == nil {
				info.CreatedAt = ts
			}
			// Best-effort size; hard links make this an upper bound.
			_ = filepath.WalkDir(dir, func(p string, d os.DirEntry, walkErr error) error {
				if walkErr == nil && !d.IsDir() {
					if fi, statErr := d.Info(); statErr == nil {
						info.Size += fi.Size()
					}
				}
				return nil
			})
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (m *manager) Stats() StatsSnapshot {
	return m.stats.Snapshot()
}
