package tablet

import (
	"fmt"
	"sync"

	"github.com/INLOpen/skiplist"
	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/storage"
)

// indexKey orders rowsets in the tablet's version index.
type indexKey struct {
	start int64
	end   int64
}

func indexComparator(a, b *indexKey) int {
	if a.start != b.start {
		if a.start < b.start {
			return -1
		}
		return 1
	}
	if a.end != b.end {
		if a.end < b.end {
			return -1
		}
		return 1
	}
	return 0
}

// Tablet is a mutable, versioned collection of rowsets. The header lock
// guards the metadata and the rowset index: readers (snapshots, queries)
// take the read lock, compaction and ingestion take the write lock.
type Tablet struct {
	meta  *TabletMeta
	store *storage.DataDir

	headerMu sync.RWMutex
	rowsets  *skiplist.SkipList[*indexKey, *Rowset]
}

// NewTablet builds a tablet from its header, rooting every rowset at the
// tablet's schema-hash directory under the given store.
func NewTablet(meta *TabletMeta, store *storage.DataDir) *Tablet {
	t := &Tablet{
		meta:    meta,
		store:   store,
		rowsets: skiplist.NewWithComparator[*indexKey, *Rowset](indexComparator),
	}
	dir := t.SchemaHashDir()
	for _, rm := range meta.RowsetMetas {
		rs := NewRowset(rm, dir)
		t.rowsets.Insert(&indexKey{start: rm.Version.Start, end: rm.Version.End}, rs)
	}
	return t
}

func (t *Tablet) ID() core.TabletID           { return t.meta.TabletID }
func (t *Tablet) SchemaHash() core.SchemaHash { return t.meta.SchemaHash }
func (t *Tablet) Store() *storage.DataDir     { return t.store }

// FullName identifies the tablet in logs and errors.
func (t *Tablet) FullName() string {
	return fmt.Sprintf("%d.%d", t.meta.TabletID, t.meta.SchemaHash)
}

// SchemaHashDir is the directory holding the tablet's header and rowset files.
func (t *Tablet) SchemaHashDir() string {
	return t.store.SchemaHashPath(t.meta.TabletID, t.meta.SchemaHash)
}

// HeaderRLock acquires the header read lock. Concurrent snapshots and other
// readers may hold it simultaneously; compaction blocks until all release.
func (t *Tablet) HeaderRLock()   { t.headerMu.RLock() }
func (t *Tablet) HeaderRUnlock() { t.headerMu.RUnlock() }
func (t *Tablet) HeaderLock()    { t.headerMu.Lock() }
func (t *Tablet) HeaderUnlock()  { t.headerMu.Unlock() }

// MaxVersionRowset returns the rowset with the highest end version, or nil
// when the tablet has no versions. Ties on end version resolve to the later
// start (the narrower, more recent delta). Callers must hold the header lock.
func (t *Tablet) MaxVersionRowset() *Rowset {
	var max *Rowset
	t.rowsets.Range(func(key *indexKey, rs *Rowset) bool {
		if max == nil || rs.EndVersion() > max.EndVersion() ||
			(rs.EndVersion() == max.EndVersion() && rs.StartVersion() > max.StartVersion()) {
			max = rs
		}
		return true
	})
	return max
}

// RowsetForVersion returns the rowset covering exactly the given version
// range, or nil. Callers must hold the header lock.
func (t *Tablet) RowsetForVersion(v core.Version) *Rowset {
	node, ok := t.rowsets.Seek(&indexKey{start: v.Start, end: v.End})
	if !ok {
		return nil
	}
	if key := node.Key(); key.start != v.Start || key.end != v.End {
		return nil
	}
	return node.Value()
}

// Rowsets returns all rowsets ordered by start version. Callers must hold
// the header lock.
func (t *Tablet) Rowsets() []*Rowset {
	out := make([]*Rowset, 0, t.rowsets.Len())
	t.rowsets.Range(func(key *indexKey, rs *Rowset) bool {
		out = append(out, rs)
		return true
	})
	return out
}

// AddRowset makes a rowset visible in the index and the header. Callers must
// hold the header write lock.
func (t *Tablet) AddRowset(rs *Rowset) error {
	v := rs.Version()
	if existing := t.RowsetForVersion(v); existing != nil {
		return fmt.Errorf("%w: tablet %s already has a rowset for version %s", core.ErrInvalidArgument, t.FullName(), v)
	}
	t.rowsets.Insert(&indexKey{start: v.Start, end: v.End}, rs)
	t.meta.RowsetMetas = append(t.meta.RowsetMetas, rs.Meta())
	return nil
}

// ReplaceRowsets swaps a set of rowsets for their compacted replacement in
// the index and the header. The index is rebuilt from the revised meta list;
// replacement happens rarely enough that the rebuild cost does not matter.
// Callers must hold the header write lock.
func (t *Tablet) ReplaceRowsets(olds []*Rowset, replacement *Rowset) error {
	removed := make(map[core.Version]struct{}, len(olds))
	for _, old := range olds {
		v := old.Version()
		if t.RowsetForVersion(v) == nil {
			return fmt.Errorf("%w: tablet %s has no rowset for version %s", core.ErrInvalidArgument, t.FullName(), v)
		}
		removed[v] = struct{}{}
	}

	kept := make([]*RowsetMeta, 0, len(t.meta.RowsetMetas))
	for _, rm := range t.meta.RowsetMetas {
		if _, gone := removed[rm.Version]; !gone {
			kept = append(kept, rm)
		}
	}
	kept = append(kept, replacement.Meta())
	t.meta.RowsetMetas = kept

	t.rowsets = skiplist.NewWithComparator[*indexKey, *Rowset](indexComparator)
	dir := t.SchemaHashDir()
	for _, rm := range t.meta.RowsetMetas {
		t.rowsets.Insert(&indexKey{start: rm.Version.Start, end: rm.Version.End}, NewRowset(rm, dir))
	}
	return nil
}

// SaveHeader persists the tablet's current header. Callers must hold the
// header lock (read suffices; the write is a point-in-time serialization).
func (t *Tablet) SaveHeader() error {
	return SaveHeader(t.store, t.meta)
}
