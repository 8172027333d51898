package tablet

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/INLOpen/nexusolap/core"
)

// Rowset is an immutable unit of stored data covering a closed version
// range. Once a rowset is visible in a tablet's index its files are never
// modified in place, only superseded by compaction and garbage-collected
// later, so hard-linking them requires no lock.
type Rowset struct {
	meta *RowsetMeta
	dir  string
}

// NewRowset wraps a rowset meta rooted at the given directory.
func NewRowset(meta *RowsetMeta, dir string) *Rowset {
	return &Rowset{meta: meta, dir: dir}
}

func (r *Rowset) Meta() *RowsetMeta             { return r.meta }
func (r *Rowset) Version() core.Version         { return r.meta.Version }
func (r *Rowset) StartVersion() int64           { return r.meta.Version.Start }
func (r *Rowset) EndVersion() int64             { return r.meta.Version.End }
func (r *Rowset) VersionHash() core.VersionHash { return r.meta.VersionHash }
func (r *Rowset) Dir() string                   { return r.dir }

// SegmentDataFileName returns the data file name of one segment.
func SegmentDataFileName(rowsetID uint64, seg int) string {
	return fmt.Sprintf("%d_%d.dat", rowsetID, seg)
}

// SegmentIndexFileName returns the index file name of one segment.
func SegmentIndexFileName(rowsetID uint64, seg int) string {
	return fmt.Sprintf("%d_%d.idx", rowsetID, seg)
}

// FileNames returns the names of every physical file owned by the rowset.
func (r *Rowset) FileNames() []string {
	names := make([]string, 0, r.meta.SegmentCount*2)
	for seg := 0; seg < r.meta.SegmentCount; seg++ {
		names = append(names,
			SegmentDataFileName(r.meta.RowsetID, seg),
			SegmentIndexFileName(r.meta.RowsetID, seg))
	}
	return names
}

// MakeSnapshot materializes the rowset into targetDir by hard-linking every
// file under its original name. No bytes are copied, so a snapshot costs
// directory entries rather than rowset-sized storage. On failure it returns
// the names linked so far together with the error; the caller is expected to
// delete the enclosing staging directory wholesale, so no self-cleanup is
// attempted here.
func (r *Rowset) MakeSnapshot(targetDir string) ([]string, error) {
	linked := make([]string, 0, r.meta.SegmentCount*2)
	for _, name := range r.FileNames() {
		src := filepath.Join(r.dir, name)
		dst := filepath.Join(targetDir, name)
		if err := os.Link(src, dst); err != nil {
			return linked, fmt.Errorf("failed to link rowset %d file %s into %s: %w", r.meta.RowsetID, name, targetDir, err)
		}
		linked = append(linked, name)
	}
	return linked, nil
}
