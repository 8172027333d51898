package tablet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/storage"
)

// RowsetMeta is the serializable record of one rowset inside the tablet
// header. The rowset's on-disk file names are derived from RowsetID and
// SegmentCount, so a header plus the files it references is a complete,
// self-describing snapshot.
type RowsetMeta struct {
	RowsetID     uint64           `json:"rowset_id"`
	Version      core.Version     `json:"version"`
	VersionHash  core.VersionHash `json:"version_hash"`
	NumRows      int64            `json:"num_rows"`
	DataSize     int64            `json:"data_size"`
	SegmentCount int              `json:"segment_count"`
	Empty        bool             `json:"empty,omitempty"`
	CreationTime int64            `json:"creation_time"`
}

// TabletMeta is the persisted tablet header: schema plus the rowset index at
// a point in time.
type TabletMeta struct {
	TabletID            core.TabletID        `json:"tablet_id"`
	SchemaHash          core.SchemaHash      `json:"schema_hash"`
	Schema              *TabletSchema        `json:"schema"`
	KeysType            core.KeysType        `json:"keys_type"`
	ShortKeyColumnCount int                  `json:"short_key_column_count"`
	CompressionKind     core.CompressionType `json:"compression_kind"`
	BloomFilterFPRate   float64              `json:"bloom_filter_fp_rate"`
	NextColumnUniqueID  uint32               `json:"next_column_unique_id"`
	CreationTime        int64                `json:"creation_time"`
	RowsetMetas         []*RowsetMeta        `json:"rowset_metas"`
}

// Revise replaces the header's rowset list with exactly the given metas.
// Every other tablet-level field is left untouched. It must only be called
// on a scratch copy loaded fresh from disk, never on a live tablet's header.
func (m *TabletMeta) Revise(metas []*RowsetMeta) {
	m.RowsetMetas = make([]*RowsetMeta, len(metas))
	copy(m.RowsetMetas, metas)
}

// Marshal serializes the header to its on-disk representation.
func (m *TabletMeta) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tablet header %d.%d: %w", m.TabletID, m.SchemaHash, err)
	}
	return data, nil
}

// Save serializes the header to path.
func (m *TabletMeta) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tablet header to %s: %w", path, err)
	}
	return nil
}

// LoadTabletMeta reads a header file.
func LoadTabletMeta(path string) (*TabletMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tablet header %s: %w", path, err)
	}
	meta := &TabletMeta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tablet header %s: %w", path, err)
	}
	return meta, nil
}

// HeaderFileName returns the header file name for a tablet id.
func HeaderFileName(id core.TabletID) string {
	return fmt.Sprintf("%d.hdr", id)
}

// LoadHeader reads a tablet's header fresh from its storage root. It never
// consults in-memory state, so the result reflects exactly what is on disk.
func LoadHeader(store *storage.DataDir, id core.TabletID, hash core.SchemaHash) (*TabletMeta, error) {
	path := filepath.Join(store.SchemaHashPath(id, hash), HeaderFileName(id))
	return LoadTabletMeta(path)
}

// SaveHeader persists a tablet header into its storage root.
func SaveHeader(store *storage.DataDir, meta *TabletMeta) error {
	dir := store.SchemaHashPath(meta.TabletID, meta.SchemaHash)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create tablet directory %s: %w", dir, err)
	}
	return meta.Save(filepath.Join(dir, HeaderFileName(meta.TabletID)))
}
