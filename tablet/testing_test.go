package tablet

import (
	"fmt"
	"testing"

	"github.com/INLOpen/nexusolap/compressors"
	"github.com/INLOpen/nexusolap/core"
	"github.com/INLOpen/nexusolap/storage"
	"github.com/stretchr/testify/require"
)

func testSchema() *TabletSchema {
	return &TabletSchema{
		Columns: []ColumnSchema{
			{UniqueID: 0, Name: "user_id", Type: TypeBigInt, IsKey: true, Length: 8},
			{UniqueID: 1, Name: "city", Type: TypeVarchar, IsKey: true, Length: 32, IndexLength: 32},
			{UniqueID: 2, Name: "cost", Type: TypeBigInt, Aggregation: AggSum, Length: 8},
		},
		NumRowsPerRowBlock: 1024,
	}
}

func newTestMeta(id core.TabletID, hash core.SchemaHash) *TabletMeta {
	return &TabletMeta{
		TabletID:            id,
		SchemaHash:          hash,
		Schema:              testSchema(),
		KeysType:            core.AggKeys,
		ShortKeyColumnCount: 2,
		CompressionKind:     core.CompressionSnappy,
		BloomFilterFPRate:   0.05,
		NextColumnUniqueID:  3,
	}
}

// writeTestRowset materializes a rowset with a couple of rows into the
// tablet's schema-hash directory.
func writeTestRowset(t *testing.T, dir string, rowsetID uint64, v core.Version, hash core.VersionHash) *Rowset {
	t.Helper()
	codec, err := compressors.NewCompressor(core.CompressionSnappy)
	require.NoError(t, err)
	w, err := NewRowsetWriter(dir, rowsetID, v, hash, codec)
	require.NoError(t, err)
	if v.Start <= v.End { // every test rowset gets a little data
		rows := [][]byte{
			[]byte(fmt.Sprintf("row-%d-a", v.Start)),
			[]byte(fmt.Sprintf("row-%d-b", v.End)),
		}
		require.NoError(t, w.AppendBlock(rows))
	}
	rs, err := w.Finish()
	require.NoError(t, err)
	return rs
}

// buildTestTablet creates a persisted tablet with one rowset per version,
// registered against a fresh DataDir rooted in a temp directory.
func buildTestTablet(t *testing.T, id core.TabletID, hash core.SchemaHash, versions []core.Version) (*Tablet, *storage.DataDir) {
	t.Helper()
	store := storage.NewDataDir(t.TempDir())
	require.NoError(t, store.Open())

	meta := newTestMeta(id, hash)
	dir := store.SchemaHashPath(id, hash)
	for i, v := range versions {
		rs := writeTestRowset(t, dir, uint64(i+1), v, core.VersionHash(100+v.End))
		meta.RowsetMetas = append(meta.RowsetMetas, rs.Meta())
	}
	require.NoError(t, SaveHeader(store, meta))
	return NewTablet(meta, store), store
}
