package tablet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/INLOpen/nexusolap/compressors"
	"github.com/INLOpen/nexusolap/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowsetWriterRoundtrip(t *testing.T) {
	dir := t.TempDir()
	codec, err := compressors.NewCompressor(core.CompressionLZ4)
	require.NoError(t, err)

	w, err := NewRowsetWriter(dir, 7, core.Version{Start: 3, End: 3}, 42, codec)
	require.NoError(t, err)
	require.NoError(t, w.AppendBlock([][]byte{[]byte("alpha"), []byte("beta")}))
	require.NoError(t, w.AppendBlock([][]byte{[]byte("gamma")}))

	rs, err := w.Finish()
	require.NoError(t, err)
	assert.Equal(t, int64(3), rs.Meta().NumRows)
	assert.False(t, rs.Meta().Empty)
	assert.Equal(t, []string{"7_0.dat", "7_0.idx"}, rs.FileNames())

	rows, err := ScanSegment(filepath.Join(dir, "7_0.dat"), codec)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}, rows)
}

func TestRowsetWriterEmptyRowset(t *testing.T) {
	dir := t.TempDir()
	codec, err := compressors.NewCompressor(core.CompressionNone)
	require.NoError(t, err)

	w, err := NewRowsetWriter(dir, 9, core.Version{Start: 8, End: 8}, 0, codec)
	require.NoError(t, err)
	rs, err := w.Finish()
	require.NoError(t, err)

	assert.True(t, rs.Meta().Empty)
	assert.Equal(t, int64(0), rs.Meta().NumRows)
	// The segment files exist even for an empty delta, so snapshots can
	// link them like any other rowset.
	for _, name := range rs.FileNames() {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err)
	}
}

func TestRowsetWriterRemovesDataFileOnIndexCreateFailure(t *testing.T) {
	dir := t.TempDir()
	codec, err := compressors.NewCompressor(core.CompressionNone)
	require.NoError(t, err)

	// A directory squatting on the index file name makes os.Create fail
	// after the data file already exists.
	require.NoError(t, os.Mkdir(filepath.Join(dir, SegmentIndexFileName(5, 0)), 0755))

	_, err = NewRowsetWriter(dir, 5, core.Version{Start: 1, End: 1}, 0, codec)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, SegmentDataFileName(5, 0)))
}

func TestMakeSnapshotReportsPartialProgress(t *testing.T) {
	srcDir := t.TempDir()
	codec, err := compressors.NewCompressor(core.CompressionNone)
	require.NoError(t, err)

	w, err := NewRowsetWriter(srcDir, 4, core.Version{Start: 2, End: 2}, 0, codec)
	require.NoError(t, err)
	rs, err := w.Finish()
	require.NoError(t, err)

	// Target directory does not exist: the first link fails, nothing is
	// reported as linked.
	linked, err := rs.MakeSnapshot(filepath.Join(t.TempDir(), "missing", "deeper"))
	require.Error(t, err)
	assert.Empty(t, linked)
}
