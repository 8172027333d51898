package tablet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/INLOpen/nexusolap/core"
)

// Segment data file framing: per block, a 4-byte big-endian length of the
// compressed payload, a 4-byte CRC32 (IEEE) of the compressed payload, then
// the payload. The index file records the 8-byte offset of each block.
const blockHeaderSize = 8

// RowsetWriter produces a single-segment rowset in a tablet's schema-hash
// directory. It is used by ingestion and by the snapshot manager when it has
// to synthesize an empty single-version delta.
type RowsetWriter struct {
	dir         string
	rowsetID    uint64
	version     core.Version
	versionHash core.VersionHash
	codec       core.Compressor

	dataFile  *os.File
	indexFile *os.File
	offset    int64
	numRows   int64
	finished  bool
}

// NewRowsetWriter opens the segment files for a new rowset. The caller picks
// a rowset id unique within the tablet.
func NewRowsetWriter(dir string, rowsetID uint64, version core.Version, versionHash core.VersionHash, codec core.Compressor) (*RowsetWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create rowset directory %s: %w", dir, err)
	}
	dataFile, err := os.Create(filepath.Join(dir, SegmentDataFileName(rowsetID, 0)))
	if err != nil {
		return nil, fmt.Errorf("failed to create rowset data file: %w", err)
	}
	indexFile, err := os.Create(filepath.Join(dir, SegmentIndexFileName(rowsetID, 0)))
	if err != nil {
		dataFile.Close()
		os.Remove(dataFile.Name())
		return nil, fmt.Errorf("failed to create rowset index file: %w", err)
	}
	return &RowsetWriter{
		dir:         dir,
		rowsetID:    rowsetID,
		version:     version,
		versionHash: versionHash,
		codec:       codec,
		dataFile:    dataFile,
		indexFile:   indexFile,
	}, nil
}

// AppendBlock compresses and writes one row block.
func (w *RowsetWriter) AppendBlock(rows [][]byte) error {
	if w.finished {
		return fmt.Errorf("rowset writer for rowset %d already finished", w.rowsetID)
	}
	var raw bytes.Buffer
	for _, row := range rows {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(row)))
		raw.Write(lenBuf[:])
		raw.Write(row)
	}

	compressed, err := w.codec.Compress(raw.Bytes())
	if err != nil {
		return fmt.Errorf("failed to compress rowset block: %w", err)
	}

	var header [blockHeaderSize]byte
	binary.BigEndian.PutUint32(header[0:4], uint32(len(compressed)))
	binary.BigEndian.PutUint32(header[4:8], crc32.ChecksumIEEE(compressed))
	if _, err := w.dataFile.Write(header[:]); err != nil {
		return fmt.Errorf("failed to write block header: %w", err)
	}
	if _, err := w.dataFile.Write(compressed); err != nil {
		return fmt.Errorf("failed to write block payload: %w", err)
	}

	var offsetBuf [8]byte
	binary.BigEndian.PutUint64(offsetBuf[:], uint64(w.offset))
	if _, err := w.indexFile.Write(offsetBuf[:]); err != nil {
		return fmt.Errorf("failed to write block index entry: %w", err)
	}

	w.offset += int64(blockHeaderSize + len(compressed))
	w.numRows += int64(len(rows))
	return nil
}

// Finish closes the segment files and returns the completed rowset. A
// writer that never received a block produces a valid empty rowset.
func (w *RowsetWriter) Finish() (*Rowset, error) {
	if w.finished {
		return nil, fmt.Errorf("rowset writer for rowset %d already finished", w.rowsetID)
	}
	w.finished = true
	if err := w.dataFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close rowset data file: %w", err)
	}
	if err := w.indexFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close rowset index file: %w", err)
	}

	meta := &RowsetMeta{
		RowsetID:     w.rowsetID,
		Version:      w.version,
		VersionHash:  w.versionHash,
		NumRows:      w.numRows,
		DataSize:     w.offset,
		SegmentCount: 1,
		Empty:        w.numRows == 0,
		CreationTime: time.Now().Unix(),
	}
	return NewRowset(meta, w.dir), nil
}

// ScanSegment reads back every block of a segment data file, verifying the
// CRC of each, and returns the decompressed rows.
func ScanSegment(path string, codec core.Compressor) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read segment %s: %w", path, err)
	}
	var rows [][]byte
	for off := 0; off < len(data); {
		if off+blockHeaderSize > len(data) {
			return nil, fmt.Errorf("segment %s truncated at offset %d", path, off)
		}
		length := int(binary.BigEndian.Uint32(data[off : off+4]))
		sum := binary.BigEndian.Uint32(data[off+4 : off+8])
		off += blockHeaderSize
		if off+length > len(data) {
			return nil, fmt.Errorf("segment %s truncated block at offset %d", path, off)
		}
		payload := data[off : off+length]
		if crc32.ChecksumIEEE(payload) != sum {
			return nil, fmt.Errorf("segment %s checksum mismatch at offset %d", path, off)
		}
		raw, err := codec.Decompress(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress block in %s: %w", path, err)
		}
		for p := 0; p < len(raw); {
			if p+4 > len(raw) {
				return nil, fmt.Errorf("segment %s has a truncated row header", path)
			}
			rowLen := int(binary.BigEndian.Uint32(raw[p : p+4]))
			p += 4
			if p+rowLen > len(raw) {
				return nil, fmt.Errorf("segment %s has a truncated row", path)
			}
			rows = append(rows, raw[p:p+rowLen])
			p += rowLen
		}
		off += length
	}
	return rows, nil
}
