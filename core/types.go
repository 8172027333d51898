package core

import "fmt"

// TabletID identifies a tablet, the unit of versioning and snapshotting.
type TabletID int64

// SchemaHash disambiguates coexisting schema generations of the same tablet.
type SchemaHash int32

// VersionHash distinguishes rowsets that would otherwise collide on the
// same version range.
type VersionHash uint64

// Version is a closed range [Start, End] in a tablet's append/compaction
// history. A rowset produced by a single ingestion covers exactly one
// version (Start == End); compaction produces wider ranges.
type Version struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Singleton reports whether the version covers exactly one point in history.
func (v Version) Singleton() bool { return v.Start == v.End }

// Contains reports whether the range includes version point p.
func (v Version) Contains(p int64) bool { return v.Start <= p && p <= v.End }

func (v Version) String() string { return fmt.Sprintf("[%d-%d]", v.Start, v.End) }

// SnapshotRequest is the caller input for MakeSnapshot.
//
// When MissingVersions is non-empty the request is served in incremental
// mode: only the listed single-version deltas are materialized. Otherwise a
// full snapshot is taken, pinned to Version if set, else to the tablet's
// current maximum end version.
type SnapshotRequest struct {
	TabletID    TabletID
	SchemaHash  SchemaHash
	Version     *int64
	VersionHash VersionHash

	MissingVersions []int64

	// AllowIncrementalClone is an output flag: the snapshot manager sets it
	// after serving an incremental request, signalling to the caller that
	// the produced snapshot can be layered on top of a prior one.
	AllowIncrementalClone bool
}

// Incremental reports whether the request asks for an incremental snapshot.
func (r *SnapshotRequest) Incremental() bool { return len(r.MissingVersions) > 0 }

// KeysType describes how a tablet treats duplicate keys.
type KeysType string

const (
	AggKeys    KeysType = "AGG_KEYS"
	UniqueKeys KeysType = "UNIQUE_KEYS"
	DupKeys    KeysType = "DUP_KEYS"
)

// CompressionType identifies the block compression algorithm used for
// rowset segment data. It is persisted in the tablet header.
type CompressionType byte

const (
	CompressionNone   CompressionType = 0
	CompressionSnappy CompressionType = 1
	CompressionLZ4    CompressionType = 2
	CompressionZSTD   CompressionType = 3
)

// Compressor is the interface for rowset block codecs.
type Compressor interface {
	// Compress compresses data into a freshly allocated slice.
	Compress(data []byte) ([]byte, error)
	// Decompress reverses Compress.
	Decompress(data []byte) ([]byte, error)
	// Type returns the identifier persisted alongside compressed blocks.
	Type() CompressionType
}

// String returns the string representation of the CompressionType.
func (ct CompressionType) String() string {
	switch ct {
	case CompressionNone:
		return "none"
	case CompressionSnappy:
		return "snappy"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompressionType parses a config-file compression name.
func ParseCompressionType(s string) (CompressionType, error) {
	switch s {
	case "", "none":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("%w: unknown compression type %q", ErrInvalidArgument, s)
	}
}
