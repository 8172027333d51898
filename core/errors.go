package core

import "errors"

// Sentinel errors shared across the engine. Callers discriminate with
// errors.Is; the site that fails wraps these with fmt.Errorf("...: %w", ...)
// to attach tablet id, schema hash and version context.
var (
	// ErrInvalidArgument covers illegal caller input: an unknown release
	// path, or a pinned version/version-hash that disagrees with the
	// tablet's current state.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTabletNotFound is returned when no tablet matches the requested
	// (tablet id, schema hash) pair.
	ErrTabletNotFound = errors.New("tablet not found")

	// ErrVersionNotFound is returned when a requested version cannot be
	// materialized: the tablet has no versions at all, or a missing version
	// has no exact single-version rowset (it may have been compacted away).
	ErrVersionNotFound = errors.New("version not found")

	// ErrInconsistentState is returned when no set of disjoint rowsets
	// covers [0, target] exactly.
	ErrInconsistentState = errors.New("inconsistent rowset state")
)
