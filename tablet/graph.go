package tablet

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/INLOpen/nexusolap/core"
)

// CaptureConsistentRowsets selects the shortest set of rowsets whose version
// ranges are pairwise disjoint and union to exactly [0, target.End]. During
// compaction a wide rowset and the deltas it replaces coexist in the index;
// the shortest-path walk prefers the wide rowset and never mixes the two.
// Callers must hold the header lock.
func (t *Tablet) CaptureConsistentRowsets(target core.Version) ([]*Rowset, error) {
	picked, err := shortestCoveringPath(t.Rowsets(), target.End)
	if err != nil {
		return nil, fmt.Errorf("tablet %s: %w", t.FullName(), err)
	}
	if err := validateCoverage(picked, target.End); err != nil {
		return nil, fmt.Errorf("tablet %s: %w", t.FullName(), err)
	}
	return picked, nil
}

// shortestCoveringPath runs a BFS over version boundaries. Each rowset
// [s, e] is an edge from vertex s to vertex e+1; a covering set is a path
// from vertex 0 to vertex target+1, and BFS yields the one with the fewest
// rowsets.
func shortestCoveringPath(rowsets []*Rowset, target int64) ([]*Rowset, error) {
	edges := make(map[int64][]*Rowset, len(rowsets))
	for _, rs := range rowsets {
		if rs.EndVersion() > target {
			// A rowset reaching past the target can never be part of an
			// exact cover.
			continue
		}
		edges[rs.StartVersion()] = append(edges[rs.StartVersion()], rs)
	}

	goal := target + 1
	visited := map[int64]struct{}{0: {}}
	prev := make(map[int64]*Rowset)
	queue := []int64{0}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		if v == goal {
			break
		}
		for _, rs := range edges[v] {
			next := rs.EndVersion() + 1
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			prev[next] = rs
			queue = append(queue, next)
		}
	}

	if _, reached := visited[goal]; !reached {
		return nil, fmt.Errorf("%w: no contiguous rowset path covers [0-%d]", core.ErrInconsistentState, target)
	}

	var picked []*Rowset
	for v := goal; v != 0; {
		rs := prev[v]
		picked = append(picked, rs)
		v = rs.StartVersion()
	}
	// Reverse into ascending version order.
	for i, j := 0, len(picked)-1; i < j; i, j = i+1, j-1 {
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked, nil
}

// validateCoverage double-checks the selected set with a bitmap of version
// points: ranges must be pairwise disjoint and union to exactly [0, target].
func validateCoverage(picked []*Rowset, target int64) error {
	if len(picked) == 0 {
		return fmt.Errorf("%w: empty rowset selection cannot cover [0-%d]", core.ErrInconsistentState, target)
	}
	cover := roaring64.New()
	for _, rs := range picked {
		span := roaring64.New()
		span.AddRange(uint64(rs.StartVersion()), uint64(rs.EndVersion())+1)
		if cover.Intersects(span) {
			return fmt.Errorf("%w: rowset %s overlaps the selected covering set", core.ErrInconsistentState, rs.Version())
		}
		cover.Or(span)
	}
	if cover.GetCardinality() != uint64(target)+1 || cover.Minimum() != 0 || cover.Maximum() != uint64(target) {
		return fmt.Errorf("%w: selected rowsets do not cover [0-%d] exactly", core.ErrInconsistentState, target)
	}
	return nil
}
