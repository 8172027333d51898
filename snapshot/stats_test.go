package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsObserveCreate(t *testing.T) {
	s, err := newStats()
	require.NoError(t, err)

	s.observeCreate(10*time.Millisecond, nil)
	s.observeCreate(20*time.Millisecond, nil)
	s.observeCreate(0, errors.New("boom"))
	s.observeRelease()

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.Created)
	assert.Equal(t, uint64(1), snap.Failed)
	assert.Equal(t, uint64(1), snap.Released)
	assert.InDelta(t, 0.015, snap.LatencyP50, 0.006)
	assert.GreaterOrEqual(t, snap.LatencyP99, snap.LatencyP50)
}

func TestStatsEmptyQuantiles(t *testing.T) {
	s, err := newStats()
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Zero(t, snap.LatencyP50)
	assert.Zero(t, snap.LatencyP99)
}
