package tablet

import (
	"fmt"
	"sync"

	"github.com/INLOpen/nexusolap/core"
)

type tabletKey struct {
	id   core.TabletID
	hash core.SchemaHash
}

// Manager is the registry of live tablets, keyed by (tablet id, schema hash).
type Manager struct {
	mu      sync.RWMutex
	tablets map[tabletKey]*Tablet
}

// NewManager creates an empty tablet registry.
func NewManager() *Manager {
	return &Manager{tablets: make(map[tabletKey]*Tablet)}
}

// Get resolves a tablet or returns core.ErrTabletNotFound.
func (m *Manager) Get(id core.TabletID, hash core.SchemaHash) (*Tablet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tablets[tabletKey{id: id, hash: hash}]
	if !ok {
		return nil, fmt.Errorf("%w: tablet=%d schema_hash=%d", core.ErrTabletNotFound, id, hash)
	}
	return t, nil
}

// Register adds a tablet to the registry.
func (m *Manager) Register(t *Tablet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tabletKey{id: t.ID(), hash: t.SchemaHash()}
	if _, dup := m.tablets[key]; dup {
		return fmt.Errorf("%w: tablet %s is already registered", core.ErrInvalidArgument, t.FullName())
	}
	m.tablets[key] = t
	return nil
}

// Tablets returns every registered tablet.
func (m *Manager) Tablets() []*Tablet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Tablet, 0, len(m.tablets))
	for _, t := range m.tablets {
		out = append(out, t)
	}
	return out
}
