package spatial

import (
	"sync"

	"github.com/cargohold/stationinv/cluster"
)

// Manager owns one Index per container -- the process-wide spatial-index
// singleton of §9, mutated by the placement planner and by service.Core's
// manual placement, retrieval and undocking completion. The retrieval and
// simulation planners work from the item registry and do not read it.
type Manager struct {
	mtx     sync.RWMutex
	indices map[string]*Index
}

func NewManager() *Manager {
	return &Manager{indices: make(map[string]*Index)}
}

// Ensure returns the index for containerID, creating it from dims if this
// is the first reference.
func (m *Manager) Ensure(containerID string, dims cluster.Dims) *Index {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	idx, ok := m.indices[containerID]
	if !ok {
		idx = NewIndex(dims)
		m.indices[containerID] = idx
	}
	return idx
}

// Get returns the index for containerID if it has been created.
func (m *Manager) Get(containerID string) (*Index, bool) {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	idx, ok := m.indices[containerID]
	return idx, ok
}

// Rebuild replaces the whole set of indices -- used when item/container
// ingestion fully replaces the stores (§6).
func (m *Manager) Rebuild(containers []*cluster.Container, items []*cluster.Item) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.indices = make(map[string]*Index, len(containers))
	for _, c := range containers {
		m.indices[c.ID] = NewIndex(c.Dims)
	}
	for _, it := range items {
		if it.IsWaste || it.Placement == nil {
			continue
		}
		if idx, ok := m.indices[it.Placement.ContainerID]; ok {
			idx.Insert(it.ID, it.Placement.Pose)
		}
	}
}

// Utilization reports occupied/container volume for every known container.
func (m *Manager) Utilization() map[string]float64 {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	out := make(map[string]float64, len(m.indices))
	for id, idx := range m.indices {
		out[id] = idx.Utilization()
	}
	return out
}
