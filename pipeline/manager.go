package pipeline

import (
	"fmt"
	"sync"
)

// Manager tracks the pipelines a process is running, mostly so the admin
// server has something to report on.
type Manager struct {
	mu        sync.RWMutex
	pipelines map[string]*DataPipeline
}

func NewManager() *Manager {
	return &Manager{
		pipelines: make(map[string]*DataPipeline),
	}
}

func (m *Manager) Add(dp *DataPipeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.pipelines[dp.Key()]; exists {
		return fmt.Errorf("pipeline %q already exists", dp.Key())
	}
	m.pipelines[dp.Key()] = dp
	return nil
}

func (m *Manager) Get(key string) (*DataPipeline, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dp, ok := m.pipelines[key]
	return dp, ok
}

func (m *Manager) All() []*DataPipeline {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*DataPipeline, 0, len(m.pipelines))
	for _, dp := range m.pipelines {
		all = append(all, dp)
	}
	return all
}
