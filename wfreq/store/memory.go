package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory RunStore
type MemoryStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]RunRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[uuid.UUID]RunRecord),
	}
}

func (m *MemoryStore) Save(run *RunRecord) error {
	if run.ID == uuid.Nil {
		return fmt.Errorf("cannot save run without id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *run
	stored.Ranked = slices.Clone(run.Ranked)
	m.runs[run.ID] = stored
	return nil
}

func (m *MemoryStore) Load(id uuid.UUID) (*RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, exists := m.runs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", common.ErrRunNotFound, id)
	}
	run.Ranked = slices.Clone(run.Ranked)
	return &run, nil
}

func (m *MemoryStore) List() ([]RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]RunRecord, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	sortRuns(runs)
	return runs, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
