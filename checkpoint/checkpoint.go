// Package checkpoint snapshots and restores operator state through a state
// backend.
package checkpoint

import (
	"errors"
	"time"

	"github.com/tarungka/sift/state"
	"github.com/tarungka/sift/stream"
)

// Checkpoint identifies one consistent snapshot of a set of operators.
type Checkpoint struct {
	ID        int64
	Timestamp time.Time
}

// Manager creates and restores checkpoints.
type Manager struct {
	backend state.Backend
}

func NewManager(backend state.Backend) *Manager {
	return &Manager{
		backend: backend,
	}
}

// Create snapshots every operator and saves the state to the backend.
func (m *Manager) Create(operators []stream.Operator) (*Checkpoint, error) {
	now := time.Now()
	checkpoint := &Checkpoint{
		ID:        now.UnixNano(),
		Timestamp: now,
	}

	for _, operator := range operators {
		snapshot := operator.Snapshot(checkpoint.ID)
		if err := m.backend.Save(operator.ID(), checkpoint.ID, snapshot); err != nil {
			return nil, err
		}
	}

	return checkpoint, nil
}

// Latest returns the most recently checkpointed state for an operator, or
// nil when the operator has never been checkpointed.
func (m *Manager) Latest(operatorID string) (stream.State, error) {
	snapshot, _, err := m.backend.LoadLatest(operatorID)
	if errors.Is(err, state.ErrNoState) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Restore loads every operator's state for the given checkpoint and hands
// it back to the operator.
func (m *Manager) Restore(checkpoint *Checkpoint, operators []stream.Operator) error {
	for _, operator := range operators {
		snapshot, err := m.backend.Load(operator.ID(), checkpoint.ID)
		if err != nil {
			return err
		}
		operator.Restore(snapshot)
	}
	return nil
}
