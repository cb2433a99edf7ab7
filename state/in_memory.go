package state

import (
	"fmt"
	"sync"

	"github.com/tarungka/sift/stream"
)

// InMemoryBackend keeps operator state in a map. Good for tests and for
// pipelines that do not need state to survive a restart.
type InMemoryBackend struct {
	mu    sync.RWMutex
	state map[string]map[int64]stream.State
}

func NewInMemoryBackend() *InMemoryBackend {
	return &InMemoryBackend{
		state: make(map[string]map[int64]stream.State),
	}
}

// Save saves the state of an operator.
func (b *InMemoryBackend) Save(operatorID string, checkpointID int64, state stream.State) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	checkpoints, ok := b.state[operatorID]
	if !ok {
		checkpoints = make(map[int64]stream.State)
		b.state[operatorID] = checkpoints
	}

	checkpoints[checkpointID] = copyState(state)
	return nil
}

// Load loads the state of an operator.
func (b *InMemoryBackend) Load(operatorID string, checkpointID int64) (stream.State, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	state, ok := b.state[operatorID][checkpointID]
	if !ok {
		return nil, fmt.Errorf("state not found for operator %s and checkpoint %d", operatorID, checkpointID)
	}
	return copyState(state), nil
}

// LoadLatest loads the state of an operator at its most recent checkpoint.
func (b *InMemoryBackend) LoadLatest(operatorID string) (stream.State, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	checkpoints := b.state[operatorID]
	if len(checkpoints) == 0 {
		return nil, 0, fmt.Errorf("operator %s: %w", operatorID, ErrNoState)
	}

	var latest int64
	for id := range checkpoints {
		if id > latest {
			latest = id
		}
	}
	return copyState(checkpoints[latest]), latest, nil
}

func (b *InMemoryBackend) Close() error {
	return nil
}

// Saved and loaded state is always copied, the caller keeps mutating its
// map and must not reach the stored snapshot through it.
func copyState(state stream.State) stream.State {
	out := make(stream.State, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
