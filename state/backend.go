// Package state persists operator state across checkpoints.
package state

import (
	"errors"

	"github.com/tarungka/sift/stream"
)

// ErrNoState is returned by LoadLatest when an operator has never been
// checkpointed.
var ErrNoState = errors.New("no saved state")

// Backend stores and retrieves operator state keyed by operator and
// checkpoint.
type Backend interface {
	// Save saves the state of an operator at a checkpoint.
	Save(operatorID string, checkpointID int64, state stream.State) error
	// Load loads the state of an operator at a checkpoint.
	Load(operatorID string, checkpointID int64) (stream.State, error)
	// LoadLatest loads the state of an operator at its most recent
	// checkpoint along with that checkpoint's id. Returns ErrNoState when
	// nothing has ever been saved for the operator.
	LoadLatest(operatorID string) (stream.State, int64, error)
	// Close releases any resources held by the backend.
	Close() error
}
