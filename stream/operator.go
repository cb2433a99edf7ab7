// Package stream defines the operator abstraction events flow through and
// the fast-path select operator built on it.
package stream

import "github.com/tarungka/sift/internal/event"

// State is the mutable state a pipeline owns on behalf of an operator
// instance. It is handed into every OnEvent call and persists across
// events. Calls to a single instance must be serialized by the caller, the
// state is held exclusively for the duration of one call.
type State map[string]interface{}

// Operator is the base interface for all stream operators.
type Operator interface {
	// ID returns the unique identifier of the operator.
	ID() string
	// OnEvent handles exactly one event and returns the events to forward
	// plus any insights. An empty result with a nil error is a clean drop.
	OnEvent(uid uint64, port string, state State, ev *event.Event) (EventAndInsights, error)
	// Snapshot snapshots the state of the operator.
	Snapshot(checkpointID int64) State
	// Restore restores the state of the operator.
	Restore(state State)
	// HandleBarrier handles a barrier event.
	HandleBarrier(checkpointID int64)
}
