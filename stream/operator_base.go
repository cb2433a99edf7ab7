package stream

import "github.com/tarungka/sift/internal/event"

// BaseOperator carries the pieces every operator has: an id and its state.
// Specific operators embed it and override what they need.
type BaseOperator struct {
	id    string
	state State
}

func NewBaseOperator(id string) *BaseOperator {
	return &BaseOperator{
		id:    id,
		state: make(State),
	}
}

// ID returns the unique identifier of the operator.
func (o *BaseOperator) ID() string {
	return o.id
}

// OnEvent forwards the event untouched. Specific operators override this.
func (o *BaseOperator) OnEvent(uid uint64, port string, state State, ev *event.Event) (EventAndInsights, error) {
	return From(ev), nil
}

// Snapshot snapshots the state of the operator.
func (o *BaseOperator) Snapshot(checkpointID int64) State {
	return o.state
}

// Restore restores the state of the operator.
func (o *BaseOperator) Restore(state State) {
	o.state = state
}

// HandleBarrier handles a barrier event.
func (o *BaseOperator) HandleBarrier(checkpointID int64) {
}
