package stream

import "github.com/tarungka/sift/internal/event"

// Barrier is a control event that signals a checkpoint.
type Barrier struct {
	CheckpointID int64
}

// InsightKind classifies an out-of-band signal an operator can attach to
// its result, distinct from the events it forwards.
type InsightKind int

const (
	InsightAck InsightKind = iota
	InsightFail
	InsightTrigger
	InsightRestore
)

// Insight is a flow-control signal travelling upstream, e.g. an
// acknowledgement for a transactional event.
type Insight struct {
	Kind    InsightKind
	EventID string
}

// EventAndInsights is the result of handling one event: zero or more
// outgoing events plus any insights. The zero value means the event was
// dropped cleanly.
type EventAndInsights struct {
	Events   []*event.Event
	Insights []Insight
}

// From wraps a single forwarded event with no insights.
func From(ev *event.Event) EventAndInsights {
	return EventAndInsights{Events: []*event.Event{ev}}
}
