// Package event holds the event model that flows through a pipeline: an
// immutable payload, mutable metadata, an ingest timestamp and an origin.
package event

import (
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
)

// OriginURI locates where an event entered the system, e.g.
// sift-file://localhost/events.ndjson or sift-kafka://broker:9092/topic.
type OriginURI struct {
	Scheme string
	Host   string
	Port   uint16
	Path   []string
}

func (o *OriginURI) String() string {
	if o == nil {
		return ""
	}
	host := o.Host
	if o.Port != 0 {
		host = fmt.Sprintf("%s:%d", o.Host, o.Port)
	}
	if len(o.Path) == 0 {
		return fmt.Sprintf("%s://%s", o.Scheme, host)
	}
	return fmt.Sprintf("%s://%s/%s", o.Scheme, host, strings.Join(o.Path, "/"))
}

// ValueAndMeta couples an event payload with the metadata the pipeline has
// attached to it. The payload is treated as immutable once set, metadata may
// be written to by operators.
type ValueAndMeta struct {
	value any
	meta  map[string]any
}

func NewValueAndMeta(value any, meta map[string]any) ValueAndMeta {
	if meta == nil {
		meta = make(map[string]any)
	}
	return ValueAndMeta{value: value, meta: meta}
}

// Parts returns the payload and the metadata of the event.
func (vm *ValueAndMeta) Parts() (any, map[string]any) {
	return vm.value, vm.meta
}

func (vm *ValueAndMeta) Value() any {
	return vm.value
}

func (vm *ValueAndMeta) Meta() map[string]any {
	return vm.meta
}

// Event is a single record travelling through a pipeline.
type Event struct {
	ID   uuid.UUID // a UUID v7 to identify the event
	Data ValueAndMeta
	// IngestNs is the wall clock time the event entered the system, in
	// nanoseconds since the unix epoch
	IngestNs uint64
	Origin   *OriginURI
	// Transactional events require downstream acknowledgement
	Transactional bool
}

// New creates an event from a decoded payload. The ingest timestamp is taken
// at call time.
func New(data any, origin *OriginURI) (*Event, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("error creating event id: %w", err)
	}
	return &Event{
		ID:       id,
		Data:     NewValueAndMeta(data, nil),
		IngestNs: uint64(time.Now().UnixNano()),
		Origin:   origin,
	}, nil
}
