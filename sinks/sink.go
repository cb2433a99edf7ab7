package sinks

import (
	"context"
	"fmt"
	"sync"
)

type SinkConfig struct {
	Name           string            `koanf:"name" json:"name"`
	ConnectionType string            `koanf:"type" json:"type"`
	Config         map[string]string `koanf:"config" json:"config"`
	Key            string            `koanf:"key" json:"key"`
}

// DataSink is anything a pipeline can write forwarded event payloads to.
type DataSink interface {

	// Parse and configure the Sink
	Init(args SinkConfig) error

	// Connect to the Sink
	Connect(ctx context.Context) error

	// Write drains the upstream channel into the sink, returning when the
	// channel closes or ctx is done
	Write(ctx context.Context, wg *sync.WaitGroup, dataChan <-chan []byte) error

	// Get the key
	Key() (string, error)

	// Name of the Sink
	Name() string

	// Info about the Sink
	Info() string

	// Disconnect the application from the sink
	Disconnect() error
}

// Create builds a sink for the given connection type.
func Create(sinkType string) (DataSink, error) {
	switch sinkType {
	case "file":
		return &FileSink{}, nil
	case "kafka":
		return &KafkaSink{}, nil
	default:
		return nil, fmt.Errorf("unknown sink type: %s", sinkType)
	}
}
