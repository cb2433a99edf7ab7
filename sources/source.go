package sources

import (
	"context"
	"fmt"
	"sync"

	"github.com/tarungka/sift/internal/event"
)

type SourceConfig struct {
	Name           string            `koanf:"name" json:"name"`
	ConnectionType string            `koanf:"type" json:"type"`
	Config         map[string]string `koanf:"config" json:"config"`
	Key            string            `koanf:"key" json:"key"`
}

// DataSource is anything a pipeline can read raw event payloads from.
type DataSource interface {

	// Parse and configure the Source
	Init(args SourceConfig) error

	// Connect to the Source
	Connect(ctx context.Context) error

	// Read creates the channel downstream stages consume from and owns it,
	// the channel is closed when the source is drained or ctx is done
	Read(ctx context.Context, wg *sync.WaitGroup) (<-chan []byte, error)

	// Get the key
	Key() (string, error)

	// Name of the Source
	Name() string

	// Info about the Source
	Info() string

	// Origin is stamped onto every event read from this source
	Origin() *event.OriginURI

	// Disconnect the application from the source
	Disconnect() error
}

// Create builds a source for the given connection type.
func Create(sourceType string) (DataSource, error) {
	switch sourceType {
	case "file":
		return &FileSource{}, nil
	case "kafka":
		return &KafkaSource{}, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", sourceType)
	}
}
