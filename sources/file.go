package sources

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tarungka/sift/internal/event"
)

// FileSource reads newline delimited payloads from a file, or from stdin
// when the path is "-".
type FileSource struct {
	pipelineKey            string
	pipelineName           string
	pipelineConnectionType string

	filePath string
	file     *os.File
}

func (f *FileSource) Init(args SourceConfig) error {
	f.pipelineKey = args.Key
	f.pipelineName = args.Name
	f.pipelineConnectionType = args.ConnectionType

	if args.Config["file_path"] == "" {
		log.Error().Msg("Missing file_path in config")
		return fmt.Errorf("missing file_path")
	}

	f.filePath = args.Config["file_path"]
	return nil
}

func (f *FileSource) Connect(ctx context.Context) error {
	if f.filePath == "-" {
		f.file = os.Stdin
		return nil
	}
	log.Trace().Str("file_path", f.filePath).Msg("Opening file for reading")
	file, err := os.Open(f.filePath)
	if err != nil {
		log.Err(err).Msg("Failed to open source file")
		return fmt.Errorf("failed to open source file: %w", err)
	}
	f.file = file
	return nil
}

func (f *FileSource) Read(ctx context.Context, wg *sync.WaitGroup) (<-chan []byte, error) {
	if f.file == nil {
		return nil, fmt.Errorf("source file is not open")
	}

	out := make(chan []byte, 16)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)

		scanner := bufio.NewScanner(f.file)
		// Lines well beyond the default token size show up in the wild
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}
			payload := make([]byte, len(line))
			copy(payload, line)
			select {
			case out <- payload:
			case <-ctx.Done():
				log.Trace().Msg("Done reading from the file source")
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Err(err).Msg("Error when reading from the file source")
		}
	}()
	return out, nil
}

func (f *FileSource) Key() (string, error) {
	return f.pipelineKey, nil
}

func (f *FileSource) Name() string {
	return f.pipelineName
}

func (f *FileSource) Info() string {
	return fmt.Sprintf("%s|%s|%s", f.pipelineKey, f.pipelineConnectionType, f.filePath)
}

func (f *FileSource) Origin() *event.OriginURI {
	path := f.filePath
	if path == "-" {
		path = "stdin"
	}
	return &event.OriginURI{
		Scheme: "sift-file",
		Host:   "localhost",
		Path:   []string{path},
	}
}

func (f *FileSource) Disconnect() error {
	if f.file == nil || f.file == os.Stdin {
		return nil
	}
	return f.file.Close()
}
