package sinks

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// FileSink appends newline delimited payloads to a file, or to stdout when
// the path is "-".
type FileSink struct {
	pipelineKey            string
	pipelineName           string
	pipelineConnectionType string

	filePath string
	file     *os.File
	writer   *bufio.Writer
	mu       sync.Mutex
}

func (f *FileSink) Init(args SinkConfig) error {
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

func (f *FileSink) Connect(ctx context.Context) error {
	if f.filePath == "-" {
		f.file = os.Stdout
		f.writer = bufio.NewWriter(f.file)
		return nil
	}

	log.Trace().Str("file_path", f.filePath).Msg("Preparing to open file for writing")

	dir := filepath.Dir(f.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Err(err).Str("directory", dir).Msg("Failed to create parent directories")
		return fmt.Errorf("failed to create parent directories: %w", err)
	}

	file, err := os.OpenFile(f.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Err(err).Msg("Failed to open sink file")
		return fmt.Errorf("failed to open sink file: %w", err)
	}
	f.file = file
	f.writer = bufio.NewWriter(file)
	return nil
}

func (f *FileSink) Write(ctx context.Context, wg *sync.WaitGroup, dataChan <-chan []byte) error {
	if f.writer == nil {
		return fmt.Errorf("sink file is not open")
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case payload, ok := <-dataChan:
				if !ok {
					log.Debug().Msg("The upstream channel (dataChan) closed")
					f.flush()
					return
				}
				f.mu.Lock()
				if _, err := f.writer.Write(payload); err != nil {
					log.Err(err).Msg("Error writing to the file sink")
				}
				if err := f.writer.WriteByte('\n'); err != nil {
					log.Err(err).Msg("Error writing to the file sink")
				}
				f.mu.Unlock()
			case <-ctx.Done():
				f.flush()
				return
			}
		}
	}()
	return nil
}

func (f *FileSink) flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writer.Flush(); err != nil {
		log.Err(err).Msg("Error flushing the file sink")
	}
}

func (f *FileSink) Key() (string, error) {
	return f.pipelineKey, nil
}

func (f *FileSink) Name() string {
	return f.pipelineName
}

func (f *FileSink) Info() string {
	return fmt.Sprintf("%s|%s|%s", f.pipelineKey, f.pipelineConnectionType, f.filePath)
}

func (f *FileSink) Disconnect() error {
	f.flush()
	if f.file == nil || f.file == os.Stdout {
		return nil
	}
	return f.file.Close()
}
