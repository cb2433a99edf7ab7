package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/sift/checkpoint"
	"github.com/tarungka/sift/internal/event"
	"github.com/tarungka/sift/internal/script"
	"github.com/tarungka/sift/sinks"
	"github.com/tarungka/sift/sources"
	"github.com/tarungka/sift/state"
	"github.com/tarungka/sift/stream"
)

func TestPartition(t *testing.T) {
	payload := []byte(`{"a": 1}`)

	idx := partition(payload, 4)
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, 4)
	// same payload, same worker
	assert.Equal(t, idx, partition(payload, 4))

	assert.Equal(t, 0, partition(payload, 1))
	assert.Equal(t, 0, partition(payload, 0))
}

func TestParseConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	cfg := `{
		"recursion_limit": 64,
		"pipelines": [{
			"name": "p1",
			"query": "select event from in where event.a > 0 into out",
			"workers": 2,
			"source": {"name": "s", "type": "file", "config": {"file_path": "-"}},
			"sink": {"name": "k", "type": "file", "config": {"file_path": "-"}}
		}]
	}`
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))

	ko := koanf.New(".")
	require.NoError(t, ko.Load(file.Provider(path), kjson.Parser()))

	configs, err := ParseConfig(ko)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "p1", configs[0].Name)
	assert.Equal(t, 2, configs[0].Workers)
	assert.Equal(t, "file", configs[0].Source.ConnectionType)
	assert.Equal(t, 64, RecursionLimit(ko))
}

func TestParseConfig_Errors(t *testing.T) {
	ko := koanf.New(".")
	_, err := ParseConfig(ko)
	assert.Error(t, err, "an empty config has no pipelines")
	assert.Equal(t, DefaultRecursionLimit, RecursionLimit(ko))
}

func filePipeline(t *testing.T, query string, events []string, workers int) (*DataPipeline, string) {
	t.Helper()
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.ndjson")
	outPath := filepath.Join(dir, "out.ndjson")
	require.NoError(t, os.WriteFile(inPath, []byte(strings.Join(events, "\n")+"\n"), 0644))

	stmt, err := script.ParseQuery(query, nil)
	require.NoError(t, err)

	cfg := PipelineConfig{
		Name:    "test",
		Query:   query,
		Workers: workers,
		Source: sources.SourceConfig{
			Name: "in", ConnectionType: "file",
			Config: map[string]string{"file_path": inPath},
		},
		Sink: sinks.SinkConfig{
			Name: "out", ConnectionType: "file",
			Config: map[string]string{"file_path": outPath},
		},
	}
	dp, err := New(cfg, DefaultRecursionLimit, func(name string) (stream.Operator, error) {
		return stream.WithStatement(name, stmt, DefaultRecursionLimit)
	})
	require.NoError(t, err)
	return dp, outPath
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	buf, err := os.ReadFile(path)
	require.NoError(t, err)
	var lines []string
	for _, line := range strings.Split(string(buf), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestDataPipeline_EndToEnd(t *testing.T) {
	dp, outPath := filePipeline(t,
		"select event from in where event.a > 0 into out",
		[]string{`{"a": 1}`, `{"a": 0}`, `{"a": 7}`, `{"a": -2}`},
		1)

	require.NoError(t, dp.Run(context.Background()))

	lines := readLines(t, outPath)
	assert.Equal(t, []string{`{"a":1}`, `{"a":7}`}, lines)

	stats := dp.Stats()
	assert.Equal(t, uint64(4), stats.In)
	assert.Equal(t, uint64(2), stats.Out)
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, uint64(0), stats.Errors)
}

func TestDataPipeline_ParallelWorkers(t *testing.T) {
	events := []string{`{"a": 1}`, `{"a": 2}`, `{"a": 3}`, `{"a": 0}`, `{"a": 4}`, `{"a": 0}`}
	dp, outPath := filePipeline(t,
		"select event from in where event.a > 0 into out", events, 4)

	require.NoError(t, dp.Run(context.Background()))

	// order across workers is not defined, the set of outputs is
	lines := readLines(t, outPath)
	assert.ElementsMatch(t, []string{`{"a":1}`, `{"a":2}`, `{"a":3}`, `{"a":4}`}, lines)

	stats := dp.Stats()
	assert.Equal(t, uint64(6), stats.In)
	assert.Equal(t, uint64(4), stats.Out)
	assert.Equal(t, uint64(2), stats.Dropped)
}

func TestDataPipeline_GuardErrorsDoNotStopThePipeline(t *testing.T) {
	dp, outPath := filePipeline(t,
		"select event from in where event.a into out",
		[]string{`{"a": 1}`, `{"a": true}`},
		1)

	require.NoError(t, dp.Run(context.Background()))

	// the non boolean guard fails per event, the boolean one passes
	lines := readLines(t, outPath)
	assert.Equal(t, []string{`{"a":true}`}, lines)

	stats := dp.Stats()
	assert.Equal(t, uint64(2), stats.In)
	assert.Equal(t, uint64(1), stats.Out)
	assert.Equal(t, uint64(1), stats.Errors)
}

// countingOperator counts every event it sees in the pipeline owned state.
type countingOperator struct {
	*stream.BaseOperator
}

func (o *countingOperator) OnEvent(uid uint64, port string, st stream.State, ev *event.Event) (stream.EventAndInsights, error) {
	n, _ := st["count"].(int)
	st["count"] = n + 1
	return stream.From(ev), nil
}

func countingPipeline(t *testing.T, events []string, mgr *checkpoint.Manager) *DataPipeline {
	t.Helper()
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.ndjson")
	outPath := filepath.Join(dir, "out.ndjson")
	require.NoError(t, os.WriteFile(inPath, []byte(strings.Join(events, "\n")+"\n"), 0644))

	cfg := PipelineConfig{
		Name:    "count",
		Query:   "select event from in into out",
		Workers: 1,
		Source: sources.SourceConfig{
			Name: "in", ConnectionType: "file",
			Config: map[string]string{"file_path": inPath},
		},
		Sink: sinks.SinkConfig{
			Name: "out", ConnectionType: "file",
			Config: map[string]string{"file_path": outPath},
		},
	}
	dp, err := New(cfg, DefaultRecursionLimit, func(name string) (stream.Operator, error) {
		return &countingOperator{BaseOperator: stream.NewBaseOperator(name)}, nil
	})
	require.NoError(t, err)
	// long interval, the tests checkpoint explicitly
	dp.SetCheckpointing(mgr, time.Hour)
	return dp
}

func TestDataPipeline_CheckpointCapturesOperatorState(t *testing.T) {
	backend := state.NewInMemoryBackend()
	mgr := checkpoint.NewManager(backend)

	dp := countingPipeline(t, []string{`{"a":1}`, `{"a":2}`, `{"a":3}`, `{"a":4}`}, mgr)
	require.NoError(t, dp.Run(context.Background()))

	ckpt, err := dp.createCheckpoint()
	require.NoError(t, err)

	// the snapshot holds what OnEvent wrote into the worker state
	saved, err := backend.Load("count-0", ckpt.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, saved["count"])
}

func TestDataPipeline_ResumesFromLastCheckpoint(t *testing.T) {
	backend := state.NewInMemoryBackend()
	mgr := checkpoint.NewManager(backend)

	first := countingPipeline(t, []string{`{"a":1}`, `{"a":2}`, `{"a":3}`, `{"a":4}`}, mgr)
	require.NoError(t, first.Run(context.Background()))
	_, err := first.createCheckpoint()
	require.NoError(t, err)

	// a fresh pipeline with the same operator ids picks the state back up
	second := countingPipeline(t, []string{`{"a":5}`, `{"a":6}`}, mgr)
	require.NoError(t, second.Run(context.Background()))

	snap := second.Operators()[0].Snapshot(0)
	assert.Equal(t, 6, snap["count"])
}

func TestDataPipeline_BadJSONCountsAsError(t *testing.T) {
	dp, _ := filePipeline(t,
		"select event from in into out",
		[]string{`{"a": 1}`, `not json at all`},
		1)

	require.NoError(t, dp.Run(context.Background()))

	stats := dp.Stats()
	assert.Equal(t, uint64(2), stats.In)
	assert.Equal(t, uint64(1), stats.Out)
	assert.Equal(t, uint64(1), stats.Errors)
}
