package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/sift/internal/script"
	"github.com/tarungka/sift/pipeline"
	"github.com/tarungka/sift/sinks"
	"github.com/tarungka/sift/sources"
	"github.com/tarungka/sift/stream"
)

func testPipeline(t *testing.T, name string) *pipeline.DataPipeline {
	t.Helper()
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.ndjson")
	require.NoError(t, os.WriteFile(inPath, []byte("{}\n"), 0644))

	query := "select event from in where event.a > 0 into out"
	stmt, err := script.ParseQuery(query, nil)
	require.NoError(t, err)

	cfg := pipeline.PipelineConfig{
		Name:    name,
		Query:   query,
		Workers: 1,
		Source: sources.SourceConfig{
			Name: "in", ConnectionType: "file",
			Config: map[string]string{"file_path": inPath},
		},
		Sink: sinks.SinkConfig{
			Name: "out", ConnectionType: "file",
			Config: map[string]string{"file_path": filepath.Join(dir, "out.ndjson")},
		},
	}
	dp, err := pipeline.New(cfg, pipeline.DefaultRecursionLimit, func(id string) (stream.Operator, error) {
		return stream.WithStatement(id, stmt, pipeline.DefaultRecursionLimit)
	})
	require.NoError(t, err)
	return dp
}

func TestPipelinesRouter(t *testing.T) {
	manager := pipeline.NewManager()
	require.NoError(t, manager.Add(testPipeline(t, "p1")))
	require.NoError(t, manager.Add(testPipeline(t, "p2")))

	srv := httptest.NewServer(PipelinesRouter(manager))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var infos []pipelineInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	assert.Len(t, infos, 2)

	resp, err = http.Get(srv.URL + "/p1")
	require.NoError(t, err)
	defer resp.Body.Close()
	var info pipelineInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, "p1", info.Key)
	assert.False(t, info.Running)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
