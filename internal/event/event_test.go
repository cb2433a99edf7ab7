package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	origin := &OriginURI{Scheme: "sift-file", Host: "localhost", Path: []string{"events.ndjson"}}
	before := uint64(time.Now().UnixNano())

	ev, err := New(map[string]any{"a": float64(1)}, origin)
	require.NoError(t, err)

	assert.NotZero(t, ev.ID)
	assert.GreaterOrEqual(t, ev.IngestNs, before)
	assert.Same(t, origin, ev.Origin)

	data, meta := ev.Data.Parts()
	assert.Equal(t, map[string]any{"a": float64(1)}, data)
	require.NotNil(t, meta, "metadata starts empty but writable")
	meta["k"] = "v"
	_, again := ev.Data.Parts()
	assert.Equal(t, "v", again["k"])
}

func TestNew_DistinctIDs(t *testing.T) {
	a, err := New(nil, nil)
	require.NoError(t, err)
	b, err := New(nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestOriginURI_String(t *testing.T) {
	assert.Equal(t, "", (*OriginURI)(nil).String())
	assert.Equal(t, "sift-file://localhost",
		(&OriginURI{Scheme: "sift-file", Host: "localhost"}).String())
	assert.Equal(t, "sift-kafka://broker:9092/events",
		(&OriginURI{Scheme: "sift-kafka", Host: "broker", Port: 9092, Path: []string{"events"}}).String())
}
