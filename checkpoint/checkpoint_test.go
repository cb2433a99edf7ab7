package checkpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/sift/internal/event"
	"github.com/tarungka/sift/state"
	"github.com/tarungka/sift/stream"
)

// countingOperator counts events so there is something to snapshot.
type countingOperator struct {
	*stream.BaseOperator
	count int
}

func newCountingOperator(id string) *countingOperator {
	return &countingOperator{BaseOperator: stream.NewBaseOperator(id)}
}

func (o *countingOperator) OnEvent(uid uint64, port string, st stream.State, ev *event.Event) (stream.EventAndInsights, error) {
	o.count++
	return stream.From(ev), nil
}

func (o *countingOperator) Snapshot(checkpointID int64) stream.State {
	return stream.State{"count": o.count}
}

func (o *countingOperator) Restore(st stream.State) {
	if c, ok := st["count"].(int); ok {
		o.count = c
	}
}

func TestManager_CreateAndRestore(t *testing.T) {
	backend := state.NewInMemoryBackend()
	m := NewManager(backend)

	a := newCountingOperator("op-a")
	b := newCountingOperator("op-b")
	a.count = 5
	b.count = 9
	operators := []stream.Operator{a, b}

	ckpt, err := m.Create(operators)
	require.NoError(t, err)
	assert.NotZero(t, ckpt.ID)

	a.count = 0
	b.count = 0
	require.NoError(t, m.Restore(ckpt, operators))
	assert.Equal(t, 5, a.count)
	assert.Equal(t, 9, b.count)
}

func TestManager_Latest(t *testing.T) {
	m := NewManager(state.NewInMemoryBackend())
	op := newCountingOperator("op-a")

	// never checkpointed is not an error, there is just nothing to restore
	st, err := m.Latest("op-a")
	require.NoError(t, err)
	assert.Nil(t, st)

	op.count = 3
	_, err = m.Create([]stream.Operator{op})
	require.NoError(t, err)
	op.count = 8
	_, err = m.Create([]stream.Operator{op})
	require.NoError(t, err)

	st, err = m.Latest("op-a")
	require.NoError(t, err)
	assert.Equal(t, 8, st["count"])
}

func TestManager_RestoreUnknownCheckpoint(t *testing.T) {
	m := NewManager(state.NewInMemoryBackend())
	op := newCountingOperator("op-a")

	err := m.Restore(&Checkpoint{ID: 12345}, []stream.Operator{op})
	assert.Error(t, err)
}
