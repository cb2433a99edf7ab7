package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarungka/sift/internal/event"
	"github.com/tarungka/sift/internal/script"
)

func selectOp(t *testing.T, query string) *SimpleSelect {
	t.Helper()
	stmt, err := script.ParseQuery(query, nil)
	require.NoError(t, err)
	op, err := WithStatement("test-select", stmt, 1024)
	require.NoError(t, err)
	return op
}

func jsonEvent(t *testing.T, payload string) *event.Event {
	t.Helper()
	var data any
	require.NoError(t, json.Unmarshal([]byte(payload), &data))
	ev, err := event.New(data, &event.OriginURI{Scheme: "sift-test", Host: "localhost"})
	require.NoError(t, err)
	return ev
}

func TestSimpleSelect_WherePasses(t *testing.T) {
	op := selectOp(t, "select event from in where event.a > 0 into out")
	ev := jsonEvent(t, `{"a": 1}`)

	result, err := op.OnEvent(0, "in", make(State), ev)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Same(t, ev, result.Events[0], "the forwarded event is the input event, untouched")
	assert.Empty(t, result.Insights)
}

func TestSimpleSelect_WhereDrops(t *testing.T) {
	op := selectOp(t, "select event from in where event.a > 5 into out")
	ev := jsonEvent(t, `{"a": 1}`)

	result, err := op.OnEvent(0, "in", make(State), ev)
	require.NoError(t, err, "a false guard is a clean drop, not an error")
	assert.Empty(t, result.Events)
	assert.Empty(t, result.Insights)
}

func TestSimpleSelect_NonBoolWhereGuard(t *testing.T) {
	op := selectOp(t, "select event from in where event.a into out")
	ev := jsonEvent(t, `{"a": 1}`)

	result, err := op.OnEvent(0, "in", make(State), ev)
	var guardErr *script.GuardNotBoolError
	require.ErrorAs(t, err, &guardErr)
	assert.Equal(t, "test-select", guardErr.StmtID)
	assert.Equal(t, "where", guardErr.Clause)
	assert.Equal(t, float64(1), guardErr.Value)
	assert.Empty(t, result.Events, "a failing call forwards nothing")
}

func TestSimpleSelect_HavingOnly(t *testing.T) {
	op := selectOp(t, "select event from in having event.a > 0 into out")
	ev := jsonEvent(t, `{"a": 2}`)

	// where is absent and treated as a pass, having evaluates true
	result, err := op.OnEvent(0, "in", make(State), ev)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)
	assert.Same(t, ev, result.Events[0])
}

func TestSimpleSelect_HavingDrops(t *testing.T) {
	op := selectOp(t, "select event from in where event.a > 0 having event.a > 10 into out")
	ev := jsonEvent(t, `{"a": 2}`)

	result, err := op.OnEvent(0, "in", make(State), ev)
	require.NoError(t, err)
	assert.Empty(t, result.Events)
}

func TestSimpleSelect_NonBoolHavingGuard(t *testing.T) {
	op := selectOp(t, `select event from in where event.a > 0 having event.b into out`)
	ev := jsonEvent(t, `{"a": 1, "b": "nope"}`)

	_, err := op.OnEvent(0, "in", make(State), ev)
	var guardErr *script.GuardNotBoolError
	require.ErrorAs(t, err, &guardErr)
	assert.Equal(t, "having", guardErr.Clause)
	assert.Equal(t, "nope", guardErr.Value)
}

func TestSimpleSelect_NoGuardsIsPassThrough(t *testing.T) {
	op := selectOp(t, "select event from in into out")

	for _, payload := range []string{`{"a": 1}`, `{"b": [1, 2, 3]}`, `"scalar"`, `null`} {
		ev := jsonEvent(t, payload)
		result, err := op.OnEvent(0, "in", make(State), ev)
		require.NoError(t, err, payload)
		require.Len(t, result.Events, 1, payload)
		assert.Same(t, ev, result.Events[0], payload)
	}
}

func TestSimpleSelect_ForwardsIdenticalPayload(t *testing.T) {
	op := selectOp(t, "select event from in where event.a > 0 into out")
	ev := jsonEvent(t, `{"a": 1, "nested": {"deep": [1, 2]}}`)
	before, _ := ev.Data.Parts()

	result, err := op.OnEvent(0, "in", make(State), ev)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)

	after, _ := result.Events[0].Data.Parts()
	assert.Equal(t, before, after)
	assert.Equal(t, ev.ID, result.Events[0].ID)
	assert.Equal(t, ev.IngestNs, result.Events[0].IngestNs)
}

func TestSimpleSelect_GuardReadsMetadata(t *testing.T) {
	op := selectOp(t, `select event from in where $source == "kafka" into out`)
	ev := jsonEvent(t, `{"a": 1}`)
	_, meta := ev.Data.Parts()
	meta["source"] = "kafka"

	result, err := op.OnEvent(0, "in", make(State), ev)
	require.NoError(t, err)
	assert.Len(t, result.Events, 1)
}

func TestSimpleSelect_GuardReadsState(t *testing.T) {
	op := selectOp(t, "select event from in where state.enabled into out")
	ev := jsonEvent(t, `{"a": 1}`)

	state := State{"enabled": true}
	result, err := op.OnEvent(0, "in", state, ev)
	require.NoError(t, err)
	assert.Len(t, result.Events, 1)

	state["enabled"] = false
	result, err = op.OnEvent(0, "in", state, ev)
	require.NoError(t, err)
	assert.Empty(t, result.Events)
}

func TestSimpleSelect_RecursionLimit(t *testing.T) {
	stmt, err := script.ParseQuery("select event from in where 1 + 1 + 1 + 1 + 1 + 1 == 6 into out", nil)
	require.NoError(t, err)
	op, err := WithStatement("tight", stmt, 2)
	require.NoError(t, err)

	ev := jsonEvent(t, `{"a": 1}`)
	result, err := op.OnEvent(0, "in", make(State), ev)
	require.ErrorIs(t, err, script.ErrRecursionLimit)
	assert.Empty(t, result.Events)
}

func TestWithStatement_RejectsNonSelect(t *testing.T) {
	_, err := WithStatement("bad", &script.Stmt{}, 1024)
	assert.ErrorIs(t, err, script.ErrNotSelect)
}
