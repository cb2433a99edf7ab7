package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSelectContainer(t *testing.T) {
	stmt, err := ParseQuery("select event from in where event.a > 0 into out", nil)
	require.NoError(t, err)

	c, err := NewSelectContainer(stmt)
	require.NoError(t, err)
	assert.Equal(t, stmt.Source, c.Source())
}

func TestNewSelectContainer_RejectsNonSelect(t *testing.T) {
	_, err := NewSelectContainer(nil)
	assert.ErrorIs(t, err, ErrNotSelect)

	// the zero statement kind is invalid
	_, err = NewSelectContainer(&Stmt{})
	assert.ErrorIs(t, err, ErrNotSelect)

	_, err = NewSelectContainer(&Stmt{Kind: StmtSelect})
	assert.ErrorIs(t, err, ErrNotSelect)

	// a select without its backing tables cannot be represented
	_, err = NewSelectContainer(&Stmt{Kind: StmtSelect, Select: &Select{From: "in", Into: "out"}})
	assert.ErrorIs(t, err, ErrNotSelect)
}

func TestSelectContainer_Rent(t *testing.T) {
	stmt, err := ParseQuery("select event from in where event.a > 0 having event.b > 0 into out", nil)
	require.NoError(t, err)
	c, err := NewSelectContainer(stmt)
	require.NoError(t, err)

	// the loan hands out the AST, consts and metadata together, results
	// leave the closure as owned values
	var from, into string
	var hasWhere, hasHaving bool
	err = c.Rent(func(view SelectView) error {
		require.NotNil(t, view.Stmt)
		require.NotNil(t, view.Consts)
		require.NotNil(t, view.Meta)
		from = view.Stmt.From
		into = view.Stmt.Into
		hasWhere = view.Stmt.Where != nil
		hasHaving = view.Stmt.Having != nil
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "in", from)
	assert.Equal(t, "out", into)
	assert.True(t, hasWhere)
	assert.True(t, hasHaving)
}

func TestSelectContainer_RentPassesErrorThrough(t *testing.T) {
	stmt, err := ParseQuery("select event from in into out", nil)
	require.NoError(t, err)
	c, err := NewSelectContainer(stmt)
	require.NoError(t, err)

	sentinel := errors.New("boom")
	err = c.Rent(func(view SelectView) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestSelectContainer_ConcurrentRent(t *testing.T) {
	stmt, err := ParseQuery("select event from in where event.a > 0 into out", nil)
	require.NoError(t, err)
	c, err := NewSelectContainer(stmt)
	require.NoError(t, err)

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			var err error
			for j := 0; j < 100; j++ {
				err = c.Rent(func(view SelectView) error {
					if view.Stmt.Where == nil {
						return errors.New("where vanished")
					}
					return nil
				})
				if err != nil {
					break
				}
			}
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-done)
	}
}
