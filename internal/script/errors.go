package script

import (
	"errors"
	"fmt"
)

var (
	// ErrRecursionLimit is returned when expression evaluation nests beyond
	// the configured bound.
	ErrRecursionLimit = errors.New("recursion limit reached")

	// ErrNotSelect is returned when a statement cannot be represented as a
	// fast-path select.
	ErrNotSelect = errors.New("statement is not a select")
)

// ParseError is a syntax error with its position in the statement source.
type ParseError struct {
	Pos Pos
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Msg)
}

// EvalError is a runtime error raised while evaluating an expression. Span
// points at the offending node. Err, when set, carries a sentinel such as
// ErrRecursionLimit.
type EvalError struct {
	Span Span
	Msg  string
	Err  error
}

func (e *EvalError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s at %s", msg, e.Span.Start)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}

func evalErrorf(id NodeID, meta *NodeMeta, format string, args ...any) error {
	span, _ := meta.Span(id)
	return &EvalError{Span: span, Msg: fmt.Sprintf(format, args...)}
}

// GuardNotBoolError reports a where or having clause that evaluated to a
// non boolean value. It carries enough to point the user at the statement,
// the clause and the value that came out of it.
type GuardNotBoolError struct {
	StmtID string
	Clause string
	Value  any
	Span   Span
}

func (e *GuardNotBoolError) Error() string {
	return fmt.Sprintf("statement %q: the %s clause evaluated to the non boolean value %v at %s",
		e.StmtID, e.Clause, e.Value, e.Span.Start)
}

// NewGuardNotBool builds a GuardNotBoolError for the given guard expression.
func NewGuardNotBool(stmtID, clause string, value any, guard Expr, meta *NodeMeta) error {
	span, _ := meta.Span(guard.Node())
	return &GuardNotBoolError{StmtID: stmtID, Clause: clause, Value: value, Span: span}
}
