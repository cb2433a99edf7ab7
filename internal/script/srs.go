package script

import "fmt"

// SelectContainer owns a select statement's source, constant table, node
// metadata and AST as one unit. The AST's spans and constant references only
// mean anything relative to the data owned here, so nothing may keep a
// pointer into the container beyond a single accessor call.
//
// The only read path is Rent: callers get a SelectView for the duration of
// one closure and must copy out anything they want to keep. The container
// never mutates after construction, so concurrent Rent calls are safe.
type SelectContainer struct {
	source string
	consts *Consts
	meta   *NodeMeta
	sel    *Select
}

// SelectView is the borrowed view handed to a Rent callback. It is only
// valid inside the callback, do not store it or anything reachable from it.
type SelectView struct {
	Stmt   *Select
	Consts *Consts
	Meta   *NodeMeta
	Source string
}

// NewSelectContainer converts a generically parsed statement into a
// container. It fails when the statement is not a representable select.
// It does not check for grouping or windowing constructs, the planner
// guarantees their absence before this is ever called.
func NewSelectContainer(stmt *Stmt) (*SelectContainer, error) {
	if stmt == nil {
		return nil, fmt.Errorf("nil statement: %w", ErrNotSelect)
	}
	if stmt.Kind != StmtSelect || stmt.Select == nil {
		return nil, fmt.Errorf("statement %q: %w", stmt.Source, ErrNotSelect)
	}
	if stmt.Consts == nil || stmt.Meta == nil {
		return nil, fmt.Errorf("statement is missing its constant table or node metadata: %w", ErrNotSelect)
	}
	return &SelectContainer{
		source: stmt.Source,
		consts: stmt.Consts,
		meta:   stmt.Meta,
		sel:    stmt.Select,
	}, nil
}

// Rent loans the statement out for the duration of one callback. The error
// return is the callback's, passed through untouched.
func (c *SelectContainer) Rent(fn func(view SelectView) error) error {
	return fn(SelectView{
		Stmt:   c.sel,
		Consts: c.consts,
		Meta:   c.meta,
		Source: c.source,
	})
}

// Source returns a copy of the statement source, for diagnostics.
func (c *SelectContainer) Source() string {
	return c.source
}
