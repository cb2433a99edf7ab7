package script

import "fmt"

// Pos is a 1-based position in the statement source.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("line %d column %d", p.Line, p.Col)
}

// Span is the source range covered by an AST node.
type Span struct {
	Start Pos
	End   Pos
}

// NodeMeta maps node ids to their source spans. Node ids are handed out by
// the parser, one per AST node, so diagnostics can point back into the
// statement source without the nodes carrying positions themselves.
type NodeMeta struct {
	spans []Span
}

func NewNodeMeta() *NodeMeta {
	return &NodeMeta{}
}

// Add registers a span and returns the node id for it.
func (m *NodeMeta) Add(s Span) NodeID {
	m.spans = append(m.spans, s)
	return NodeID(len(m.spans) - 1)
}

// Span returns the source span for a node id.
func (m *NodeMeta) Span(id NodeID) (Span, bool) {
	if int(id) >= len(m.spans) {
		return Span{}, false
	}
	return m.spans[id], true
}

// Consts is the statement's constant table: values resolved at parse time
// and referenced from the AST by name through the args root.
type Consts struct {
	names  map[string]int
	values []any
}

func NewConsts() *Consts {
	return &Consts{names: map[string]int{}}
}

// Declare adds a named constant, overwriting any previous value under the
// same name.
func (c *Consts) Declare(name string, value any) {
	if i, ok := c.names[name]; ok {
		c.values[i] = value
		return
	}
	c.names[name] = len(c.values)
	c.values = append(c.values, value)
}

// Get looks a constant up by name.
func (c *Consts) Get(name string) (any, bool) {
	i, ok := c.names[name]
	if !ok {
		return nil, false
	}
	return c.values[i], true
}

func (c *Consts) Len() int {
	return len(c.values)
}
