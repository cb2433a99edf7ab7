// Package script implements the expression language used by sift queries:
// lexing, parsing, the expression AST and its evaluator, plus the container
// that owns a parsed select statement and its backing data.
package script

// NodeID indexes a node's source span in the statement's NodeMeta.
type NodeID uint32

// Expr is an expression node. The set of implementations below is closed,
// evaluation dispatches exhaustively over it.
type Expr interface {
	isExpr()
	Node() NodeID
}

// PathRoot is the namespace a path expression starts from.
type PathRoot int

const (
	RootEvent PathRoot = iota // event.foo
	RootMeta                  // $foo
	RootState                 // state.foo
	RootArgs                  // args.foo, resolved against the constant table
)

func (r PathRoot) String() string {
	switch r {
	case RootEvent:
		return "event"
	case RootMeta:
		return "$"
	case RootState:
		return "state"
	case RootArgs:
		return "args"
	}
	return "unknown"
}

// Segment is one step of a path, either a key lookup or an array index.
type Segment struct {
	Key   string
	Idx   int
	IsIdx bool
}

type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (o UnaryOp) String() string {
	if o == OpNot {
		return "not"
	}
	return "-"
}

type BinaryOp int

const (
	OpAnd BinaryOp = iota
	OpOr
	OpEq
	OpNotEq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

var binaryOpNames = map[BinaryOp]string{
	OpAnd: "and", OpOr: "or",
	OpEq: "==", OpNotEq: "!=",
	OpLt: "<", OpLte: "<=", OpGt: ">", OpGte: ">=",
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%",
}

func (o BinaryOp) String() string {
	return binaryOpNames[o]
}

// Literal is a constant value baked into the statement.
type Literal struct {
	ID    NodeID
	Value any
}

// Path reads a value out of the event, its metadata, the operator state or
// the statement args.
type Path struct {
	ID       NodeID
	Root     PathRoot
	Segments []Segment
}

type Unary struct {
	ID   NodeID
	Op   UnaryOp
	Expr Expr
}

type Binary struct {
	ID  NodeID
	Op  BinaryOp
	Lhs Expr
	Rhs Expr
}

// Call invokes a builtin, e.g. system::ingest_ns().
type Call struct {
	ID     NodeID
	Module string
	Name   string
	Args   []Expr
}

// Present tests whether a path resolves, without erroring when it does not.
type Present struct {
	ID   NodeID
	Path *Path
}

func (e *Literal) isExpr() {}
func (e *Path) isExpr()    {}
func (e *Unary) isExpr()   {}
func (e *Binary) isExpr()  {}
func (e *Call) isExpr()    {}
func (e *Present) isExpr() {}

func (e *Literal) Node() NodeID { return e.ID }
func (e *Path) Node() NodeID    { return e.ID }
func (e *Unary) Node() NodeID   { return e.ID }
func (e *Binary) Node() NodeID  { return e.ID }
func (e *Call) Node() NodeID    { return e.ID }
func (e *Present) Node() NodeID { return e.ID }

// StmtKind discriminates the statement kinds the parser can hand out. The
// zero value is deliberately invalid.
type StmtKind int

const (
	StmtInvalid StmtKind = iota
	StmtSelect
)

// Select is the parsed body of a fast-path select statement. Where and
// Having are nil when the clause is absent.
type Select struct {
	From   string
	Into   string
	Where  Expr
	Having Expr
}

// Stmt is a generically parsed statement as the planner hands it to an
// operator: the statement body plus the constant table, per-node source
// metadata and the raw source it was parsed from.
type Stmt struct {
	Kind   StmtKind
	Select *Select
	Consts *Consts
	Meta   *NodeMeta
	Source string
}
