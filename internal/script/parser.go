package script

import (
	"fmt"
	"strconv"
)

// ParseQuery parses a fast-path select statement of the form
//
//	select event from <stream> [where <expr>] [having <expr>] into <stream>
//
// args become the statement's constant table, reachable from expressions
// through the args root. The where and having clauses cannot declare or
// reference statement-local variables, which is what allows evaluation to
// run with an empty local frame.
func ParseQuery(src string, args map[string]any) (*Stmt, error) {
	p := &parser{lx: newLexer(src), meta: NewNodeMeta()}
	if err := p.next(); err != nil {
		return nil, err
	}

	sel, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if p.tok.Typ != tEOF {
		return nil, p.errorf("unexpected %q after statement", p.tok.Val)
	}

	consts := NewConsts()
	for k, v := range args {
		consts.Declare(k, v)
	}
	return &Stmt{
		Kind:   StmtSelect,
		Select: sel,
		Consts: consts,
		Meta:   p.meta,
		Source: src,
	}, nil
}

type parser struct {
	lx   *lexer
	tok  token
	prev token
	meta *NodeMeta
}

func (p *parser) next() error {
	t, err := p.lx.nextToken()
	if err != nil {
		return err
	}
	p.prev = p.tok
	p.tok = t
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Pos: p.tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expectKeyword(kw string) error {
	if p.tok.Typ != tKeyword || p.tok.Val != kw {
		return p.errorf("expected %q, got %q", kw, p.tok.Val)
	}
	return p.next()
}

func (p *parser) expectSymbol(sym string) error {
	if p.tok.Typ != tSymbol || p.tok.Val != sym {
		return p.errorf("expected %q, got %q", sym, p.tok.Val)
	}
	return p.next()
}

func (p *parser) expectIdent() (string, error) {
	if p.tok.Typ != tIdent {
		return "", p.errorf("expected identifier, got %q", p.tok.Val)
	}
	name := p.tok.Val
	return name, p.next()
}

// tokEnd approximates the position just past a token. Good enough for
// single-line spans, which is all diagnostics need.
func tokEnd(t token) Pos {
	return Pos{Line: t.Pos.Line, Col: t.Pos.Col + len(t.Val)}
}

func (p *parser) span(start Pos) NodeID {
	return p.meta.Add(Span{Start: start, End: tokEnd(p.prev)})
}

func (p *parser) parseSelect() (*Select, error) {
	if err := p.expectKeyword("select"); err != nil {
		return nil, err
	}
	// The fast path projects the whole event, nothing else
	if err := p.expectKeyword("event"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	from, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	sel := &Select{From: from}

	if p.tok.Typ == tKeyword && p.tok.Val == "where" {
		if err := p.next(); err != nil {
			return nil, err
		}
		if sel.Where, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}
	if p.tok.Typ == tKeyword && p.tok.Val == "having" {
		if err := p.next(); err != nil {
			return nil, err
		}
		if sel.Having, err = p.parseExpr(); err != nil {
			return nil, err
		}
	}

	if err := p.expectKeyword("into"); err != nil {
		return nil, err
	}
	if sel.Into, err = p.expectIdent(); err != nil {
		return nil, err
	}
	return sel, nil
}

func (p *parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	start := p.tok.Pos
	lhs, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.Typ == tKeyword && p.tok.Val == "or" {
		if err := p.next(); err != nil {
			return nil, err
		}
		rhs, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		lhs = &Binary{ID: p.span(start), Op: OpOr, Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseAnd() (Expr, error) {
	start := p.tok.Pos
	lhs, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.tok.Typ == tKeyword && p.tok.Val == "and" {
		if err := p.next(); err != nil {
			return nil, err
		}
		rhs, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		lhs = &Binary{ID: p.span(start), Op: OpAnd, Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

var equalityOps = map[string]BinaryOp{"==": OpEq, "!=": OpNotEq}
var comparisonOps = map[string]BinaryOp{"<": OpLt, "<=": OpLte, ">": OpGt, ">=": OpGte}
var additiveOps = map[string]BinaryOp{"+": OpAdd, "-": OpSub}
var multiplicativeOps = map[string]BinaryOp{"*": OpMul, "/": OpDiv, "%": OpMod}

func (p *parser) parseBinary(ops map[string]BinaryOp, operand func() (Expr, error)) (Expr, error) {
	start := p.tok.Pos
	lhs, err := operand()
	if err != nil {
		return nil, err
	}
	for p.tok.Typ == tSymbol {
		op, ok := ops[p.tok.Val]
		if !ok {
			break
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		rhs, err := operand()
		if err != nil {
			return nil, err
		}
		lhs = &Binary{ID: p.span(start), Op: op, Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseEquality() (Expr, error) {
	return p.parseBinary(equalityOps, p.parseComparison)
}

func (p *parser) parseComparison() (Expr, error) {
	return p.parseBinary(comparisonOps, p.parseAdditive)
}

func (p *parser) parseAdditive() (Expr, error) {
	return p.parseBinary(additiveOps, p.parseMultiplicative)
}

func (p *parser) parseMultiplicative() (Expr, error) {
	return p.parseBinary(multiplicativeOps, p.parseUnary)
}

func (p *parser) parseUnary() (Expr, error) {
	start := p.tok.Pos
	if p.tok.Typ == tKeyword && p.tok.Val == "not" {
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{ID: p.span(start), Op: OpNot, Expr: inner}, nil
	}
	if p.tok.Typ == tSymbol && p.tok.Val == "-" {
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{ID: p.span(start), Op: OpNeg, Expr: inner}, nil
	}
	if p.tok.Typ == tKeyword && p.tok.Val == "present" {
		if err := p.next(); err != nil {
			return nil, err
		}
		path, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		return &Present{ID: p.span(start), Path: path}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	start := p.tok.Pos
	switch {
	case p.tok.Typ == tInt:
		n, err := strconv.ParseInt(p.tok.Val, 10, 64)
		if err != nil {
			return nil, p.errorf("bad integer literal %q", p.tok.Val)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{ID: p.span(start), Value: n}, nil

	case p.tok.Typ == tFloat:
		f, err := strconv.ParseFloat(p.tok.Val, 64)
		if err != nil {
			return nil, p.errorf("bad float literal %q", p.tok.Val)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{ID: p.span(start), Value: f}, nil

	case p.tok.Typ == tString:
		v := p.tok.Val
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{ID: p.span(start), Value: v}, nil

	case p.tok.Typ == tKeyword && (p.tok.Val == "true" || p.tok.Val == "false"):
		v := p.tok.Val == "true"
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{ID: p.span(start), Value: v}, nil

	case p.tok.Typ == tKeyword && p.tok.Val == "null":
		if err := p.next(); err != nil {
			return nil, err
		}
		return &Literal{ID: p.span(start), Value: nil}, nil

	case p.tok.Typ == tSymbol && p.tok.Val == "(":
		if err := p.next(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return inner, nil

	case p.tok.Typ == tSymbol && p.tok.Val == "$":
		return p.parsePath()

	case p.tok.Typ == tKeyword && p.tok.Val == "event":
		return p.parsePath()

	case p.tok.Typ == tIdent:
		if p.tok.Val == "state" || p.tok.Val == "args" {
			return p.parsePath()
		}
		// module::function(...)
		return p.parseCall()
	}
	return nil, p.errorf("unexpected %q in expression", p.tok.Val)
}

func (p *parser) parsePath() (*Path, error) {
	start := p.tok.Pos
	path := &Path{}

	switch {
	case p.tok.Typ == tKeyword && p.tok.Val == "event":
		path.Root = RootEvent
		if err := p.next(); err != nil {
			return nil, err
		}
	case p.tok.Typ == tSymbol && p.tok.Val == "$":
		path.Root = RootMeta
		if err := p.next(); err != nil {
			return nil, err
		}
		// $name is shorthand for the first metadata segment
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		path.Segments = append(path.Segments, Segment{Key: name})
	case p.tok.Typ == tIdent && p.tok.Val == "state":
		path.Root = RootState
		if err := p.next(); err != nil {
			return nil, err
		}
	case p.tok.Typ == tIdent && p.tok.Val == "args":
		path.Root = RootArgs
		if err := p.next(); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf("expected a path, got %q", p.tok.Val)
	}

	for {
		if p.tok.Typ == tSymbol && p.tok.Val == "." {
			if err := p.next(); err != nil {
				return nil, err
			}
			key, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			path.Segments = append(path.Segments, Segment{Key: key})
			continue
		}
		if p.tok.Typ == tSymbol && p.tok.Val == "[" {
			if err := p.next(); err != nil {
				return nil, err
			}
			if p.tok.Typ != tInt {
				return nil, p.errorf("expected array index, got %q", p.tok.Val)
			}
			idx, err := strconv.Atoi(p.tok.Val)
			if err != nil {
				return nil, p.errorf("bad array index %q", p.tok.Val)
			}
			if err := p.next(); err != nil {
				return nil, err
			}
			if err := p.expectSymbol("]"); err != nil {
				return nil, err
			}
			path.Segments = append(path.Segments, Segment{Idx: idx, IsIdx: true})
			continue
		}
		break
	}

	path.ID = p.span(start)
	return path, nil
}

func (p *parser) parseCall() (Expr, error) {
	start := p.tok.Pos
	module, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("::"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}

	var callArgs []Expr
	for !(p.tok.Typ == tSymbol && p.tok.Val == ")") {
		if len(callArgs) > 0 {
			if err := p.expectSymbol(","); err != nil {
				return nil, err
			}
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		callArgs = append(callArgs, arg)
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return &Call{ID: p.span(start), Module: module, Name: name, Args: callArgs}, nil
}
