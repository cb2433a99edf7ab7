package script

import (
	"strconv"

	"github.com/tarungka/sift/internal/event"
)

// EventContext is the per-event execution context: when the event entered
// the system and from where. Built once per event, discarded after.
type EventContext struct {
	ingestNs uint64
	origin   *event.OriginURI
}

// NewEventContext wraps an ingest timestamp and an origin for evaluation.
func NewEventContext(ingestNs uint64, origin *event.OriginURI) EventContext {
	return EventContext{ingestNs: ingestNs, origin: origin}
}

func (c EventContext) IngestNs() uint64 {
	return c.ingestNs
}

func (c EventContext) Origin() *event.OriginURI {
	return c.origin
}

// LocalFrame holds statement-local variables. Guard clauses cannot declare
// locals, so the fast path always runs with a zero-size frame.
type LocalFrame struct {
	values []any
}

func NewLocalFrame(size int) *LocalFrame {
	return &LocalFrame{values: make([]any, size)}
}

func (l *LocalFrame) Size() int {
	return len(l.values)
}

// Env is everything an expression needs besides the event itself. The
// recursion limit is carried here explicitly rather than read from process
// state, so a caller can bound evaluation per operator.
type Env struct {
	Context        *EventContext
	Consts         *Consts
	Meta           *NodeMeta
	RecursionLimit int
}

// Run evaluates an expression against the environment, the operator state
// and the event's payload/metadata split. The result is a runtime value of
// any type, callers that need a boolean must check for one.
func Run(e Expr, env *Env, data any, state map[string]any, meta map[string]any, local *LocalFrame) (any, error) {
	return run(e, env, data, state, meta, local, 0)
}

func run(e Expr, env *Env, data any, state map[string]any, meta map[string]any, local *LocalFrame, depth int) (any, error) {
	if depth > env.RecursionLimit {
		span, _ := env.Meta.Span(e.Node())
		return nil, &EvalError{Span: span, Err: ErrRecursionLimit}
	}
	depth++

	switch n := e.(type) {
	case *Literal:
		return n.Value, nil

	case *Path:
		v, found, err := resolvePath(n, env, data, state, meta)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, evalErrorf(n.ID, env.Meta, "path %s does not resolve", pathString(n))
		}
		return v, nil

	case *Present:
		_, found, err := resolvePath(n.Path, env, data, state, meta)
		if err != nil {
			return nil, err
		}
		return found, nil

	case *Unary:
		v, err := run(n.Expr, env, data, state, meta, local, depth)
		if err != nil {
			return nil, err
		}
		return runUnary(n, env, v)

	case *Binary:
		return runBinary(n, env, data, state, meta, local, depth)

	case *Call:
		return runCall(n, env, data, state, meta, local, depth)
	}
	return nil, evalErrorf(e.Node(), env.Meta, "unhandled expression node")
}

func runUnary(n *Unary, env *Env, v any) (any, error) {
	switch n.Op {
	case OpNot:
		b, ok := AsBool(v)
		if !ok {
			return nil, evalErrorf(n.ID, env.Meta, "operator %s needs a boolean operand, got %v", n.Op, v)
		}
		return !b, nil
	case OpNeg:
		if i, ok := asInt(v); ok {
			return -i, nil
		}
		if f, ok := asFloat(v); ok {
			return -f, nil
		}
		return nil, evalErrorf(n.ID, env.Meta, "operator %s needs a numeric operand, got %v", n.Op, v)
	}
	return nil, evalErrorf(n.ID, env.Meta, "unknown unary operator")
}

func runBinary(n *Binary, env *Env, data any, state map[string]any, meta map[string]any, local *LocalFrame, depth int) (any, error) {
	lhs, err := run(n.Lhs, env, data, state, meta, local, depth)
	if err != nil {
		return nil, err
	}

	// and/or short circuit on the left operand
	if n.Op == OpAnd || n.Op == OpOr {
		lb, ok := AsBool(lhs)
		if !ok {
			return nil, evalErrorf(n.ID, env.Meta, "operator %s needs boolean operands, got %v", n.Op, lhs)
		}
		if n.Op == OpAnd && !lb {
			return false, nil
		}
		if n.Op == OpOr && lb {
			return true, nil
		}
		rhs, err := run(n.Rhs, env, data, state, meta, local, depth)
		if err != nil {
			return nil, err
		}
		rb, ok := AsBool(rhs)
		if !ok {
			return nil, evalErrorf(n.ID, env.Meta, "operator %s needs boolean operands, got %v", n.Op, rhs)
		}
		return rb, nil
	}

	rhs, err := run(n.Rhs, env, data, state, meta, local, depth)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case OpEq:
		return valueEq(lhs, rhs), nil
	case OpNotEq:
		return !valueEq(lhs, rhs), nil
	case OpLt, OpLte, OpGt, OpGte:
		return compare(n, env, lhs, rhs)
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return arithmetic(n, env, lhs, rhs)
	}
	return nil, evalErrorf(n.ID, env.Meta, "unknown binary operator")
}

func compare(n *Binary, env *Env, lhs, rhs any) (any, error) {
	if ls, ok := lhs.(string); ok {
		rs, ok := rhs.(string)
		if !ok {
			return nil, evalErrorf(n.ID, env.Meta, "operator %s cannot compare %v and %v", n.Op, lhs, rhs)
		}
		switch n.Op {
		case OpLt:
			return ls < rs, nil
		case OpLte:
			return ls <= rs, nil
		case OpGt:
			return ls > rs, nil
		case OpGte:
			return ls >= rs, nil
		}
	}
	lf, lok := asFloat(lhs)
	rf, rok := asFloat(rhs)
	if !lok || !rok {
		return nil, evalErrorf(n.ID, env.Meta, "operator %s cannot compare %v and %v", n.Op, lhs, rhs)
	}
	switch n.Op {
	case OpLt:
		return lf < rf, nil
	case OpLte:
		return lf <= rf, nil
	case OpGt:
		return lf > rf, nil
	case OpGte:
		return lf >= rf, nil
	}
	return nil, evalErrorf(n.ID, env.Meta, "unknown comparison operator")
}

func arithmetic(n *Binary, env *Env, lhs, rhs any) (any, error) {
	// ints stay ints as long as both sides are, division always goes
	// through float
	li, lIsInt := asInt(lhs)
	ri, rIsInt := asInt(rhs)
	if lIsInt && rIsInt && n.Op != OpDiv {
		switch n.Op {
		case OpAdd:
			return li + ri, nil
		case OpSub:
			return li - ri, nil
		case OpMul:
			return li * ri, nil
		case OpMod:
			if ri == 0 {
				return nil, evalErrorf(n.ID, env.Meta, "modulo by zero")
			}
			return li % ri, nil
		}
	}
	if n.Op == OpMod {
		return nil, evalErrorf(n.ID, env.Meta, "operator %% needs integer operands, got %v and %v", lhs, rhs)
	}
	lf, lok := asFloat(lhs)
	rf, rok := asFloat(rhs)
	if !lok || !rok {
		return nil, evalErrorf(n.ID, env.Meta, "operator %s needs numeric operands, got %v and %v", n.Op, lhs, rhs)
	}
	switch n.Op {
	case OpAdd:
		return lf + rf, nil
	case OpSub:
		return lf - rf, nil
	case OpMul:
		return lf * rf, nil
	case OpDiv:
		if rf == 0 {
			return nil, evalErrorf(n.ID, env.Meta, "division by zero")
		}
		return lf / rf, nil
	}
	return nil, evalErrorf(n.ID, env.Meta, "unknown arithmetic operator")
}

func runCall(n *Call, env *Env, data any, state map[string]any, meta map[string]any, local *LocalFrame, depth int) (any, error) {
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, err := run(a, env, data, state, meta, local, depth)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	if n.Module != "system" {
		return nil, evalErrorf(n.ID, env.Meta, "unknown module %q", n.Module)
	}
	switch n.Name {
	case "ingest_ns":
		if len(args) != 0 {
			return nil, evalErrorf(n.ID, env.Meta, "system::ingest_ns takes no arguments")
		}
		return int64(env.Context.IngestNs()), nil
	case "origin":
		if len(args) != 0 {
			return nil, evalErrorf(n.ID, env.Meta, "system::origin takes no arguments")
		}
		return env.Context.Origin().String(), nil
	}
	return nil, evalErrorf(n.ID, env.Meta, "unknown function system::%s", n.Name)
}

func resolvePath(p *Path, env *Env, data any, state map[string]any, meta map[string]any) (any, bool, error) {
	var cur any
	segs := p.Segments

	switch p.Root {
	case RootEvent:
		cur = data
	case RootMeta:
		cur = any(meta)
	case RootState:
		cur = any(state)
	case RootArgs:
		if len(segs) == 0 {
			return nil, false, evalErrorf(p.ID, env.Meta, "args cannot be referenced without a key")
		}
		v, ok := env.Consts.Get(segs[0].Key)
		if !ok {
			return nil, false, nil
		}
		cur = v
		segs = segs[1:]
	}

	for _, seg := range segs {
		if seg.IsIdx {
			arr, ok := cur.([]any)
			if !ok || seg.Idx < 0 || seg.Idx >= len(arr) {
				return nil, false, nil
			}
			cur = arr[seg.Idx]
			continue
		}
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		cur, ok = obj[seg.Key]
		if !ok {
			return nil, false, nil
		}
	}
	return cur, true, nil
}

func pathString(p *Path) string {
	out := p.Root.String()
	for i, seg := range p.Segments {
		switch {
		case seg.IsIdx:
			out += "[" + strconv.Itoa(seg.Idx) + "]"
		case p.Root == RootMeta && i == 0:
			out += seg.Key
		default:
			out += "." + seg.Key
		}
	}
	return out
}

