package stream

import (
	"github.com/tarungka/sift/internal/event"
	"github.com/tarungka/sift/internal/script"
)

// SimpleSelect is the optimized operator for a select of the form
//
//	select event from in [where ...] [having ...] into out
//
// i.e. no grouping and no windows. It forwards the event untouched when the
// guards pass and drops it otherwise, there is no projection and no
// aggregation state. The planner only instantiates it for statements it has
// already verified are grouping- and window-free.
type SimpleSelect struct {
	*BaseOperator
	sel            *script.SelectContainer
	recursionLimit int
}

// WithStatement builds a SimpleSelect from a generically parsed statement.
// The recursion limit bounds guard evaluation depth and comes from the
// hosting pipeline's configuration, it is fixed for the operator's lifetime.
func WithStatement(id string, stmt *script.Stmt, recursionLimit int) (*SimpleSelect, error) {
	sel, err := script.NewSelectContainer(stmt)
	if err != nil {
		return nil, err
	}
	return &SimpleSelect{
		BaseOperator:   NewBaseOperator(id),
		sel:            sel,
		recursionLimit: recursionLimit,
	}, nil
}

// OnEvent gates the event on the where clause, then the having clause. A
// guard that evaluates to false drops the event cleanly, one that evaluates
// to a non boolean fails the call. Either way nothing is forwarded, there is
// no partial result for a single event.
func (o *SimpleSelect) OnEvent(uid uint64, port string, state State, ev *event.Event) (EventAndInsights, error) {
	var out EventAndInsights

	err := o.sel.Rent(func(view script.SelectView) error {
		// No locals are allowed in the where and having clause
		local := script.NewLocalFrame(0)

		ctx := script.NewEventContext(ev.IngestNs, ev.Origin)
		env := &script.Env{
			Context:        &ctx,
			Consts:         view.Consts,
			Meta:           view.Meta,
			RecursionLimit: o.recursionLimit,
		}

		// Before anything else the event is filtered by the where clause
		if guard := view.Stmt.Where; guard != nil {
			data, meta := ev.Data.Parts()
			test, err := script.Run(guard, env, data, state, meta, local)
			if err != nil {
				return err
			}
			pass, isBool := script.AsBool(test)
			if !isBool {
				return script.NewGuardNotBool(o.ID(), "where", test, guard, view.Meta)
			}
			if !pass {
				return nil
			}
		}

		if guard := view.Stmt.Having; guard != nil {
			data, meta := ev.Data.Parts()
			test, err := script.Run(guard, env, data, state, meta, local)
			if err != nil {
				return err
			}
			pass, isBool := script.AsBool(test)
			if !isBool {
				return script.NewGuardNotBool(o.ID(), "having", test, guard, view.Meta)
			}
			if !pass {
				return nil
			}
		}

		out = From(ev)
		return nil
	})
	if err != nil {
		return EventAndInsights{}, err
	}
	return out, nil
}
