package pipeline

import "sync/atomic"

// Stats counts what happened to the events a pipeline has seen.
type Stats struct {
	in      atomic.Uint64
	out     atomic.Uint64
	dropped atomic.Uint64
	errors  atomic.Uint64
}

// StatsSnapshot is a point in time copy of the counters, safe to hand out.
type StatsSnapshot struct {
	In      uint64 `json:"in"`
	Out     uint64 `json:"out"`
	Dropped uint64 `json:"dropped"`
	Errors  uint64 `json:"errors"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		In:      s.in.Load(),
		Out:     s.out.Load(),
		Dropped: s.dropped.Load(),
		Errors:  s.errors.Load(),
	}
}
