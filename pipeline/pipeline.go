// Package pipeline runs events from a source through select operators and
// into a sink.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tarungka/sift/checkpoint"
	"github.com/tarungka/sift/internal/event"
	"github.com/tarungka/sift/sinks"
	"github.com/tarungka/sift/sources"
	"github.com/tarungka/sift/stream"
)

// DataPipeline wires one source through a set of select operator instances
// into one sink. Each worker owns exactly one operator instance and its
// state, so calls to a single instance are always serialized while workers
// run in parallel across payload partitions.
type DataPipeline struct {
	key   string
	query string

	Source sources.DataSource
	Sink   sinks.DataSink

	operators []stream.Operator
	states    []stream.State
	// one lock per worker, held around OnEvent and while a checkpoint
	// snapshots the state
	stateMu []sync.Mutex

	stats Stats

	// pipeline is running
	open   atomic.Bool
	mu     sync.Mutex
	cancel context.CancelFunc

	ckpt         *checkpoint.Manager
	ckptInterval time.Duration
}

// New builds a pipeline from its config: parses the query, instantiates one
// operator per worker and the source and sink. The recursion limit comes
// from the process wide config and is fixed into every operator.
func New(cfg PipelineConfig, recursionLimit int, factory func(name string) (stream.Operator, error)) (*DataPipeline, error) {
	source, err := sources.Create(cfg.Source.ConnectionType)
	if err != nil {
		return nil, err
	}
	if err := source.Init(cfg.Source); err != nil {
		return nil, fmt.Errorf("pipeline %q: error configuring source: %w", cfg.Name, err)
	}

	sink, err := sinks.Create(cfg.Sink.ConnectionType)
	if err != nil {
		return nil, err
	}
	if err := sink.Init(cfg.Sink); err != nil {
		return nil, fmt.Errorf("pipeline %q: error configuring sink: %w", cfg.Name, err)
	}

	dp := &DataPipeline{
		key:    cfg.Name,
		query:  cfg.Query,
		Source: source,
		Sink:   sink,
	}
	for i := 0; i < cfg.Workers; i++ {
		op, err := factory(fmt.Sprintf("%s-%d", cfg.Name, i))
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: error building operator: %w", cfg.Name, err)
		}
		dp.operators = append(dp.operators, op)
		dp.states = append(dp.states, make(stream.State))
	}
	dp.stateMu = make([]sync.Mutex, cfg.Workers)
	return dp, nil
}

func (dp *DataPipeline) Key() string {
	return dp.key
}

func (dp *DataPipeline) Query() string {
	return dp.query
}

func (dp *DataPipeline) Running() bool {
	return dp.open.Load()
}

func (dp *DataPipeline) Stats() StatsSnapshot {
	return dp.stats.Snapshot()
}

func (dp *DataPipeline) Operators() []stream.Operator {
	return dp.operators
}

// SetCheckpointing enables periodic operator state snapshots.
func (dp *DataPipeline) SetCheckpointing(mgr *checkpoint.Manager, interval time.Duration) {
	dp.ckpt = mgr
	dp.ckptInterval = interval
}

// Run connects the source and sink and pumps events until the source drains
// or the context is cancelled. It blocks for the lifetime of the pipeline.
func (dp *DataPipeline) Run(pctx context.Context) error {
	defer func() {
		log.Trace().Msgf("The RUN function is done/returning [%v]", dp.Sink.Info())
	}()

	ctx, cancel := context.WithCancel(pctx)
	defer cancel()
	dp.mu.Lock()
	dp.cancel = cancel
	dp.mu.Unlock()

	if err := dp.Source.Connect(ctx); err != nil {
		log.Err(err).Msg("Error when connecting to source")
		return err
	}
	defer dp.Source.Disconnect()
	if err := dp.Sink.Connect(ctx); err != nil {
		log.Err(err).Msg("Error when connecting to sink")
		return err
	}
	defer dp.Sink.Disconnect()

	if err := dp.seedState(); err != nil {
		log.Err(err).Msg("Error restoring operator state")
		return err
	}

	dp.open.Store(true)
	defer dp.open.Store(false)

	var wg sync.WaitGroup
	in, err := dp.Source.Read(ctx, &wg)
	if err != nil {
		log.Err(err).Msg("Error when reading from the source")
		return err
	}

	out := make(chan []byte, 16)
	if err := dp.Sink.Write(ctx, &wg, out); err != nil {
		log.Err(err).Msg("Error when writing to the sink")
		return err
	}

	if dp.ckpt != nil {
		wg.Add(1)
		go dp.checkpointLoop(ctx, &wg)
	}

	n := len(dp.operators)
	workerChans := make([]chan []byte, n)
	var workers sync.WaitGroup
	for i := 0; i < n; i++ {
		workerChans[i] = make(chan []byte, 16)
		workers.Add(1)
		go dp.worker(ctx, uint64(i), workerChans[i], out, &workers)
	}

	// Fan raw payloads out to the workers, a given payload key always
	// lands on the same operator instance
	for raw := range in {
		idx := partition(raw, n)
		select {
		case workerChans[idx] <- raw:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	for i := 0; i < n; i++ {
		close(workerChans[i])
	}
	workers.Wait()
	close(out)
	cancel()
	wg.Wait()
	return nil
}

// seedState binds every operator to the state map its worker mutates, so a
// checkpoint snapshot sees what OnEvent has written. When a checkpoint
// manager is configured the last checkpointed state is loaded first, which
// is how a pipeline picks up where it left off after a restart.
func (dp *DataPipeline) seedState() error {
	for i, op := range dp.operators {
		if dp.ckpt != nil {
			saved, err := dp.ckpt.Latest(op.ID())
			if err != nil {
				return fmt.Errorf("pipeline %q: error loading state for operator %s: %w", dp.key, op.ID(), err)
			}
			if saved != nil {
				dp.states[i] = saved
			}
		}
		op.Restore(dp.states[i])
	}
	return nil
}

func (dp *DataPipeline) worker(ctx context.Context, uid uint64, in <-chan []byte, out chan<- []byte, workers *sync.WaitGroup) {
	defer workers.Done()

	op := dp.operators[uid]
	state := dp.states[uid]
	origin := dp.Source.Origin()

	for raw := range in {
		dp.stats.in.Add(1)

		var payload any
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Err(err).Msg("Error un-marshaling event payload")
			dp.stats.errors.Add(1)
			continue
		}
		ev, err := event.New(payload, origin)
		if err != nil {
			log.Err(err).Msg("Error creating event")
			dp.stats.errors.Add(1)
			continue
		}

		dp.stateMu[uid].Lock()
		result, err := op.OnEvent(uid, "in", state, ev)
		dp.stateMu[uid].Unlock()
		if err != nil {
			// Per-event failure, the pipeline keeps going
			log.Err(err).Str("operator", op.ID()).Msg("Error when handling event")
			dp.stats.errors.Add(1)
			continue
		}
		if len(result.Events) == 0 {
			dp.stats.dropped.Add(1)
			continue
		}
		for _, outEv := range result.Events {
			buf, err := json.Marshal(outEv.Data.Value())
			if err != nil {
				log.Err(err).Msg("Error marshaling event payload")
				dp.stats.errors.Add(1)
				continue
			}
			select {
			case out <- buf:
				dp.stats.out.Add(1)
			case <-ctx.Done():
				return
			}
		}
	}
}

func (dp *DataPipeline) checkpointLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	interval := dp.ckptInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := dp.createCheckpoint(); err != nil {
				log.Err(err).Str("pipeline", dp.key).Msg("Error creating checkpoint")
			}
		case <-ctx.Done():
			return
		}
	}
}

// createCheckpoint snapshots every operator with all worker state locks
// held, so the snapshot is consistent against in-flight events.
func (dp *DataPipeline) createCheckpoint() (*checkpoint.Checkpoint, error) {
	for i := range dp.stateMu {
		dp.stateMu[i].Lock()
	}
	defer func() {
		for i := range dp.stateMu {
			dp.stateMu[i].Unlock()
		}
	}()
	return dp.ckpt.Create(dp.operators)
}

// Stop cancels a running pipeline.
func (dp *DataPipeline) Stop() {
	dp.mu.Lock()
	cancel := dp.cancel
	dp.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Show returns a printable description of the pipeline.
func (dp *DataPipeline) Show() string {
	return fmt.Sprintf("%s -> [%s] -> %s", dp.Source.Info(), dp.query, dp.Sink.Info())
}
