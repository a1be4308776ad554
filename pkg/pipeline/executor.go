// Package pipeline drives batches of records through a sealed operator
// graph on a fixed-size worker pool. An Executor has an explicit
// lifecycle: construct it, call Run once per input stream, and read the
// result channel until it closes. There is no process-wide singleton;
// embedding applications own every executor they create.
//
// Batches are a performance parameter only. Workers process the records
// of a batch sequentially while batches run in parallel, the work queue
// is bounded so a fast source blocks instead of growing memory, and
// cancellation is observed at batch boundaries: an in-flight batch runs
// to completion.
package pipeline

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/seqweave/seqweave/pkg/graph"
	"github.com/seqweave/seqweave/pkg/logger"
	"github.com/seqweave/seqweave/pkg/metrics"
	"github.com/seqweave/seqweave/pkg/seq"
)

// Config controls executor parallelism and batching.
type Config struct {
	// Workers is the fixed worker pool size. Defaults to GOMAXPROCS.
	Workers int `yaml:"workers" json:"workers"`

	// BatchSize is the number of records grouped per batch.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// QueueDepth bounds the batch work queue; producers block when it
	// is full.
	QueueDepth int `yaml:"queue_depth" json:"queue_depth"`

	// Ordered re-sorts results into input order before emitting them.
	Ordered bool `yaml:"ordered" json:"ordered"`
}

// DefaultConfig returns the default executor configuration.
func DefaultConfig() Config {
	return Config{
		Workers:    runtime.GOMAXPROCS(0),
		BatchSize:  256,
		QueueDepth: 8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.QueueDepth <= 0 {
		c.QueueDepth = d.QueueDepth
	}
	return c
}

// ExecutionResult is one record's exit from the pipeline. Seq is the
// record's input sequence number, for ordered reassembly downstream.
type ExecutionResult struct {
	graph.Outcome
	Seq uint64
}

// Stats holds the executor's atomic counters. Read them through
// Snapshot; fields are updated concurrently by workers.
type Stats struct {
	Processed int64
	Accepted  int64
	Discarded int64
	Errored   int64
	Batches   int64
}

// Snapshot returns a consistent-enough copy of the counters.
func (s *Stats) Snapshot() Stats {
	return Stats{
		Processed: atomic.LoadInt64(&s.Processed),
		Accepted:  atomic.LoadInt64(&s.Accepted),
		Discarded: atomic.LoadInt64(&s.Discarded),
		Errored:   atomic.LoadInt64(&s.Errored),
		Batches:   atomic.LoadInt64(&s.Batches),
	}
}

// Executor drives records through a sealed graph.
type Executor struct {
	cfg       Config
	log       *zap.Logger
	collector *metrics.Collector
	stats     Stats
}

// Option configures an Executor.
type Option func(*Executor)

// WithCollector attaches a metrics collector.
func WithCollector(c *metrics.Collector) Option {
	return func(e *Executor) { e.collector = c }
}

// WithLogger overrides the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// New creates an executor. Zero config fields take defaults.
func New(cfg Config, opts ...Option) *Executor {
	e := &Executor{cfg: cfg.withDefaults(), log: logger.Get()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats returns a snapshot of the executor's counters.
func (e *Executor) Stats() Stats {
	return e.stats.Snapshot()
}

type batch struct {
	records  []*seq.Record
	firstSeq uint64
}

// Run consumes source once and returns the result stream. The returned
// channel closes after the source is exhausted or the context is
// cancelled and all in-flight batches have drained. Run is not
// restartable; create a new executor for a new input stream.
func (e *Executor) Run(ctx context.Context, g *graph.SealedGraph, source <-chan *seq.Record) <-chan ExecutionResult {
	cfg := e.cfg
	batches := make(chan batch, cfg.QueueDepth)
	results := make(chan ExecutionResult, cfg.Workers*cfg.BatchSize)

	e.log.Info("executor starting",
		zap.Int("workers", cfg.Workers),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("queue_depth", cfg.QueueDepth),
		zap.Bool("ordered", cfg.Ordered))

	go e.collect(ctx, source, batches)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			e.work(ctx, worker, g, batches, results)
		}(i)
	}

	var out <-chan ExecutionResult = results
	if cfg.Ordered {
		out = Reorder(results)
	}

	go func() {
		wg.Wait()
		close(results)
		e.log.Info("executor finished", zap.Int64("processed", atomic.LoadInt64(&e.stats.Processed)))
	}()

	return out
}

// collect groups source records into batches and enqueues them. The
// enqueue blocks when the queue is full; that blocking is the
// backpressure contract. Cancellation is checked between batches.
func (e *Executor) collect(ctx context.Context, source <-chan *seq.Record, batches chan<- batch) {
	defer close(batches)

	var nextSeq uint64
	cur := batch{records: make([]*seq.Record, 0, e.cfg.BatchSize), firstSeq: 0}

	flush := func() bool {
		if len(cur.records) == 0 {
			return true
		}
		if e.collector != nil {
			e.collector.BatchQueueDepth.Inc()
		}
		select {
		case batches <- cur:
		case <-ctx.Done():
			if e.collector != nil {
				e.collector.BatchQueueDepth.Dec()
			}
			return false
		}
		cur = batch{records: make([]*seq.Record, 0, e.cfg.BatchSize), firstSeq: nextSeq}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			e.log.Warn("input collection cancelled", zap.Uint64("records_seen", nextSeq))
			return
		case rec, open := <-source:
			if !open {
				flush()
				return
			}
			cur.records = append(cur.records, rec)
			nextSeq++
			if len(cur.records) >= e.cfg.BatchSize {
				if !flush() {
					return
				}
			}
		}
	}
}

// work processes whole batches. The cancellation check sits at the
// batch boundary only; records of a claimed batch always run to
// completion so no partially written regions escape.
func (e *Executor) work(ctx context.Context, worker int, g *graph.SealedGraph, batches <-chan batch, results chan<- ExecutionResult) {
	log := logger.WithContext(context.WithValue(ctx, logger.WorkerKey, worker), e.log)
	for b := range batches {
		if e.collector != nil {
			e.collector.BatchQueueDepth.Dec()
		}
		select {
		case <-ctx.Done():
			log.Debug("worker observed cancellation", zap.Uint64("first_seq", b.firstSeq))
			return
		default:
		}

		if e.collector != nil {
			e.collector.ActiveWorkers.Inc()
		}
		start := time.Now()
		for i, rec := range b.records {
			out := g.Process(rec)
			e.count(out.Status)
			results <- ExecutionResult{Outcome: out, Seq: b.firstSeq + uint64(i)}
		}
		atomic.AddInt64(&e.stats.Batches, 1)
		if e.collector != nil {
			e.collector.ObserveBatch(time.Since(start).Seconds())
			e.collector.ActiveWorkers.Dec()
		}
	}
}

func (e *Executor) count(status graph.Status) {
	atomic.AddInt64(&e.stats.Processed, 1)
	switch status {
	case graph.Accepted:
		atomic.AddInt64(&e.stats.Accepted, 1)
	case graph.Discarded:
		atomic.AddInt64(&e.stats.Discarded, 1)
	case graph.Errored:
		atomic.AddInt64(&e.stats.Errored, 1)
	}
	if e.collector != nil {
		e.collector.ObserveRecord(status.String())
	}
}
