// Package wordcount runs a complete count: one producer walks the root and
// queues every regular file, a fixed pool of workers drains the queue into
// private tallies, the tallies merge into a sharded table and the table is
// ranked.
package wordcount

import (
	"context"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/config"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/counter"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/options"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/queue"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/store"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/worker"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

// Result is the outcome of one run
type Result struct {
	RunID       uuid.UUID
	StartedAt   time.Time
	Ranked      []counter.WordCount
	Distinct    int
	TotalWords  uint64
	FilesQueued uint64
	Failures    []*common.FileError
	Metrics     common.FileReadSnapshot
	Shards      []counter.ShardStats
	Traversal   *filesystem.TraversalStats
	Duration    time.Duration
	Archived    bool
}

// Counter owns the configuration of a run. A Counter may be run more than
// once; every Run builds its own queue and table.
type Counter struct {
	cfg              config.CounterConfig
	fs               afero.Fs
	onFile           func(path string)
	runs             store.RunStore
	traversalWorkers int
}

// Option configures a Counter
type Option func(*Counter)

// WithProgress calls fn after every consumed file. fn runs on worker
// goroutines and must be safe for concurrent use.
func WithProgress(fn func(path string)) Option {
	return func(c *Counter) { c.onFile = fn }
}

// WithStore archives every completed run into runs
func WithStore(runs store.RunStore) Option {
	return func(c *Counter) { c.runs = runs }
}

// WithTraversalWorkers bounds how many directories are read at once
func WithTraversalWorkers(n int) Option {
	return func(c *Counter) { c.traversalWorkers = n }
}

// New creates a Counter reading from fs. A nil fs means the host filesystem.
func New(cfg config.CounterConfig, fs afero.Fs, opts ...Option) *Counter {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	c := &Counter{cfg: cfg, fs: fs}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the run parameters
func (c *Counter) Config() config.CounterConfig {
	return c.cfg
}

// Run counts every regular file under the configured root and ranks the
// result. Invalid configuration is returned before any worker starts. An
// unreadable file is recorded in Result.Failures and never fails the run.
// If ctx ends before the workers drain the queue, Run returns ctx's error.
func (c *Counter) Run(ctx context.Context) (*Result, error) {
	if err := c.cfg.Validate(c.fs); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.New()

	table := counter.NewShardedTable(c.cfg.Shards)
	work := queue.New()
	failures := common.NewFailureLog()
	metrics := &common.FileReadMetrics{}
	var docs *counter.DocIndex
	if c.cfg.DocFreq {
		docs = counter.NewDocIndex(c.cfg.Shards)
	}

	slog.Info("Starting word count",
		"run", runID,
		"root", c.cfg.Root,
		"threads", c.cfg.Threads,
		"shards", table.ShardCount())

	workers := pool.New().WithMaxGoroutines(c.cfg.Threads).WithContext(ctx)
	for id := range c.cfg.Threads {
		w := worker.New(id, work, table, c.cfg.MinWordLen,
			worker.WithFs(c.fs),
			worker.WithFailureLog(failures),
			worker.WithMetrics(metrics),
			worker.WithDocIndex(docs),
			worker.WithProgress(c.onFile))
		workers.Go(w.Run)
	}

	traversal, travErr := c.produce(ctx, work)
	// workers only see end of input once the producer is done, failed or not
	work.Close()
	if travErr != nil {
		slog.Error("Traversal failed, counting the files already queued",
			"root", c.cfg.Root,
			"error", travErr)
	}

	if err := workers.Wait(); err != nil {
		return nil, err
	}

	ranked := c.rank(table)
	if docs != nil {
		docs.Annotate(ranked)
	}

	queued, _ := work.Stats()
	result := &Result{
		RunID:       runID,
		StartedAt:   start,
		Ranked:      ranked,
		Distinct:    table.Len(),
		TotalWords:  table.Total(),
		FilesQueued: queued,
		Failures:    failures.Failures(),
		Metrics:     metrics.Snapshot(),
		Shards:      table.Stats(),
		Traversal:   traversal,
		Duration:    time.Since(start),
	}

	slog.Info("Word count completed",
		"run", runID,
		"files", result.FilesQueued,
		"failed", len(result.Failures),
		"distinct", result.Distinct,
		"words", result.TotalWords,
		"duration", common.NewTimeUtils().FormatDuration(result.Duration))

	logLoad(runID, result.Shards, metrics)

	if c.runs != nil {
		if err := c.runs.Save(c.Record(result)); err != nil {
			slog.Error("Failed to archive run", "run", runID, "error", err)
		} else {
			result.Archived = true
		}
	}

	return result, nil
}

// logLoad reports shard balance and read volume at debug level
func logLoad(runID uuid.UUID, shards []counter.ShardStats, reads common.PerformanceMetrics) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	minWords, maxWords := -1, 0
	var adds uint64
	for _, s := range shards {
		if minWords < 0 || s.Words < minWords {
			minWords = s.Words
		}
		maxWords = max(maxWords, s.Words)
		adds += s.Adds
	}

	attrs := []any{
		"run", runID,
		"shards", len(shards),
		"shard_min_words", minWords,
		"shard_max_words", maxWords,
		"shard_adds", adds,
	}
	for k, v := range reads.GetMetrics() {
		attrs = append(attrs, k, v)
	}
	slog.Debug("Run load", attrs...)
}

// rank selects the top entries, restricted to the configured prefix if any
func (c *Counter) rank(table *counter.ShardedTable) []counter.WordCount {
	if c.cfg.Prefix == "" {
		return table.TopM(c.cfg.TopM)
	}
	return counter.NewPrefixIndex(table.Entries()).TopM(c.cfg.Prefix, c.cfg.TopM)
}

// produce walks the root and pushes every regular, non-ignored file
func (c *Counter) produce(ctx context.Context, work *queue.WorkQueue) (*filesystem.TraversalStats, error) {
	traverser := filesystem.NewConcurrentTraverser(ctx, c.fs, options.TraversalOptions{
		Recursive:      true,
		MaxDepth:       c.cfg.MaxDepth,
		WorkerCount:    c.traversalWorkers,
		IgnoreFile:     c.cfg.IgnoreFile,
		IgnorePatterns: c.cfg.Ignore,
	})
	defer traverser.Cleanup()

	return traverser.TraverseDirectory(c.cfg.Root, filesystem.FileHandlerFunc(func(path string) error {
		work.Push(queue.WorkItem(path))
		return nil
	}))
}

// Record converts a result into its archived form
func (c *Counter) Record(r *Result) *store.RunRecord {
	return &store.RunRecord{
		ID:         r.RunID,
		StartedAt:  r.StartedAt,
		Duration:   r.Duration,
		Root:       c.cfg.Root,
		Threads:    c.cfg.Threads,
		TopM:       c.cfg.TopM,
		MinWordLen: c.cfg.MinWordLen,
		Shards:     c.cfg.Shards,
		Distinct:   r.Distinct,
		TotalWords: r.TotalWords,
		FilesRead:  r.Metrics.FilesRead,
		Failures:   len(r.Failures),
		Ranked:     r.Ranked,
	}
}
