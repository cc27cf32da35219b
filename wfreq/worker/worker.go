// Package worker drains the work queue, counting words of every file into a
// private tally that is merged into the shared table once the queue ends.
package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/wordfreq/wfreq/counter"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/filesystem/common"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/queue"
	"github.com/ZanzyTHEbar/wordfreq/wfreq/tokenizer"

	"github.com/spf13/afero"
)

const readBufferSize = 64 * 1024

// Source hands out work items until it reports queue.ErrEndOfInput
type Source interface {
	Pop(ctx context.Context) (queue.WorkItem, error)
}

// Sink receives the worker's private tally once, at the end
type Sink interface {
	Merge(tally counter.Tally)
}

// Worker consumes files from a Source. Each Worker must run on its own goroutine.
type Worker struct {
	id       int
	source   Source
	sink     Sink
	fs       afero.Fs
	tok      *tokenizer.Tokenizer
	failures *common.FailureLog
	metrics  *common.FileReadMetrics
	docs     *counter.DocIndex
	onFile   func(path string)
}

// Option configures a Worker
type Option func(*Worker)

// WithFs sets the filesystem files are read from. Default is the host filesystem.
func WithFs(fs afero.Fs) Option {
	return func(w *Worker) { w.fs = fs }
}

// WithFailureLog records unreadable files into fl
func WithFailureLog(fl *common.FailureLog) Option {
	return func(w *Worker) { w.failures = fl }
}

// WithMetrics accumulates per file read statistics into m
func WithMetrics(m *common.FileReadMetrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithDocIndex also records which files every word occurs in
func WithDocIndex(d *counter.DocIndex) Option {
	return func(w *Worker) { w.docs = d }
}

// WithProgress calls fn after every consumed file, successful or not.
// fn is called from the worker goroutine.
func WithProgress(fn func(path string)) Option {
	return func(w *Worker) { w.onFile = fn }
}

// New creates a worker that keeps tokens of at least minLen bytes
func New(id int, source Source, sink Sink, minLen int, opts ...Option) *Worker {
	w := &Worker{
		id:     id,
		source: source,
		sink:   sink,
		fs:     afero.NewOsFs(),
		tok:    tokenizer.New(minLen),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.failures == nil {
		w.failures = common.NewFailureLog()
	}
	return w
}

// ID returns the worker number
func (w *Worker) ID() int {
	return w.id
}

// Run pops files until the source is exhausted, then merges the private
// tally into the sink. If ctx ends first, Run returns ctx.Err() and nothing
// is merged.
func (w *Worker) Run(ctx context.Context) error {
	tally := counter.NewTally()
	var docs counter.DocSets
	if w.docs != nil {
		docs = counter.DocSets{}
	}
	files := 0

	for {
		item, err := w.source.Pop(ctx)
		if errors.Is(err, queue.ErrEndOfInput) {
			break
		}
		if err != nil {
			slog.Debug("Worker stopped before end of input",
				"worker", w.id,
				"files", files,
				"error", err)
			return err
		}

		w.consume(string(item), tally, docs)
		files++
		if w.onFile != nil {
			w.onFile(string(item))
		}
	}

	w.sink.Merge(tally)
	if w.docs != nil {
		w.docs.Merge(docs)
	}

	slog.Debug("Worker merged tally",
		"worker", w.id,
		"files", files,
		"distinct", len(tally))
	return nil
}

// consume counts one file into tally. Failures are recorded, never returned:
// an unreadable file must not stop the worker. Counts read before a
// mid-file read error are kept. docs is nil unless document frequencies
// are tracked.
func (w *Worker) consume(path string, tally counter.Tally, docs counter.DocSets) {
	start := time.Now()

	f, err := w.fs.Open(path)
	if err != nil {
		w.failures.Record("open", path, err)
		w.record(start, false, 0, 0, 0)
		return
	}
	defer f.Close()

	dst := tally
	if docs != nil {
		// count the file on its own to learn which words it contains
		dst = counter.NewTally()
		defer w.foldFile(dst, tally, docs)
	}

	bytes, lines, words, err := w.countReader(f, dst)
	if err != nil {
		w.failures.Record("read", path, fmt.Errorf("after %d lines: %w", lines, err))
		w.record(start, false, bytes, lines, words)
		return
	}
	w.record(start, true, bytes, lines, words)
}

func (w *Worker) foldFile(file, tally counter.Tally, docs counter.DocSets) {
	id := w.docs.NextFileID()
	for word, n := range file {
		tally.Add(word, n)
		docs.Add(word, id)
	}
}

func (w *Worker) countReader(r io.Reader, tally counter.Tally) (bytes, lines, words int64, err error) {
	br := bufio.NewReaderSize(r, readBufferSize)
	for {
		line, readErr := br.ReadString('\n')
		if len(line) > 0 {
			bytes += int64(len(line))
			lines++
			words += int64(w.tok.CountLine(line, tally))
		}
		if readErr == io.EOF {
			return bytes, lines, words, nil
		}
		if readErr != nil {
			return bytes, lines, words, readErr
		}
	}
}

func (w *Worker) record(start time.Time, success bool, bytes, lines, words int64) {
	if w.metrics != nil {
		w.metrics.RecordFile(start, success, bytes, lines, words)
	}
}
