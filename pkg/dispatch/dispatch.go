// Package dispatch runs the per-record pipeline over a batch of records or
// archive files with bounded parallelism and an overall deadline.
//
// Items are independent: one failing record or file never affects the
// others, and results come back in no particular order. When the deadline
// elapses the batch stops waiting, logs a warning and returns whatever
// finished.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentstation/specimap/pkg/errors"
	"github.com/agentstation/specimap/pkg/logging"
	"github.com/agentstation/specimap/pkg/reconcile"
	"github.com/agentstation/specimap/pkg/specimen"
	"github.com/agentstation/specimap/pkg/workpool"
)

// Result is the fate of one record.
type Result struct {
	// Source locates the record, "index 3" or "file.jsonl:12".
	Source  string            `json:"source" yaml:"source"`
	Outcome reconcile.Outcome `json:"outcome" yaml:"outcome"`
	Err     error             `json:"-" yaml:"-"`
	// Error mirrors Err for serialisation.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the record failed outright.
func (r Result) Failed() bool { return r.Err != nil }

func failed(source string, err error) Result {
	return Result{Source: source, Err: err, Error: err.Error()}
}

// Reader streams the records of one archive file to fn. Returning an error
// from fn stops the walk.
type Reader interface {
	Each(ctx context.Context, path string, fn func(line int, r *specimen.Record) error) error
}

// Dispatcher fans records or files out to a Processor.
type Dispatcher struct {
	processor Processor
	reader    Reader
}

// New creates a dispatcher. reader is only needed for ProcessFiles.
func New(processor Processor, reader Reader) *Dispatcher {
	return &Dispatcher{processor: processor, reader: reader}
}

// ProcessAll processes records on min(maxParallelism, len(records))
// workers. Records that had not finished by the deadline are reported as
// failed with a timeout error.
func (d *Dispatcher) ProcessAll(ctx context.Context, records []*specimen.Record, maxParallelism int, deadline time.Duration) []Result {
	tasks := make([]workpool.Task[Result], len(records))
	for i, r := range records {
		source := fmt.Sprintf("index %d", i)
		tasks[i] = workpool.Task[Result]{
			Name: source,
			Run: func(ctx context.Context) (Result, error) {
				return d.processOne(ctx, source, r), nil
			},
		}
	}

	res := workpool.Run(ctx, workpool.Pool{Limit: maxParallelism, Deadline: deadline}, tasks)
	d.warnTimeout(ctx, res.TimedOut, deadline, res.Count(workpool.StatusCancelled), len(tasks))

	results := make([]Result, 0, len(tasks))
	for _, o := range res.Outcomes {
		switch o.Status {
		case workpool.StatusDone:
			results = append(results, o.Value)
		case workpool.StatusCancelled:
			results = append(results, failed(o.Name, timeoutError(deadline)))
		default:
			results = append(results, failed(o.Name, o.Err))
		}
	}
	return results
}

// FileResult is the fate of one archive file.
type FileResult struct {
	Path    string   `json:"path" yaml:"path"`
	Results []Result `json:"results" yaml:"results"`
	Err     error    `json:"-" yaml:"-"`
	Error   string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProcessFiles processes archive files on min(maxParallelism, len(paths))
// workers. Records within a file are streamed and processed in order.
func (d *Dispatcher) ProcessFiles(ctx context.Context, paths []string, maxParallelism int, deadline time.Duration) []FileResult {
	if d.reader == nil {
		out := make([]FileResult, len(paths))
		for i, p := range paths {
			err := &errors.ConfigError{Component: "dispatch", Message: "no archive reader configured"}
			out[i] = FileResult{Path: p, Err: err, Error: err.Error()}
		}
		return out
	}

	// Progress outlives the pool so records a file finished before the
	// deadline are reported even when the file itself was cut off.
	progress := make([]*fileProgress, len(paths))
	tasks := make([]workpool.Task[FileResult], len(paths))
	for i, path := range paths {
		progress[i] = &fileProgress{}
		tasks[i] = workpool.Task[FileResult]{
			Name: path,
			Run: func(ctx context.Context) (FileResult, error) {
				return d.processFile(ctx, path, progress[i]), nil
			},
		}
	}

	res := workpool.Run(ctx, workpool.Pool{Limit: maxParallelism, Deadline: deadline}, tasks)
	d.warnTimeout(ctx, res.TimedOut, deadline, res.Count(workpool.StatusCancelled), len(tasks))

	out := make([]FileResult, 0, len(tasks))
	for _, o := range res.Outcomes {
		switch o.Status {
		case workpool.StatusDone:
			out = append(out, o.Value)
		default:
			err := o.Err
			if o.Status == workpool.StatusCancelled {
				err = timeoutError(deadline)
			}
			out = append(out, FileResult{
				Path:    o.Name,
				Results: progress[o.Index].snapshot(),
				Err:     err,
				Error:   err.Error(),
			})
		}
	}
	return out
}

// fileProgress collects the results of one file as they complete.
type fileProgress struct {
	mu      sync.Mutex
	results []Result
}

func (p *fileProgress) add(r Result) {
	p.mu.Lock()
	p.results = append(p.results, r)
	p.mu.Unlock()
}

func (p *fileProgress) snapshot() []Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Result(nil), p.results...)
}

func (d *Dispatcher) processFile(ctx context.Context, path string, progress *fileProgress) FileResult {
	ctx = logging.WithFile(ctx, path)
	logger := logging.FromContext(ctx)
	logger.Info().Msg("Processing archive file")

	fr := FileResult{Path: path}
	err := d.reader.Each(ctx, path, func(line int, r *specimen.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		progress.add(d.processOne(ctx, fmt.Sprintf("%s:%d", path, line), r))
		return nil
	})
	fr.Results = progress.snapshot()
	if err != nil {
		logger.Error().Err(err).Int("processed", len(fr.Results)).Msg("Archive file aborted")
		fr.Err, fr.Error = err, err.Error()
	}
	return fr
}

// processOne isolates one record's failure from the batch.
func (d *Dispatcher) processOne(ctx context.Context, source string, r *specimen.Record) (result Result) {
	defer func() {
		if p := recover(); p != nil {
			result = failed(source, fmt.Errorf("panic processing %s: %v", source, p))
			logging.FromContext(ctx).Error().Str("source", source).Interface("panic", p).Msg("Record pipeline panicked")
		}
	}()

	out, err := d.processor.Process(ctx, r)
	if err != nil {
		logging.FromContext(ctx).Error().Err(err).Str("source", source).Msg("Record failed")
		return failed(source, err)
	}
	return Result{Source: source, Outcome: out}
}

func (d *Dispatcher) warnTimeout(ctx context.Context, timedOut bool, deadline time.Duration, cancelled, total int) {
	if !timedOut {
		return
	}
	logging.FromContext(ctx).Warn().
		Dur("deadline", deadline).
		Int("unfinished", cancelled).
		Int("total", total).
		Msg("Batch deadline elapsed, keeping completed work")
}

func timeoutError(deadline time.Duration) error {
	return errors.NewTimeoutError("batch", deadline.String(), "item did not finish before the batch deadline")
}
