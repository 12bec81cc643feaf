// Package workpool runs a fixed set of independent tasks on a bounded
// number of goroutines under a shared wall-clock deadline.
//
// It backs both levels of the pipeline: the per-specimen enrichment fan-out
// and the per-batch record/file fan-out. A task failure never cancels its
// siblings. When the deadline elapses Run stops waiting, cancels the
// context handed to the tasks still in flight, and reports them as
// cancelled; anything they produce afterwards is discarded.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work.
type Task[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Status is the terminal state of a task.
type Status int

// Task states.
const (
	StatusCancelled Status = iota
	StatusDone
	StatusFailed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "cancelled"
	}
}

// Outcome is what one task produced.
type Outcome[T any] struct {
	Index   int
	Name    string
	Status  Status
	Value   T
	Err     error
	Elapsed time.Duration
}

// Result holds one outcome per submitted task, in submission order.
type Result[T any] struct {
	Outcomes []Outcome[T]
	// TimedOut is set when the deadline elapsed before every task finished.
	TimedOut bool
	Elapsed  time.Duration
}

// Count returns how many outcomes have the given status.
func (r *Result[T]) Count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Pool bounds concurrency and wall-clock time for one Run.
type Pool struct {
	// Limit is the maximum number of concurrently running tasks. Zero or a
	// value above the task count means one goroutine per task.
	Limit int
	// Deadline bounds the whole run. Zero means no deadline beyond ctx.
	Deadline time.Duration
}

// size returns the effective worker count for n tasks.
func (p Pool) size(n int) int {
	if p.Limit <= 0 || p.Limit > n {
		return n
	}
	return p.Limit
}

// ErrNotStarted marks tasks that were never scheduled before the deadline.
var ErrNotStarted = errors.New("task not started before deadline")

// Run executes tasks and blocks until all complete or the deadline elapses,
// whichever comes first.
func Run[T any](ctx context.Context, p Pool, tasks []Task[T]) *Result[T] {
	start := time.Now()
	res := &Result[T]{Outcomes: make([]Outcome[T], len(tasks))}
	for i, t := range tasks {
		res.Outcomes[i] = Outcome[T]{Index: i, Name: t.Name, Status: StatusCancelled, Err: ErrNotStarted}
	}
	if len(tasks) == 0 {
		return res
	}

	runCtx, cancel := context.WithCancel(ctx)
	if p.Deadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.Deadline)
	}
	defer cancel()

	var (
		mu     sync.Mutex
		closed bool
	)
	record := func(i int, value T, err error, elapsed time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		o := &res.Outcomes[i]
		o.Elapsed = elapsed
		switch {
		case err == nil:
			o.Status, o.Value, o.Err = StatusDone, value, nil
		case runCtx.Err() != nil && isContextErr(err):
			o.Status, o.Err = StatusCancelled, err
		default:
			o.Status, o.Err = StatusFailed, err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var g errgroup.Group
		g.SetLimit(p.size(len(tasks)))
		for i, task := range tasks {
			if runCtx.Err() != nil {
				break
			}
			g.Go(func() error {
				if runCtx.Err() != nil {
					return nil
				}
				began := time.Now()
				value, err := safeRun(runCtx, task)
				record(i, value, err, time.Since(began))
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-runCtx.Done():
		select {
		case <-done:
		default:
			res.TimedOut = true
		}
	}

	mu.Lock()
	closed = true
	mu.Unlock()

	res.Elapsed = time.Since(start)
	return res
}

// safeRun converts a panicking task into a failed outcome.
func safeRun[T any](ctx context.Context, task Task[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
