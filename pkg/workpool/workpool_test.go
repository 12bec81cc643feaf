package workpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(v int) func(context.Context) (int, error) {
	return func(context.Context) (int, error) { return v, nil }
}

func TestRunCollectsInOrder(t *testing.T) {
	tasks := []Task[int]{
		{Name: "a", Run: value(1)},
		{Name: "b", Run: value(2)},
		{Name: "c", Run: value(3)},
	}
	res := Run(context.Background(), Pool{Limit: 2}, tasks)

	require.Len(t, res.Outcomes, 3)
	assert.False(t, res.TimedOut)
	for i, o := range res.Outcomes {
		assert.Equal(t, i, o.Index)
		assert.Equal(t, StatusDone, o.Status)
		assert.Equal(t, i+1, o.Value)
		assert.NoError(t, o.Err)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	boom := errors.New("boom")
	tasks := []Task[int]{
		{Name: "ok", Run: value(1)},
		{Name: "err", Run: func(context.Context) (int, error) { return 0, boom }},
		{Name: "panic", Run: func(context.Context) (int, error) { panic("kaboom") }},
		{Name: "ok2", Run: value(4)},
	}
	res := Run(context.Background(), Pool{}, tasks)

	assert.Equal(t, 2, res.Count(StatusDone))
	assert.Equal(t, 2, res.Count(StatusFailed))
	assert.ErrorIs(t, res.Outcomes[1].Err, boom)
	assert.Contains(t, res.Outcomes[2].Err.Error(), "kaboom")
	assert.Equal(t, 4, res.Outcomes[3].Value)
}

func TestRunRespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	task := func(context.Context) (int, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return 0, nil
	}
	tasks := make([]Task[int], 10)
	for i := range tasks {
		tasks[i] = Task[int]{Name: "t", Run: task}
	}

	res := Run(context.Background(), Pool{Limit: 3}, tasks)

	assert.Equal(t, 10, res.Count(StatusDone))
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRunDeadlineDiscardsLateResults(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	tasks := []Task[int]{
		{Name: "fast", Run: value(1)},
		{Name: "cooperative", Run: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}},
		{Name: "stubborn", Run: func(context.Context) (int, error) {
			<-release
			return 99, nil
		}},
	}

	start := time.Now()
	res := Run(context.Background(), Pool{Deadline: 50 * time.Millisecond}, tasks)

	assert.Less(t, time.Since(start), 2*time.Second, "Run must return at the deadline")
	assert.True(t, res.TimedOut)
	assert.Equal(t, StatusDone, res.Outcomes[0].Status)
	assert.Equal(t, StatusCancelled, res.Outcomes[1].Status)
	assert.Equal(t, StatusCancelled, res.Outcomes[2].Status)
	assert.Zero(t, res.Outcomes[2].Value)
}

func TestRunEmpty(t *testing.T) {
	res := Run[int](context.Background(), Pool{Limit: 4}, nil)
	assert.Empty(t, res.Outcomes)
	assert.False(t, res.TimedOut)
}

func TestRunParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Run(ctx, Pool{}, []Task[int]{{Name: "a", Run: value(1)}})

	assert.Equal(t, StatusCancelled, res.Outcomes[0].Status)
}
