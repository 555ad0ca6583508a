package stresstest

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/studiowebux/reqproc/internal/queue"
	"github.com/studiowebux/reqproc/internal/types"
	"github.com/studiowebux/reqproc/internal/workload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestGenerator(t *testing.T, total int) (*generator, *queue.Bounded[types.Request], *StopFlag) {
	t.Helper()

	requests, err := queue.New[types.Request](RequestQueueCapacity)
	require.NoError(t, err)

	stop := &StopFlag{}
	cfg := &Config{RequestCount: total}
	return &generator{
		total:    total,
		step:     cfg.ProgressStep(),
		requests: requests,
		stop:     stop,
		progress: nopProgress{},
		metrics:  NewMetrics(),
		logger:   zap.NewNop(),
	}, requests, stop
}

func TestGenerator_AscendingUniqueIndices(t *testing.T) {
	const total = 200
	g, requests, stop := newTestGenerator(t, total)

	done := make(chan struct{})
	go func() {
		g.run(context.Background())
		close(done)
	}()

	var prev time.Time
	for i := 0; i < total; i++ {
		req, err := requests.PopTimeout(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, i, req.Index)
		assert.False(t, req.CreatedAt.Before(prev))
		assert.LessOrEqual(t, requests.Len(), 1)
		prev = req.CreatedAt
	}

	<-done
	assert.Equal(t, total, g.count())
	assert.False(t, stop.IsSignaled())
	assert.Equal(t, float64(total), testutil.ToFloat64(g.metrics.requestsGenerated))

	_, err := requests.PopTimeout(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, queue.ErrTimeout)
}

func TestGenerator_CancelledPushSignalsStop(t *testing.T) {
	g, requests, stop := newTestGenerator(t, 10)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		g.run(ctx)
		close(done)
	}()

	// Take two requests, then leave the generator blocked on a full queue
	for i := 0; i < 2; i++ {
		_, err := requests.PopTimeout(context.Background(), time.Second)
		require.NoError(t, err)
	}
	require.Eventually(t, func() bool { return requests.Len() == 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("generator did not stop after cancellation")
	}

	assert.True(t, stop.IsSignaled())
	assert.Equal(t, 3, g.count())
}

func TestGenerator_ProgressEvents(t *testing.T) {
	const total = 100
	g, requests, _ := newTestGenerator(t, total)

	var events []ProgressEvent
	g.progress = ProgressFunc(func(ev ProgressEvent) {
		events = append(events, ev)
	})

	go func() {
		for i := 0; i < total; i++ {
			requests.Pop(context.Background())
		}
	}()
	g.run(context.Background())

	// Every 5% (indices 0, 5, ..., 95), the final index, then the termination event
	require.Len(t, events, 22)
	assert.Equal(t, StageGenerating, events[0].Stage)
	assert.Equal(t, 1, events[0].Generated)
	assert.Equal(t, total, events[20].Generated)
	assert.Equal(t, StageGeneratorDone, events[21].Stage)
}

func TestPool_EveryIndexProcessedOnce(t *testing.T) {
	const total = 500
	const workers = 4
	const responseSize = 16

	g, requests, stop := newTestGenerator(t, total)
	responses, err := queue.New[types.Response](workers)
	require.NoError(t, err)

	p := &pool{
		size:         workers,
		responseSize: responseSize,
		requests:     requests,
		responses:    responses,
		stop:         stop,
		progress:     nopProgress{},
		metrics:      g.metrics,
	}

	ctx := context.Background()
	p.start(ctx)
	go g.run(ctx)

	indices := make([]int, 0, total)
	for i := 0; i < total; i++ {
		resp, err := responses.PopTimeout(ctx, 5*time.Second)
		require.NoError(t, err)
		require.LessOrEqual(t, responses.Len(), workers)

		value, fp := workload.Produce(resp.Index, responseSize)
		assert.Equal(t, value, resp.Value)
		assert.Equal(t, fp, resp.Fingerprint)
		assert.GreaterOrEqual(t, resp.Latency, time.Duration(0))
		assert.Equal(t, resp.FinishedAt.Sub(resp.StartedAt), resp.Latency)

		indices = append(indices, resp.Index)
	}

	p.shutdown()
	assert.Equal(t, 0, p.activeWorkers())
	assert.Equal(t, float64(workers), testutil.ToFloat64(p.metrics.workerExits))

	sort.Ints(indices)
	for i, idx := range indices {
		require.Equal(t, i, idx)
	}
}

func TestPool_ShutdownSignalsStop(t *testing.T) {
	requests, err := queue.New[types.Request](1)
	require.NoError(t, err)
	responses, err := queue.New[types.Response](2)
	require.NoError(t, err)

	stop := &StopFlag{}
	p := &pool{
		size:         2,
		responseSize: 4,
		requests:     requests,
		responses:    responses,
		stop:         stop,
		progress:     nopProgress{},
		metrics:      NewMetrics(),
	}

	p.start(context.Background())
	assert.Equal(t, 2, p.activeWorkers())

	p.shutdown()
	p.shutdown()

	assert.True(t, stop.IsSignaled())
	assert.Equal(t, 0, p.activeWorkers())
}
