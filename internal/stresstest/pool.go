package stresstest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/studiowebux/reqproc/internal/queue"
	"github.com/studiowebux/reqproc/internal/types"
	"github.com/studiowebux/reqproc/internal/workload"
)

// pool is a fixed set of workers moving requests to responses
type pool struct {
	size         int
	responseSize int
	requests     *queue.Bounded[types.Request]
	responses    *queue.Bounded[types.Response]
	stop         *StopFlag
	progress     ProgressSink
	metrics      *Metrics

	wg       sync.WaitGroup
	cancel   context.CancelFunc
	stopOnce sync.Once
	active   atomic.Int32 // Workers still in their loop
}

// start launches the workers. They run until their context is cancelled.
func (p *pool) start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.active.Store(int32(p.size))
	for i := 1; i <= p.size; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// shutdown force-stops the pool: in-flight work is abandoned and queued
// requests stay in the queue. It returns once every worker has exited.
func (p *pool) shutdown() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
	})
	p.wg.Wait()
}

// worker pops a request, runs the workload and pushes the response.
// A cancelled pop or push signals the stop flag and ends this worker for good.
func (p *pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	defer p.exit(id)

	for {
		req, err := p.requests.Pop(ctx)
		if err != nil {
			p.stop.Signal()
			return
		}

		value, fingerprint := workload.Produce(req.Index, p.responseSize)
		resp := types.NewResponse(req, time.Now(), value, fingerprint)

		if err := p.responses.Push(ctx, resp); err != nil {
			p.stop.Signal()
			return
		}
	}
}

func (p *pool) exit(id int) {
	remaining := p.active.Add(-1)
	p.metrics.workerExits.Inc()
	p.progress.Progress(ProgressEvent{
		Stage:   StageWorkerDone,
		Message: fmt.Sprintf("finished processing requests (worker %d, %d still running)", id, remaining),
		Worker:  id,
	})
}

func (p *pool) activeWorkers() int {
	return int(p.active.Load())
}
