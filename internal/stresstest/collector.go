package stresstest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/studiowebux/reqproc/internal/queue"
	"github.com/studiowebux/reqproc/internal/types"
	"go.uber.org/zap"
)

// Outcome is how the collector left the draining state
type Outcome string

const (
	// OutcomeCompleted means every requested response was collected
	OutcomeCompleted Outcome = "completed"
	// OutcomeAborted means the stop flag was set and the queue stayed empty for a full drain window
	OutcomeAborted Outcome = "aborted"
)

// Result is the outcome of a finished run
type Result struct {
	RunKey      string
	Outcome     Outcome
	Requested   int
	Generated   int
	Processed   int
	Samples     []int64 // Latencies in ms, sorted ascending
	Summary     Summary // Zero when no samples were collected
	SummaryLine string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Partial reports whether fewer responses than requested were collected
func (r *Result) Partial() bool {
	return r.Processed < r.Requested
}

// collector drains the response queue until it has every response or the
// pipeline is known to be dead, then finalizes the run.
// The sample slice belongs to the collector alone.
type collector struct {
	total     int
	timeout   time.Duration
	responses *queue.Bounded[types.Response]
	stop      *StopFlag
	sink      io.Writer
	stopPool  func()
	progress  ProgressSink
	metrics   *Metrics
	logger    *zap.Logger

	samples   []int64
	processed atomic.Int64
}

// drain collects responses. It returns OutcomeCompleted once total responses
// arrived, or OutcomeAborted when a wait times out with the stop flag set.
// A timeout with the flag clear means the workers are just slow.
func (c *collector) drain(ctx context.Context) Outcome {
	for c.count() < c.total {
		resp, err := c.responses.PopTimeout(ctx, c.timeout)
		switch {
		case err == nil:
			latency := resp.LatencyMs()
			c.samples = append(c.samples, latency)
			c.processed.Add(1)
			c.metrics.observeResponse(latency)

		case errors.Is(err, queue.ErrTimeout):
			c.metrics.drainTimeouts.Inc()
			if c.stop.IsSignaled() {
				return OutcomeAborted
			}
			c.logger.Debug("No response within drain window, workers still running",
				zap.Duration("timeout", c.timeout),
				zap.Int("processed", c.count()))

		default:
			// Caller cancelled: the pipeline will not finish, but whatever is
			// already queued is still drained before giving up.
			c.stop.Signal()
			ctx = context.WithoutCancel(ctx)
		}
	}
	return OutcomeCompleted
}

// finalize force-stops the pool, sorts the samples and writes the report.
// Only a sink failure is returned.
func (c *collector) finalize(outcome Outcome) (Summary, string, error) {
	c.stopPool()

	processed := c.count()
	c.progress.Progress(ProgressEvent{
		Stage:     StageCollectorDone,
		Message:   fmt.Sprintf("finished collecting responses (%s), processed %d", outcome, processed),
		Processed: processed,
		Total:     c.total,
	})
	c.metrics.observeOutcome(outcome)

	SortSamples(c.samples)
	summary, _ := ComputeSummary(c.samples)

	line, err := WriteReport(c.sink, c.samples)
	if err != nil {
		return summary, "", fmt.Errorf("failed to write report: %w", err)
	}

	c.progress.Progress(ProgressEvent{
		Stage:     StageSummary,
		Message:   line,
		Processed: processed,
		Total:     c.total,
	})

	return summary, line, nil
}

func (c *collector) count() int {
	return int(c.processed.Load())
}
