package stresstest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/ksuid"
	"github.com/studiowebux/reqproc/internal/queue"
	"github.com/studiowebux/reqproc/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// RequestQueueCapacity keeps the generator at most one request ahead of the workers
	RequestQueueCapacity = 1
)

// ErrHistory wraps failures of the run history database
var ErrHistory = errors.New("run history")

// Option configures an Executor
type Option func(*Executor)

// WithLogger sets the logger (default: no-op)
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgress sets the progress sink (default: discard)
func WithProgress(sink ProgressSink) Option {
	return func(e *Executor) {
		if sink != nil {
			e.progress = sink
		}
	}
}

// WithMetrics sets the metrics the pipeline reports to (default: a private set)
func WithMetrics(metrics *Metrics) Option {
	return func(e *Executor) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

// WithHistory records the run and its samples through manager
func WithHistory(manager *Manager) Option {
	return func(e *Executor) {
		e.manager = manager
	}
}

// Executor owns one pipeline run: generator, worker pool and collector, the
// two queues between them and the shared stop flag. Every goroutine of the
// run is started here.
type Executor struct {
	config   *Config
	sink     io.Writer
	logger   *zap.Logger
	progress ProgressSink
	metrics  *Metrics
	manager  *Manager
	run      *Run

	stop      StopFlag
	requests  *queue.Bounded[types.Request]
	responses *queue.Bounded[types.Response]
	generator *generator
	pool      *pool
	collector *collector

	group     errgroup.Group
	startOnce sync.Once
	cancelRun context.CancelFunc
	testStart time.Time
	done      atomic.Bool
	result    *Result
}

// NewExecutor creates a pipeline executor writing its report to sink
func NewExecutor(config *Config, sink io.Writer, opts ...Option) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if sink == nil {
		return nil, fmt.Errorf("report sink is required")
	}

	requests, err := queue.New[types.Request](RequestQueueCapacity)
	if err != nil {
		return nil, err
	}
	responses, err := queue.New[types.Response](config.Workers)
	if err != nil {
		return nil, err
	}

	e := &Executor{
		config:    config,
		sink:      sink,
		logger:    zap.NewNop(),
		progress:  nopProgress{},
		requests:  requests,
		responses: responses,
		run: &Run{
			RunKey:       ksuid.New().String(),
			ResponseSize: config.ResponseSize,
			RequestCount: config.RequestCount,
			WorkerCount:  config.Workers,
			Status:       StatusRunning,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics()
	}

	e.generator = &generator{
		total:    config.RequestCount,
		step:     config.ProgressStep(),
		requests: requests,
		stop:     &e.stop,
		progress: e.progress,
		metrics:  e.metrics,
		logger:   e.logger,
	}
	e.pool = &pool{
		size:         config.Workers,
		responseSize: config.ResponseSize,
		requests:     requests,
		responses:    responses,
		stop:         &e.stop,
		progress:     e.progress,
		metrics:      e.metrics,
	}
	e.collector = &collector{
		total:     config.RequestCount,
		timeout:   config.GetDrainTimeout(),
		responses: responses,
		stop:      &e.stop,
		sink:      sink,
		stopPool:  e.pool.shutdown,
		progress:  e.progress,
		metrics:   e.metrics,
		logger:    e.logger,
		samples:   make([]int64, 0, config.RequestCount),
	}

	return e, nil
}

// Start launches the collector, the generator and the worker pool.
// Cancelling ctx interrupts the run; the collector still finalizes and writes
// a (partial) report. Calling Start more than once has no effect.
func (e *Executor) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		e.testStart = time.Now()
		e.run.StartedAt = e.testStart

		if e.manager != nil {
			if err := e.manager.CreateRun(e.run); err != nil {
				e.logger.Warn("Failed to create run record", zap.Error(err))
			}
		}

		e.logger.Info("Starting pipeline",
			zap.String("run", e.run.RunKey),
			zap.Int("requests", e.config.RequestCount),
			zap.Int("workers", e.config.Workers),
			zap.Int("response_size", e.config.ResponseSize),
			zap.Duration("drain_timeout", e.config.GetDrainTimeout()))

		runCtx, cancel := context.WithCancel(ctx)
		e.cancelRun = cancel

		e.pool.start(runCtx)
		e.group.Go(func() error {
			e.generator.run(runCtx)
			return nil
		})
		e.group.Go(func() error {
			return e.collect(runCtx)
		})
	})
}

// Run starts the pipeline and waits for its result
func (e *Executor) Run(ctx context.Context) (*Result, error) {
	e.Start(ctx)
	return e.Wait()
}

// Wait blocks until the report is written and every goroutine of the run has
// returned. The error is non-nil when the report sink failed or, wrapped in
// ErrHistory, when the run could not be recorded.
func (e *Executor) Wait() (*Result, error) {
	err := e.group.Wait()
	return e.result, err
}

// Stop interrupts a started run. Workers and generator stop right away; the
// collector aborts after one empty drain window.
func (e *Executor) Stop() {
	if e.cancelRun != nil {
		e.cancelRun()
	}
}

// collect runs the collector, releases a generator still blocked on the
// request queue and records the result.
func (e *Executor) collect(ctx context.Context) error {
	outcome := e.collector.drain(ctx)
	summary, line, reportErr := e.collector.finalize(outcome)
	e.cancelRun()

	result := &Result{
		RunKey:      e.run.RunKey,
		Outcome:     outcome,
		Requested:   e.config.RequestCount,
		Generated:   e.generator.count(),
		Processed:   e.collector.count(),
		Samples:     e.collector.samples,
		Summary:     summary,
		SummaryLine: line,
		StartedAt:   e.testStart,
		FinishedAt:  time.Now(),
	}
	e.result = result
	e.done.Store(true)

	fields := []zap.Field{
		zap.String("run", result.RunKey),
		zap.String("outcome", string(outcome)),
		zap.Int("processed", result.Processed),
		zap.Int("requested", result.Requested),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	}
	switch {
	case reportErr != nil:
		e.logger.Error("Failed to write report", append(fields, zap.Error(reportErr))...)
	case result.Partial():
		e.logger.Warn("Partial result", append(fields, zap.String("summary", line))...)
	default:
		e.logger.Info("Run finished", append(fields, zap.String("summary", line))...)
	}

	status := string(outcome)
	if reportErr != nil {
		status = StatusFailed
	}

	return errors.Join(reportErr, e.record(result, status))
}

// record stores the finished run and its samples
func (e *Executor) record(result *Result, status string) error {
	if e.manager == nil {
		return nil
	}

	finishedAt := result.FinishedAt
	e.run.CompletedAt = &finishedAt
	e.run.Status = status
	e.run.TotalGenerated = result.Generated
	e.run.TotalProcessed = result.Processed
	e.run.AvgDurationMs = result.Summary.Average
	e.run.MedianDurationMs = result.Summary.Median
	e.run.MinDurationMs = result.Summary.Min
	e.run.MaxDurationMs = result.Summary.Max
	e.run.P95DurationMs = result.Summary.P95
	e.run.P99DurationMs = result.Summary.P99

	if e.run.ID == 0 {
		if err := e.manager.CreateRun(e.run); err != nil {
			return fmt.Errorf("%w: %w", ErrHistory, err)
		}
	} else if err := e.manager.UpdateRun(e.run); err != nil {
		return fmt.Errorf("%w: failed to update run record: %w", ErrHistory, err)
	}

	if err := e.manager.SaveSamplesBatch(e.run.ID, result.Samples); err != nil {
		return fmt.Errorf("%w: %w", ErrHistory, err)
	}

	return nil
}

// Snapshot returns the current progress (safe to call from any goroutine)
func (e *Executor) Snapshot() Snapshot {
	var elapsed time.Duration
	if !e.testStart.IsZero() {
		elapsed = time.Since(e.testStart)
	}

	return Snapshot{
		RunKey:        e.run.RunKey,
		Total:         e.config.RequestCount,
		Generated:     e.generator.count(),
		Processed:     e.collector.count(),
		ActiveWorkers: e.pool.activeWorkers(),
		Stopped:       e.stop.IsSignaled(),
		Done:          e.done.Load(),
		Elapsed:       elapsed,
	}
}

// GetRun returns the run record
func (e *Executor) GetRun() *Run {
	return e.run
}
