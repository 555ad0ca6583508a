package stresstest

import (
	"time"

	"go.uber.org/zap"
)

// ProgressStage identifies what a progress event reports
type ProgressStage string

const (
	StageGenerating    ProgressStage = "generating"
	StageGeneratorDone ProgressStage = "generator-done"
	StageWorkerDone    ProgressStage = "worker-done"
	StageCollectorDone ProgressStage = "collector-done"
	StageSummary       ProgressStage = "summary"
)

// ProgressEvent is a human-readable status update from one pipeline task
type ProgressEvent struct {
	Stage     ProgressStage
	Message   string
	Worker    int // Worker ID for StageWorkerDone, 0 otherwise
	Generated int
	Processed int
	Total     int
}

// ProgressSink receives progress events.
// Implementations must be safe for concurrent use: events arrive from the
// generator, every worker and the collector.
type ProgressSink interface {
	Progress(ProgressEvent)
}

// ProgressFunc adapts a function to ProgressSink
type ProgressFunc func(ProgressEvent)

// Progress calls f(ev)
func (f ProgressFunc) Progress(ev ProgressEvent) {
	f(ev)
}

type nopProgress struct{}

func (nopProgress) Progress(ProgressEvent) {}

// LogProgress writes progress events as structured log entries
type LogProgress struct {
	logger *zap.Logger
}

// NewLogProgress creates a progress sink backed by logger
func NewLogProgress(logger *zap.Logger) *LogProgress {
	return &LogProgress{logger: logger}
}

// Progress logs ev. Per-worker exits are debug level, everything else info.
func (p *LogProgress) Progress(ev ProgressEvent) {
	fields := []zap.Field{
		zap.String("stage", string(ev.Stage)),
		zap.Int("generated", ev.Generated),
		zap.Int("processed", ev.Processed),
		zap.Int("total", ev.Total),
	}
	if ev.Stage == StageWorkerDone {
		p.logger.Debug(ev.Message, append(fields, zap.Int("worker", ev.Worker))...)
		return
	}
	p.logger.Info(ev.Message, fields...)
}

// Snapshot is a point-in-time view of a running pipeline
type Snapshot struct {
	RunKey        string
	Total         int
	Generated     int
	Processed     int
	ActiveWorkers int
	Stopped       bool // Stop flag observed
	Done          bool // Report written
	Elapsed       time.Duration
}
