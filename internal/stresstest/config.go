package stresstest

import (
	"fmt"
	"time"
)

const (
	// DefaultDrainTimeout is how long the collector waits for a response before checking the stop flag
	DefaultDrainTimeout = 5 * time.Second

	// MaxWorkers caps the worker pool size
	MaxWorkers = 10000
	// MaxResponseSize caps the generated value length (characters)
	MaxResponseSize = 64 << 20

	// progressSteps is the number of progress events emitted while generating (every 5%)
	progressSteps = 20
)

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
	StatusFailed    = "failed"
)

// Config represents a pipeline run configuration
type Config struct {
	ResponseSize int           // Characters per generated value
	RequestCount int           // Total requests to generate
	Workers      int           // Worker pool size
	DrainTimeout time.Duration // Collector wait per response (default: 5s)
}

// Run represents a recorded pipeline run
type Run struct {
	ID               int64      `json:"id" yaml:"id"`
	RunKey           string     `json:"runKey" yaml:"runKey"`
	ResponseSize     int        `json:"responseSize" yaml:"responseSize"`
	RequestCount     int        `json:"requestCount" yaml:"requestCount"`
	WorkerCount      int        `json:"workerCount" yaml:"workerCount"`
	StartedAt        time.Time  `json:"startedAt" yaml:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	Status           string     `json:"status" yaml:"status"` // "running", "completed", "aborted", "failed"
	TotalGenerated   int        `json:"totalGenerated" yaml:"totalGenerated"`
	TotalProcessed   int        `json:"totalProcessed" yaml:"totalProcessed"`
	AvgDurationMs    int64      `json:"avgDurationMs" yaml:"avgDurationMs"`
	MedianDurationMs int64      `json:"medianDurationMs" yaml:"medianDurationMs"`
	MinDurationMs    int64      `json:"minDurationMs" yaml:"minDurationMs"`
	MaxDurationMs    int64      `json:"maxDurationMs" yaml:"maxDurationMs"`
	P95DurationMs    int64      `json:"p95DurationMs" yaml:"p95DurationMs"`
	P99DurationMs    int64      `json:"p99DurationMs" yaml:"p99DurationMs"`
}

// Validate validates the pipeline configuration.
// A zero RequestCount is accepted and yields an empty report.
func (c *Config) Validate() error {
	if c.ResponseSize <= 0 {
		return fmt.Errorf("response size must be greater than 0")
	}
	if c.ResponseSize > MaxResponseSize {
		return fmt.Errorf("response size cannot exceed %d", MaxResponseSize)
	}
	if c.RequestCount < 0 {
		return fmt.Errorf("request count cannot be negative")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("worker count must be greater than 0")
	}
	if c.Workers > MaxWorkers {
		return fmt.Errorf("worker count cannot exceed %d", MaxWorkers)
	}
	if c.DrainTimeout < 0 {
		return fmt.Errorf("drain timeout cannot be negative")
	}
	return nil
}

// GetDrainTimeout returns the collector drain timeout
func (c *Config) GetDrainTimeout() time.Duration {
	if c.DrainTimeout == 0 {
		return DefaultDrainTimeout
	}
	return c.DrainTimeout
}

// ProgressStep returns how many requests separate two generator progress events
func (c *Config) ProgressStep() int {
	step := c.RequestCount / progressSteps
	if step < 1 {
		return 1
	}
	return step
}

// IsRunning returns true if the run is currently in progress
func (r *Run) IsRunning() bool {
	return r.Status == StatusRunning
}

// IsCompleted returns true if the run has finished
func (r *Run) IsCompleted() bool {
	return r.Status == StatusCompleted || r.Status == StatusAborted || r.Status == StatusFailed
}
