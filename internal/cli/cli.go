package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/studiowebux/reqproc/internal/config"
	"github.com/studiowebux/reqproc/internal/stresstest"
	"github.com/studiowebux/reqproc/internal/tui"
	"go.uber.org/zap"
)

// RunOptions contains options for running the pipeline in CLI mode
type RunOptions struct {
	Settings *config.Settings
	Logger   *zap.Logger
	Stdout   io.Writer // Summary line; the progress view when it is a terminal
	Stderr   io.Writer
}

// isTerminal checks if w is an interactive terminal (not piped)
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Run executes one pipeline run: latencies go to the output file, the
// summary line to stdout. History and metrics failures are logged and
// returned after the report is written.
func Run(ctx context.Context, opts RunOptions) (err error) {
	s := opts.Settings
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	sink, err := os.OpenFile(s.Output, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.FilePermissions)
	if err != nil {
		return fmt.Errorf("failed to open output file: %w", err)
	}
	defer func() {
		if closeErr := sink.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close output file: %w", closeErr))
		}
	}()

	metrics := stresstest.NewMetrics()
	useTUI := !s.NoTUI && isTerminal(stdout)

	execOpts := []stresstest.Option{
		stresstest.WithLogger(logger),
		stresstest.WithMetrics(metrics),
	}
	if !useTUI {
		execOpts = append(execOpts, stresstest.WithProgress(stresstest.NewLogProgress(logger)))
	}

	var historyErr error
	if s.History {
		manager, err := stresstest.NewManager(s.Database)
		if err != nil {
			logger.Warn("Run history unavailable", zap.String("database", s.Database), zap.Error(err))
			historyErr = fmt.Errorf("%w: %w", stresstest.ErrHistory, err)
		} else {
			defer manager.Close()
			execOpts = append(execOpts, stresstest.WithHistory(manager))
		}
	}

	executor, err := stresstest.NewExecutor(&stresstest.Config{
		ResponseSize: s.ResponseSize,
		RequestCount: s.Requests,
		Workers:      s.Workers,
		DrainTimeout: s.DrainTimeout,
	}, sink, execOpts...)
	if err != nil {
		return err
	}

	executor.Start(ctx)
	if useTUI {
		if err := tui.Run(ctx, executor, stdout); err != nil {
			logger.Warn("Progress view stopped", zap.Error(err))
		}
	}

	result, runErr := executor.Wait()
	if result != nil {
		fmt.Fprintln(stdout, result.SummaryLine)
		if result.Partial() {
			fmt.Fprintf(stderr, "partial result: %d of %d responses\n", result.Processed, result.Requested)
		}
	}

	var metricsErr error
	if s.MetricsFile != "" {
		if metricsErr = metrics.WriteTextfile(s.MetricsFile); metricsErr != nil {
			logger.Warn("Failed to write metrics", zap.String("path", s.MetricsFile), zap.Error(metricsErr))
		}
	}

	return errors.Join(runErr, historyErr, metricsErr)
}
