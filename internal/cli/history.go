package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/studiowebux/reqproc/internal/filter"
	"github.com/studiowebux/reqproc/internal/stresstest"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatText = "text"
)

// ErrRunNotFound is returned when a run reference matches no recorded run
var ErrRunNotFound = errors.New("run not found")

// HistoryOptions contains options shared by the history commands
type HistoryOptions struct {
	Database     string
	OutputFormat string // json, yaml, text
	Filter       string // JMESPath expression over the JSON rendering
	Limit        int
	Samples      bool // include latency samples (show)
	Stdout       io.Writer
}

// RunDetail is a recorded run with its latency samples
type RunDetail struct {
	Run     *stresstest.Run `json:"run" yaml:"run"`
	Samples []int64         `json:"samples,omitempty" yaml:"samples,omitempty"`
}

func (o HistoryOptions) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

func openHistory(path string) (*stresstest.Manager, error) {
	manager, err := stresstest.NewManager(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	return manager, nil
}

// HistoryList prints recorded runs, newest first
func HistoryList(opts HistoryOptions) error {
	manager, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer manager.Close()

	runs, err := manager.ListRuns(opts.Limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if runs == nil {
		runs = []*stresstest.Run{}
	}

	return render(opts, runs, func(w io.Writer) { writeRunTable(w, runs) })
}

// HistoryShow prints one run, referenced by numeric ID or run key
func HistoryShow(opts HistoryOptions, ref string) error {
	manager, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer manager.Close()

	run, err := lookupRun(manager, ref)
	if err != nil {
		return err
	}

	detail := RunDetail{Run: run}
	if opts.Samples {
		if detail.Samples, err = manager.GetSamples(run.ID); err != nil {
			return fmt.Errorf("failed to load samples: %w", err)
		}
	}

	return render(opts, detail, func(w io.Writer) { writeRunDetail(w, detail) })
}

// HistoryDelete removes one run and its samples
func HistoryDelete(opts HistoryOptions, ref string) error {
	manager, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer manager.Close()

	run, err := lookupRun(manager, ref)
	if err != nil {
		return err
	}
	if err := manager.DeleteRun(run.ID); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", run.RunKey, err)
	}

	fmt.Fprintf(opts.stdout(), "Deleted run %d (%s)\n", run.ID, run.RunKey)
	return nil
}

// HistoryStats prints finished runs aggregated per parameter set
func HistoryStats(opts HistoryOptions) error {
	manager, err := openHistory(opts.Database)
	if err != nil {
		return err
	}
	defer manager.Close()

	stats, err := manager.GetStatsPerConfig()
	if err != nil {
		return err
	}

	return render(opts, stats, func(w io.Writer) { writeStatsTable(w, stats) })
}

// lookupRun resolves ref as a numeric ID first, then as a run key
func lookupRun(manager *stresstest.Manager, ref string) (*stresstest.Run, error) {
	var run *stresstest.Run
	var err error

	if id, convErr := strconv.ParseInt(ref, 10, 64); convErr == nil {
		run, err = manager.GetRun(id)
	} else {
		run, err = manager.GetRunByKey(ref)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", ref, err)
	}
	return run, nil
}

// render writes v in the requested format. A filter expression is applied to
// the JSON rendering; its result is printed as JSON for the text format.
func render(opts HistoryOptions, v any, text func(io.Writer)) error {
	w := opts.stdout()
	format := opts.OutputFormat
	if format == "" {
		format = FormatText
	}

	if opts.Filter != "" {
		filtered, err := filter.Search(v, opts.Filter)
		if err != nil {
			return err
		}
		v = filtered
		if format == FormatText {
			format = FormatJSON
		}
	}

	output, err := formatOutput(v, format, text)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	_, err = io.WriteString(w, output)
	return err
}

// formatOutput formats v based on the output format
func formatOutput(v any, format string, text func(io.Writer)) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil

	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil

	case FormatText:
		var sb strings.Builder
		text(&sb)
		return sb.String(), nil

	default:
		return "", fmt.Errorf("unknown output format %q (want json, yaml or text)", format)
	}
}

func writeRunTable(w io.Writer, runs []*stresstest.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}

	fmt.Fprintf(w, "%-6s %-27s %-10s %-20s %10s %8s %8s %8s\n",
		"ID", "RUN", "STATUS", "STARTED", "PROCESSED", "WORKERS", "AVG", "MEDIAN")
	for _, run := range runs {
		fmt.Fprintf(w, "%-6d %-27s %-10s %-20s %10s %8d %8s %8s\n",
			run.ID,
			run.RunKey,
			run.Status,
			run.StartedAt.Local().Format(time.DateTime),
			fmt.Sprintf("%d/%d", run.TotalProcessed, run.RequestCount),
			run.WorkerCount,
			fmt.Sprintf("%dms", run.AvgDurationMs),
			fmt.Sprintf("%dms", run.MedianDurationMs))
	}
}

func writeRunDetail(w io.Writer, detail RunDetail) {
	run := detail.Run

	fmt.Fprintf(w, "Run:           %s (id %d)\n", run.RunKey, run.ID)
	fmt.Fprintf(w, "Status:        %s\n", run.Status)
	fmt.Fprintf(w, "Started:       %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.CompletedAt != nil {
		fmt.Fprintf(w, "Duration:      %s\n", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	fmt.Fprintf(w, "Parameters:    response size %d, %d requests, %d workers\n",
		run.ResponseSize, run.RequestCount, run.WorkerCount)
	fmt.Fprintf(w, "Generated:     %d\n", run.TotalGenerated)
	fmt.Fprintf(w, "Processed:     %d\n", run.TotalProcessed)

	if run.TotalProcessed > 0 {
		fmt.Fprintln(w, stresstest.Summary{
			Average: run.AvgDurationMs,
			Median:  run.MedianDurationMs,
			Min:     run.MinDurationMs,
			Max:     run.MaxDurationMs,
		}.String())
		fmt.Fprintf(w, "P95: %dms  P99: %dms\n", run.P95DurationMs, run.P99DurationMs)
	} else {
		fmt.Fprintln(w, stresstest.NoSamplesLine)
	}

	if len(detail.Samples) > 0 {
		fmt.Fprintf(w, "\nSamples (%d):\n", len(detail.Samples))
		for _, v := range detail.Samples {
			fmt.Fprintln(w, v)
		}
	}
}

func writeStatsTable(w io.Writer, stats []stresstest.ConfigStats) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No finished runs recorded")
		return
	}

	fmt.Fprintf(w, "%-8s %-10s %-8s %6s %-15s %10s %8s %8s %8s\n",
		"SIZE", "REQUESTS", "WORKERS", "RUNS", "OK/ABORT/FAIL", "AVG", "MEDIAN", "MIN", "MAX")
	for _, s := range stats {
		fmt.Fprintf(w, "%-8d %-10d %-8d %6d %-15s %10s %8s %8s %8s\n",
			s.ResponseSize,
			s.RequestCount,
			s.WorkerCount,
			s.Runs,
			fmt.Sprintf("%d/%d/%d", s.Completed, s.Aborted, s.Failed),
			fmt.Sprintf("%.1fms", s.AvgDurationMs),
			fmt.Sprintf("%.1fms", s.AvgMedianMs),
			fmt.Sprintf("%dms", s.MinDurationMs),
			fmt.Sprintf("%dms", s.MaxDurationMs))
	}
}
