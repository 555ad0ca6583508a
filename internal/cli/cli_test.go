package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/studiowebux/reqproc/internal/config"
	"github.com/studiowebux/reqproc/internal/stresstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	dir := t.TempDir()
	return &config.Settings{
		ResponseSize: 4,
		Requests:     3,
		Workers:      2,
		DrainTimeout: time.Second,
		Output:       filepath.Join(dir, "response_times.txt"),
		History:      true,
		Database:     filepath.Join(dir, "reqproc.db"),
		MetricsFile:  filepath.Join(dir, "reqproc.prom"),
		LogLevel:     "info",
		NoTUI:        true,
	}
}

func runPipeline(t *testing.T, s *config.Settings) (string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := Run(context.Background(), RunOptions{
		Settings: s,
		Logger:   zaptest.NewLogger(t),
		Stdout:   &stdout,
		Stderr:   &stderr,
	})
	require.NoError(t, err)
	return stdout.String(), stderr.String()
}

func TestRun_WritesReportAndSummary(t *testing.T) {
	s := testSettings(t)

	stdout, stderr := runPipeline(t, s)

	data, err := os.ReadFile(s.Output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 4)

	assert.True(t, strings.HasPrefix(lines[3], "Response time: average "))
	assert.Equal(t, lines[3]+"\n", stdout)
	assert.Empty(t, stderr)

	metrics, err := os.ReadFile(s.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "reqproc_responses_processed_total 3")
}

func TestRun_TruncatesOutput(t *testing.T) {
	s := testSettings(t)
	require.NoError(t, os.WriteFile(s.Output, []byte(strings.Repeat("stale\n", 100)), config.FilePermissions))

	runPipeline(t, s)

	data, err := os.ReadFile(s.Output)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")
}

func TestRun_UnavailableHistoryStillWritesReport(t *testing.T) {
	s := testSettings(t)
	s.Database = filepath.Join(t.TempDir(), "missing", "dir", "reqproc.db")

	var stdout bytes.Buffer
	err := Run(context.Background(), RunOptions{Settings: s, Stdout: &stdout, Stderr: &bytes.Buffer{}})
	require.Error(t, err)
	assert.ErrorIs(t, err, stresstest.ErrHistory)

	data, readErr := os.ReadFile(s.Output)
	require.NoError(t, readErr)
	assert.Len(t, strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"), 4)
	assert.NotEmpty(t, stdout.String())
}

func TestRun_BadOutputPath(t *testing.T) {
	s := testSettings(t)
	s.Output = filepath.Join(t.TempDir(), "missing", "out.txt")

	err := Run(context.Background(), RunOptions{Settings: s, Stdout: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestRun_CancelledReportsPartial(t *testing.T) {
	s := testSettings(t)
	s.Requests = 1_000_000
	s.DrainTimeout = 20 * time.Millisecond
	s.History = false
	s.MetricsFile = ""

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var stdout, stderr bytes.Buffer
	require.NoError(t, Run(ctx, RunOptions{Settings: s, Stdout: &stdout, Stderr: &stderr}))

	assert.Contains(t, stderr.String(), "partial result: ")
	assert.Contains(t, stderr.String(), "of 1000000 responses")
}

func TestHistory_ListShowDelete(t *testing.T) {
	s := testSettings(t)
	runPipeline(t, s)
	runPipeline(t, s)

	var out bytes.Buffer
	opts := HistoryOptions{Database: s.Database, OutputFormat: FormatJSON, Stdout: &out}

	require.NoError(t, HistoryList(opts))
	var runs []stresstest.Run
	require.NoError(t, json.Unmarshal(out.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, stresstest.StatusCompleted, runs[0].Status)
	assert.Equal(t, 3, runs[0].TotalProcessed)

	// Show by run key with samples
	out.Reset()
	opts.OutputFormat = FormatText
	opts.Samples = true
	require.NoError(t, HistoryShow(opts, runs[0].RunKey))
	assert.Contains(t, out.String(), runs[0].RunKey)
	assert.Contains(t, out.String(), "Response time: average ")
	assert.Contains(t, out.String(), "Samples (3):")

	// Delete by numeric id
	out.Reset()
	require.NoError(t, HistoryDelete(opts, "1"))
	assert.Contains(t, out.String(), "Deleted run 1")

	err := HistoryShow(opts, "1")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, HistoryDelete(opts, "no-such-run"), ErrRunNotFound)
}

func TestHistory_FilterAndFormats(t *testing.T) {
	s := testSettings(t)
	runPipeline(t, s)

	var out bytes.Buffer
	opts := HistoryOptions{Database: s.Database, Filter: "[].status", Stdout: &out}

	require.NoError(t, HistoryList(opts))
	assert.JSONEq(t, `["completed"]`, out.String())

	out.Reset()
	opts.OutputFormat = FormatYAML
	require.NoError(t, HistoryList(opts))
	assert.Equal(t, "- completed\n", out.String())

	out.Reset()
	opts.OutputFormat = "xml"
	opts.Filter = ""
	assert.Error(t, HistoryList(opts))

	opts.OutputFormat = FormatJSON
	opts.Filter = "[?"
	assert.Error(t, HistoryList(opts))
}

func TestHistory_EmptyText(t *testing.T) {
	var out bytes.Buffer
	opts := HistoryOptions{Database: filepath.Join(t.TempDir(), "reqproc.db"), Stdout: &out}

	require.NoError(t, HistoryList(opts))
	assert.Equal(t, "No runs recorded\n", out.String())

	out.Reset()
	opts.OutputFormat = FormatJSON
	require.NoError(t, HistoryList(opts))
	assert.JSONEq(t, `[]`, out.String())
}

func TestHistory_Stats(t *testing.T) {
	s := testSettings(t)
	runPipeline(t, s)
	runPipeline(t, s)

	var out bytes.Buffer
	opts := HistoryOptions{Database: s.Database, OutputFormat: FormatJSON, Stdout: &out}

	require.NoError(t, HistoryStats(opts))
	var stats []stresstest.ConfigStats
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Runs)
	assert.Equal(t, 2, stats[0].Completed)
	assert.Equal(t, int64(6), stats[0].TotalProcessed)

	out.Reset()
	opts.OutputFormat = FormatText
	require.NoError(t, HistoryStats(opts))
	assert.Contains(t, out.String(), "OK/ABORT/FAIL")
	assert.Contains(t, out.String(), "2/0/0")
}
