package stresstest

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ConfigStats aggregates finished runs sharing the same parameters
type ConfigStats struct {
	ResponseSize   int       `json:"responseSize" yaml:"responseSize"`
	RequestCount   int       `json:"requestCount" yaml:"requestCount"`
	WorkerCount    int       `json:"workerCount" yaml:"workerCount"`
	Runs           int       `json:"runs" yaml:"runs"`
	Completed      int       `json:"completed" yaml:"completed"`
	Aborted        int       `json:"aborted" yaml:"aborted"`
	Failed         int       `json:"failed" yaml:"failed"`
	TotalProcessed int64     `json:"totalProcessed" yaml:"totalProcessed"`
	AvgDurationMs  float64   `json:"avgDurationMs" yaml:"avgDurationMs"`       // Mean of per-run averages
	AvgMedianMs    float64   `json:"avgMedianMs" yaml:"avgMedianMs"`           // Mean of per-run medians
	MinDurationMs  int64     `json:"minDurationMs" yaml:"minDurationMs"`       // Lowest per-run minimum
	MaxDurationMs  int64     `json:"maxDurationMs" yaml:"maxDurationMs"`       // Highest per-run maximum
	LastRun        time.Time `json:"lastRun" yaml:"lastRun"`
}

// GetStatsPerConfig groups finished runs by response size, request count and
// worker count, most recently run configuration first. Runs without samples
// count toward the totals but not toward the latency figures.
func (m *Manager) GetStatsPerConfig() ([]ConfigStats, error) {
	query := `
		SELECT
			response_size,
			request_count,
			worker_count,
			COUNT(*) as runs,
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END) as completed,
			SUM(CASE WHEN status = 'aborted' THEN 1 ELSE 0 END) as aborted,
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END) as failed,
			SUM(total_processed) as total_processed,
			COALESCE(AVG(CASE WHEN total_processed > 0 THEN avg_duration_ms END), 0) as avg_duration,
			COALESCE(AVG(CASE WHEN total_processed > 0 THEN median_duration_ms END), 0) as avg_median,
			COALESCE(MIN(CASE WHEN total_processed > 0 THEN min_duration_ms END), 0) as min_duration,
			COALESCE(MAX(max_duration_ms), 0) as max_duration,
			MAX(started_at) as last_run
		FROM runs
		WHERE status != 'running'
		GROUP BY response_size, request_count, worker_count
		ORDER BY last_run DESC
	`

	rows, err := m.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats per config: %w", err)
	}
	defer rows.Close()

	statsList := []ConfigStats{}
	for rows.Next() {
		var s ConfigStats
		var lastRun sql.NullString

		err := rows.Scan(
			&s.ResponseSize,
			&s.RequestCount,
			&s.WorkerCount,
			&s.Runs,
			&s.Completed,
			&s.Aborted,
			&s.Failed,
			&s.TotalProcessed,
			&s.AvgDurationMs,
			&s.AvgMedianMs,
			&s.MinDurationMs,
			&s.MaxDurationMs,
			&lastRun,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}

		// Aggregates lose the column type, so the driver hands back the stored text
		if lastRun.Valid {
			s.LastRun = parseTimestamp(lastRun.String)
		}

		statsList = append(statsList, s)
	}

	return statsList, rows.Err()
}

// parseTimestamp parses a timestamp in any layout the sqlite3 driver writes
func parseTimestamp(value string) time.Time {
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
