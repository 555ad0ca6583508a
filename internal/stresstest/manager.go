package stresstest

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/studiowebux/reqproc/internal/migrations"
)

// sampleBatchSize bounds the rows inserted per transaction
const sampleBatchSize = 5000

const runColumns = `id, run_key, response_size, request_count, worker_count, started_at, completed_at, status,
	total_generated, total_processed, COALESCE(avg_duration_ms, 0), COALESCE(median_duration_ms, 0),
	COALESCE(min_duration_ms, 0), COALESCE(max_duration_ms, 0), COALESCE(p95_duration_ms, 0), COALESCE(p99_duration_ms, 0)`

// Manager handles run history persistence
type Manager struct {
	db *sql.DB
}

// NewManager creates a new run history manager
func NewManager(dbPath string) (*Manager, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	m := &Manager{db: db}

	// Run database migrations (includes schema initialization)
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return m, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	return m.db.Close()
}

// CreateRun creates a new run record
func (m *Manager) CreateRun(run *Run) error {
	result, err := m.db.Exec(`
		INSERT INTO runs
		(run_key, response_size, request_count, worker_count, started_at, completed_at, status,
		 total_generated, total_processed, avg_duration_ms, median_duration_ms, min_duration_ms, max_duration_ms,
		 p95_duration_ms, p99_duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunKey, run.ResponseSize, run.RequestCount, run.WorkerCount, run.StartedAt, run.CompletedAt, run.Status,
		run.TotalGenerated, run.TotalProcessed, run.AvgDurationMs, run.MedianDurationMs, run.MinDurationMs, run.MaxDurationMs,
		run.P95DurationMs, run.P99DurationMs)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// UpdateRun updates a run record
func (m *Manager) UpdateRun(run *Run) error {
	_, err := m.db.Exec(`
		UPDATE runs
		SET completed_at = ?, status = ?, total_generated = ?, total_processed = ?,
		    avg_duration_ms = ?, median_duration_ms = ?, min_duration_ms = ?, max_duration_ms = ?,
		    p95_duration_ms = ?, p99_duration_ms = ?
		WHERE id = ?
	`, run.CompletedAt, run.Status, run.TotalGenerated, run.TotalProcessed,
		run.AvgDurationMs, run.MedianDurationMs, run.MinDurationMs, run.MaxDurationMs,
		run.P95DurationMs, run.P99DurationMs, run.ID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var completedAt sql.NullTime

	err := row.Scan(&run.ID, &run.RunKey, &run.ResponseSize, &run.RequestCount, &run.WorkerCount,
		&run.StartedAt, &completedAt, &run.Status, &run.TotalGenerated, &run.TotalProcessed,
		&run.AvgDurationMs, &run.MedianDurationMs, &run.MinDurationMs, &run.MaxDurationMs,
		&run.P95DurationMs, &run.P99DurationMs)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return run, nil
}

// GetRun retrieves a run by ID
func (m *Manager) GetRun(id int64) (*Run, error) {
	return scanRun(m.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
}

// GetRunByKey retrieves a run by its run key
func (m *Manager) GetRunByKey(runKey string) (*Run, error) {
	return scanRun(m.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_key = ?`, runKey))
}

// ListRuns returns recorded runs, newest first
func (m *Manager) ListRuns(limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := m.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun deletes a run and all its samples
func (m *Manager) DeleteRun(id int64) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM run_samples WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete samples: %w", err)
	}
	result, err := tx.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}

// SaveSamplesBatch saves latency samples in report order, in transactions of sampleBatchSize rows
func (m *Manager) SaveSamplesBatch(runID int64, samples []int64) error {
	for start := 0; start < len(samples); start += sampleBatchSize {
		end := min(start+sampleBatchSize, len(samples))
		if err := m.saveSamples(runID, start, samples[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) saveSamples(runID int64, offset int, samples []int64) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO run_samples (run_id, seq, latency_ms) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, latency := range samples {
		if _, err := stmt.Exec(runID, offset+i, latency); err != nil {
			return fmt.Errorf("failed to insert sample: %w", err)
		}
	}

	return tx.Commit()
}

// GetSamples retrieves the latency samples of a run in report order
func (m *Manager) GetSamples(runID int64) ([]int64, error) {
	rows, err := m.db.Query(`SELECT latency_ms FROM run_samples WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	samples := []int64{}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		samples = append(samples, v)
	}
	return samples, rows.Err()
}
