package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ptitty12/AlteryxDependencyTracker/internal/audit"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
)

// Run is one recorded audit.
type Run struct {
	ID          string
	SoTKey      string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt time.Time // zero while running
	Documents   int
	Failed      int
	Reused      int
	Facts       int
}

// BeginRun records the start of an audit and returns its id.
func (s *SQLiteStore) BeginRun(ctx context.Context, sotKey string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("database not opened")
	}

	id := generateID()
	s.logger.Debug("creating run", slog.String("id", id), slog.String("sot_key", sotKey))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, sot_key, status, started_at) VALUES (?, ?, ?, ?)`,
		id, sotKey, string(RunStatusRunning), formatTime(time.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// FinishRun marks a run completed with its counts.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, summary audit.Summary) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, documents = ?, failed = ?, reused = ?, facts = ?
		 WHERE id = ?`,
		string(RunStatusCompleted), formatTime(time.Now()),
		summary.Documents, summary.Failed, summary.Reused, summary.Facts, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, runSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx, runSelect+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

const runSelect = `SELECT id, sot_key, status, started_at, completed_at, documents, failed, reused, facts FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		status    string
		started   sql.NullString
		completed sql.NullString
	)
	err := row.Scan(&run.ID, &run.SoTKey, &status, &started, &completed,
		&run.Documents, &run.Failed, &run.Reused, &run.Facts)
	if err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.StartedAt = parseNullTime(started)
	run.CompletedAt = parseNullTime(completed)
	return &run, nil
}
