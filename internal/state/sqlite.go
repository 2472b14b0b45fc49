// Package state persists validation run history. The default backend is a
// project-local SQLite database; a Postgres backend exists for shared
// deployments. Live per-tree validation state lives in internal/session,
// not here.
package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/treeline-labs/treeline/pkg/core"
)

// SQLiteStore implements core.Store on a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store instance.
// A nil logger falls back to discard.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	} else {
		dsn = ":memory:?_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// CreateRun records the start of a validation run.
func (s *SQLiteStore) CreateRun(treeID, host, deviceID string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run := &core.Run{
		ID:        generateID(),
		TreeID:    treeID,
		Host:      host,
		DeviceID:  deviceID,
		Status:    core.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", run.ID), slog.String("tree_id", treeID))

	_, err := s.db.Exec(
		`INSERT INTO runs (id, tree_id, host, device_id, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.TreeID, run.Host, run.DeviceID, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	return scanRun(s.db.QueryRow(selectRunSQL+` WHERE id = ?`, id), id)
}

// CompleteRun marks a run as finished and stores its summary.
func (s *SQLiteStore) CompleteRun(id string, status core.RunStatus, summary core.ValidationSummary, errMsg string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	var errorPtr *string
	if errMsg != "" {
		errorPtr = &errMsg
	}

	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, completed_at = ?, error = ?,
		        total_tested = ?, successful = ?, failed = ?, skipped = ?,
		        overall_health = ?, execution_ms = ?
		 WHERE id = ?`,
		string(status), now, errorPtr,
		summary.TotalTested, summary.Successful, summary.Failed, summary.Skipped,
		string(summary.OverallHealth), summary.ExecutionTime.Milliseconds(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetLatestRun retrieves the most recent run for a tree, or nil when the
// tree has never been run.
func (s *SQLiteStore) GetLatestRun(treeID string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	run, err := scanRun(s.db.QueryRow(
		selectRunSQL+` WHERE tree_id = ? ORDER BY started_at DESC LIMIT 1`, treeID), treeID)
	if err != nil && errors.Is(err, errRunNotFound) {
		return nil, nil
	}
	return run, err
}

// ListRuns retrieves the most recent runs up to the given limit.
func (s *SQLiteStore) ListRuns(limit int) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(selectRunSQL+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRuns(rows)
}

// RecordEdgeResult appends a per-edge result to a run.
func (s *SQLiteStore) RecordEdgeResult(runID string, result core.EdgeResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errorPtr *string
	if result.ErrorMessage != "" {
		errorPtr = &result.ErrorMessage
	}

	_, err := s.db.Exec(
		`INSERT INTO edge_results (id, run_id, position, edge_id, from_node, to_node,
		         from_name, to_name, success, skipped, error_message, execution_ms,
		         actions_executed, total_actions, verifications_passed, total_verifications)
		 VALUES (?, ?, (SELECT COUNT(*) FROM edge_results WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		generateID(), runID, runID, result.EdgeID, result.FromNode, result.ToNode,
		result.FromName, result.ToName, result.Success, result.Skipped, errorPtr,
		result.ExecutionTime.Milliseconds(),
		result.ActionsExecuted, result.TotalActions,
		result.VerificationsPassed, result.TotalVerifications,
	)
	if err != nil {
		return fmt.Errorf("failed to record edge result: %w", err)
	}
	return nil
}

// GetEdgeResultsForRun retrieves a run's per-edge results in order.
func (s *SQLiteStore) GetEdgeResultsForRun(runID string) ([]core.EdgeResult, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT edge_id, from_node, to_node, from_name, to_name, success, skipped,
		        error_message, execution_ms, actions_executed, total_actions,
		        verifications_passed, total_verifications
		 FROM edge_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get edge results: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEdgeResults(rows)
}
