package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/treeline-labs/treeline/pkg/core"
)

// errRunNotFound marks a missing-row lookup so callers can special-case it.
var errRunNotFound = errors.New("run not found")

// selectRunSQL is the shared run projection, identical across backends.
const selectRunSQL = `SELECT id, tree_id, host, device_id, status, started_at, completed_at, error,
       total_tested, successful, failed, skipped, overall_health, execution_ms
FROM runs`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRunRow(sc rowScanner) (*core.Run, error) {
	run := &core.Run{}
	var status, health string
	var completedAt sql.NullTime
	var errMsg sql.NullString

	err := sc.Scan(
		&run.ID, &run.TreeID, &run.Host, &run.DeviceID, &status,
		&run.StartedAt, &completedAt, &errMsg,
		&run.TotalTested, &run.Successful, &run.Failed, &run.Skipped,
		&health, &run.ExecutionMS,
	)
	if err != nil {
		return nil, err
	}

	run.Status = core.RunStatus(status)
	run.OverallHealth = core.Health(health)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

func scanRun(row *sql.Row, key string) (*core.Run, error) {
	run, err := scanRunRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errRunNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func scanRuns(rows *sql.Rows) ([]*core.Run, error) {
	var runs []*core.Run
	for rows.Next() {
		run, err := scanRunRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanEdgeResults(rows *sql.Rows) ([]core.EdgeResult, error) {
	var results []core.EdgeResult
	for rows.Next() {
		var r core.EdgeResult
		var errMsg sql.NullString
		var execMS int64

		err := rows.Scan(
			&r.EdgeID, &r.FromNode, &r.ToNode, &r.FromName, &r.ToName,
			&r.Success, &r.Skipped, &errMsg, &execMS,
			&r.ActionsExecuted, &r.TotalActions,
			&r.VerificationsPassed, &r.TotalVerifications,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge result: %w", err)
		}
		if errMsg.Valid {
			r.ErrorMessage = errMsg.String
		}
		r.ExecutionTime = time.Duration(execMS) * time.Millisecond
		results = append(results, r)
	}
	return results, rows.Err()
}
