package core

import "time"

// Store defines the interface for run-history persistence.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Run operations
	CreateRun(treeID, host, deviceID string) (*Run, error)
	GetRun(id string) (*Run, error)
	CompleteRun(id string, status RunStatus, summary ValidationSummary, errMsg string) error
	GetLatestRun(treeID string) (*Run, error)
	ListRuns(limit int) ([]*Run, error)

	// Edge result operations
	RecordEdgeResult(runID string, result EdgeResult) error
	GetEdgeResultsForRun(runID string) ([]EdgeResult, error)
}

// RunStatus represents the status of a persisted validation run.
type RunStatus string

// Run status constants.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run represents one validation run session against a tree.
type Run struct {
	ID          string
	TreeID      string
	Host        string
	DeviceID    string
	Status      RunStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string

	// Summary fields, populated when the run completes.
	TotalTested   int
	Successful    int
	Failed        int
	Skipped       int
	OverallHealth Health
	ExecutionMS   int64
}
