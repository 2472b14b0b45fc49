package core

import "time"

// ValidationPreview is the host-computed dry-run summary for a tree. It is
// produced entirely by the host backend and treated as read-only here.
type ValidationPreview struct {
	TotalNodes     int
	TotalEdges     int
	ReachableNodes []string
	ReachableEdges []string
	// EstimatedTime is the host's duration estimate for a full run, in seconds.
	EstimatedTime int
}

// StepStatus tags the state of the edge currently being exercised.
type StepStatus string

// Step status constants.
const (
	StepStatusTesting StepStatus = "testing"
	StepStatusSuccess StepStatus = "success"
	StepStatusFailed  StepStatus = "failed"
	StepStatusSkipped StepStatus = "skipped"
)

// ValidationProgress is the transient, in-memory progress of a run.
// It is created when a run starts and discarded when results arrive.
// Invariant: CurrentStep <= TotalSteps.
type ValidationProgress struct {
	CurrentStep int
	TotalSteps  int
	FromNode    string
	ToNode      string
	Status      StepStatus
	Retries     int
}

// EdgeResult is the outcome of exercising a single edge.
// Partial failures are preserved per edge, not escalated to the run level.
type EdgeResult struct {
	EdgeID              string
	FromNode            string
	ToNode              string
	FromName            string
	ToName              string
	Success             bool
	Skipped             bool
	ErrorMessage        string
	ExecutionTime       time.Duration
	ActionsExecuted     int
	TotalActions        int
	VerificationsPassed int
	TotalVerifications  int
}

// Confidence returns the success ratio of actions and verifications reported
// for the edge, in [0,1]. Edges with nothing to execute report zero.
func (r EdgeResult) Confidence() float64 {
	total := r.TotalActions + r.TotalVerifications
	if total == 0 {
		return 0
	}
	return float64(r.ActionsExecuted+r.VerificationsPassed) / float64(total)
}

// Health bands an overall success rate into a coarse run quality tag.
type Health string

// Health constants.
const (
	HealthExcellent Health = "excellent"
	HealthGood      Health = "good"
	HealthFair      Health = "fair"
	HealthPoor      Health = "poor"
)

// Health banding thresholds over the tested-edge success rate.
const (
	healthExcellentMin = 0.9
	healthGoodMin      = 0.75
	healthFairMin      = 0.5
)

// HealthFromRate bands a success rate in [0,1] into a Health value.
// A 2/3 run (~0.66) lands in the fair band.
func HealthFromRate(rate float64) Health {
	switch {
	case rate >= healthExcellentMin:
		return HealthExcellent
	case rate >= healthGoodMin:
		return HealthGood
	case rate >= healthFairMin:
		return HealthFair
	default:
		return HealthPoor
	}
}

// ValidationSummary aggregates a run's per-edge outcomes.
type ValidationSummary struct {
	TotalTested   int
	Successful    int
	Failed        int
	Skipped       int
	OverallHealth Health
	ExecutionTime time.Duration
}

// ValidationResults is the full outcome of a validation run: a summary plus
// the ordered per-edge results. Cached as lastResult after each run and
// superseded atomically by the next successful run.
type ValidationResults struct {
	TreeID    string
	Summary   ValidationSummary
	Edges     []EdgeResult
	ReportURL string
}

// Summarize computes a ValidationSummary from per-edge results. Skipped edges
// do not count toward the success rate; a run with nothing tested is poor.
func Summarize(edges []EdgeResult, executionTime time.Duration) ValidationSummary {
	s := ValidationSummary{ExecutionTime: executionTime}
	for _, e := range edges {
		if e.Skipped {
			s.Skipped++
			continue
		}
		s.TotalTested++
		if e.Success {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	if s.TotalTested > 0 {
		s.OverallHealth = HealthFromRate(float64(s.Successful) / float64(s.TotalTested))
	} else {
		s.OverallHealth = HealthPoor
	}
	return s
}
