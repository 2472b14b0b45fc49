package core

// =============================================================================
// Status
// =============================================================================

// Status is the derived visual state of a node or edge. It is computed from
// a confidence scalar, never stored authoritatively.
type Status string

// Status constants, ordered from worst to best.
const (
	StatusUntested Status = "untested"
	StatusTesting  Status = "testing"
	StatusLow      Status = "low"
	StatusMedium   Status = "medium"
	StatusHigh     Status = "high"
)

// Confidence thresholds for status banding.
const (
	statusHighMin   = 0.7
	statusMediumMin = 0.49
)

// StatusFromConfidence bands a confidence scalar in [0,1] into a Status.
// The mapping is monotonic: higher confidence never yields a worse status.
// Zero confidence means the element was exercised but nothing succeeded.
func StatusFromConfidence(confidence float64) Status {
	switch {
	case confidence >= statusHighMin:
		return StatusHigh
	case confidence >= statusMediumMin:
		return StatusMedium
	default:
		return StatusLow
	}
}

// Rank orders statuses for comparison: untested < testing < low < medium < high.
func (s Status) Rank() int {
	switch s {
	case StatusTesting:
		return 1
	case StatusLow:
		return 2
	case StatusMedium:
		return 3
	case StatusHigh:
		return 4
	default:
		return 0
	}
}

// =============================================================================
// StatusMap
// =============================================================================

// StatusMap holds the per-node and per-edge statuses for one tree during and
// after a validation run. It is a plain value type; the session store owns
// locking.
type StatusMap struct {
	Nodes map[string]Status
	Edges map[string]Status
}

// NewStatusMap returns an empty StatusMap.
func NewStatusMap() StatusMap {
	return StatusMap{
		Nodes: make(map[string]Status),
		Edges: make(map[string]Status),
	}
}

// NodeStatus returns the status for a node, defaulting to untested.
// Entry nodes are the caller's concern: they render a fixed accent and
// should not be looked up here.
func (m StatusMap) NodeStatus(nodeID string) Status {
	if s, ok := m.Nodes[nodeID]; ok {
		return s
	}
	return StatusUntested
}

// EdgeStatus returns the status for an edge. The direct edge-id key wins;
// when it misses, the legacy source-target composite key is consulted before
// defaulting to untested.
func (m StatusMap) EdgeStatus(edgeID, source, target string) Status {
	if s, ok := m.Edges[edgeID]; ok {
		return s
	}
	if s, ok := m.Edges[CompositeEdgeKey(source, target)]; ok {
		return s
	}
	return StatusUntested
}

// SetNodeStatus records a node status. Transitions only move forward during
// a run: a final status is never downgraded back to testing.
func (m StatusMap) SetNodeStatus(nodeID string, s Status) {
	if cur, ok := m.Nodes[nodeID]; ok && s == StatusTesting && cur.Rank() > StatusTesting.Rank() {
		return
	}
	m.Nodes[nodeID] = s
}

// SetEdgeStatus records an edge status under its canonical key, with the
// same forward-only transition rule as nodes.
func (m StatusMap) SetEdgeStatus(key string, s Status) {
	if cur, ok := m.Edges[key]; ok && s == StatusTesting && cur.Rank() > StatusTesting.Rank() {
		return
	}
	m.Edges[key] = s
}

// ResetForNewValidation clears both status maps in place.
func (m *StatusMap) ResetForNewValidation() {
	m.Nodes = make(map[string]Status)
	m.Edges = make(map[string]Status)
}
