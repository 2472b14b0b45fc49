// Package session holds the live, per-tree validation state shared by the
// engine, the CLI and the web UI. State is in-memory only and scoped to the
// process; run history that must survive restarts lives in internal/state.
//
// Each tree ID owns one slot. Slots are mutex-guarded with a single writer
// at a time, and every mutation notifies the broadcaster so UI subtrees can
// re-render without polling.
package session

import (
	"sync"

	"github.com/treeline-labs/treeline/pkg/core"
)

// Broadcaster receives a ping after every store mutation. The UI server
// plugs its SSE notifier in here; the CLI leaves it nil.
type Broadcaster interface {
	Broadcast()
}

// Store is the keyed collection of per-tree validation state.
type Store struct {
	mu       sync.RWMutex
	slots    map[string]*slot
	notifier Broadcaster
}

// slot is the mutable state for one tree.
type slot struct {
	mu sync.Mutex

	preview    *core.ValidationPreview
	progress   *core.ValidationProgress
	results    *core.ValidationResults
	lastResult *core.ValidationResults
	validating bool
	lastError  string
	statuses   core.StatusMap

	// runMu serializes validation runs for this tree. Held for the whole
	// run, acquired with TryLock so a second caller fails fast instead of
	// queueing behind an in-flight run.
	runMu sync.Mutex
}

// State is a point-in-time copy of a tree's slot, safe to render from.
type State struct {
	TreeID     string
	Preview    *core.ValidationPreview
	Progress   *core.ValidationProgress
	Results    *core.ValidationResults
	LastResult *core.ValidationResults
	Validating bool
	LastError  string
	Statuses   core.StatusMap
}

// New creates an empty store. The broadcaster may be nil.
func New(notifier Broadcaster) *Store {
	return &Store{
		slots:    make(map[string]*slot),
		notifier: notifier,
	}
}

// SetNotifier installs the broadcaster after construction. The UI server
// creates its notifier later than the engine wires the store.
func (s *Store) SetNotifier(notifier Broadcaster) {
	s.mu.Lock()
	s.notifier = notifier
	s.mu.Unlock()
}

func (s *Store) notify() {
	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()
	if n != nil {
		n.Broadcast()
	}
}

// get returns the slot for a tree, creating it on first use.
func (s *Store) get(treeID string) *slot {
	s.mu.RLock()
	sl, ok := s.slots[treeID]
	s.mu.RUnlock()
	if ok {
		return sl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok = s.slots[treeID]; ok {
		return sl
	}
	sl = &slot{statuses: core.NewStatusMap()}
	s.slots[treeID] = sl
	return sl
}

// TreeIDs lists the trees with live state, for the UI index pages.
func (s *Store) TreeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.slots))
	for id := range s.slots {
		ids = append(ids, id)
	}
	return ids
}

// AcquireRun reserves the tree's run slot. It returns false when a run is
// already in flight; callers must invoke release exactly once on success.
func (s *Store) AcquireRun(treeID string) (release func(), ok bool) {
	sl := s.get(treeID)
	if !sl.runMu.TryLock() {
		return nil, false
	}
	return sl.runMu.Unlock, true
}

// SetPreview records the host-computed preview for a tree.
func (s *Store) SetPreview(treeID string, p *core.ValidationPreview) {
	sl := s.get(treeID)
	sl.mu.Lock()
	sl.preview = p
	sl.mu.Unlock()
	s.notify()
}

// SetProgress records transient run progress. A nil progress clears it.
func (s *Store) SetProgress(treeID string, p *core.ValidationProgress) {
	sl := s.get(treeID)
	sl.mu.Lock()
	sl.progress = p
	sl.mu.Unlock()
	s.notify()
}

// SetValidating flips the in-flight flag for a tree.
func (s *Store) SetValidating(treeID string, v bool) {
	sl := s.get(treeID)
	sl.mu.Lock()
	sl.validating = v
	sl.mu.Unlock()
	s.notify()
}

// SetError records the display error string for a tree.
func (s *Store) SetError(treeID, msg string) {
	sl := s.get(treeID)
	sl.mu.Lock()
	sl.lastError = msg
	sl.mu.Unlock()
	s.notify()
}

// SetResults stores a run's results, supersedes the cached lastResult and
// discards transient progress.
func (s *Store) SetResults(treeID string, r *core.ValidationResults) {
	sl := s.get(treeID)
	sl.mu.Lock()
	sl.results = r
	if r != nil {
		sl.lastResult = r
	}
	sl.progress = nil
	sl.mu.Unlock()
	s.notify()
}

// ShowLastResult copies the cached lastResult back into the active results
// slot. Reports whether a cached result existed.
func (s *Store) ShowLastResult(treeID string) bool {
	sl := s.get(treeID)
	sl.mu.Lock()
	ok := sl.lastResult != nil
	if ok {
		sl.results = sl.lastResult
	}
	sl.mu.Unlock()
	if ok {
		s.notify()
	}
	return ok
}

// SetNodeStatus records a node's derived status.
func (s *Store) SetNodeStatus(treeID, nodeID string, status core.Status) {
	sl := s.get(treeID)
	sl.mu.Lock()
	sl.statuses.SetNodeStatus(nodeID, status)
	sl.mu.Unlock()
	s.notify()
}

// SetEdgeStatus records an edge's derived status under its canonical key.
func (s *Store) SetEdgeStatus(treeID, edgeKey string, status core.Status) {
	sl := s.get(treeID)
	sl.mu.Lock()
	sl.statuses.SetEdgeStatus(edgeKey, status)
	sl.mu.Unlock()
	s.notify()
}

// ResetColors clears both status maps ahead of a new run.
func (s *Store) ResetColors(treeID string) {
	sl := s.get(treeID)
	sl.mu.Lock()
	sl.statuses.ResetForNewValidation()
	sl.mu.Unlock()
	s.notify()
}

// Reset clears the whole slot for a tree, keeping the slot itself (and any
// in-flight run lock) alive.
func (s *Store) Reset(treeID string) {
	sl := s.get(treeID)
	sl.mu.Lock()
	sl.preview = nil
	sl.progress = nil
	sl.results = nil
	sl.lastResult = nil
	sl.validating = false
	sl.lastError = ""
	sl.statuses = core.NewStatusMap()
	sl.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the tree's current state for rendering.
// Status maps are copied; result pointers are shared but treated as
// immutable once stored.
func (s *Store) Snapshot(treeID string) State {
	sl := s.get(treeID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	st := State{
		TreeID:     treeID,
		Preview:    sl.preview,
		Progress:   sl.progress,
		Results:    sl.results,
		LastResult: sl.lastResult,
		Validating: sl.validating,
		LastError:  sl.lastError,
		Statuses:   core.NewStatusMap(),
	}
	for k, v := range sl.statuses.Nodes {
		st.Statuses.Nodes[k] = v
	}
	for k, v := range sl.statuses.Edges {
		st.Statuses.Edges[k] = v
	}
	return st
}
