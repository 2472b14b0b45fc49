package home

import (
	"net/http"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/treeline-labs/treeline/internal/ui/features/common"
	"github.com/treeline-labs/treeline/internal/ui/views"
)

// Handlers provides HTTP handlers for the dashboard.
type Handlers struct {
	deps *common.Deps
}

// NewHandlers creates a Handlers instance.
func NewHandlers(deps *common.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// HomePage renders the dashboard with full content.
func (h *Handlers) HomePage(w http.ResponseWriter, r *http.Request) {
	data, err := h.buildData()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.deps.Views.Page(w, "Dashboard", "home_content", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint for the dashboard. Initial state
// is rendered by HomePage; this only pushes re-renders on change.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.deps.Notifier.Subscribe()
	defer h.deps.Notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			data, err := h.buildData()
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			fragment, err := h.deps.Views.Fragment("home_content", data)
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElements(fragment); err != nil {
				return
			}
		}
	}
}

func (h *Handlers) buildData() (views.HomeData, error) {
	data := views.HomeData{}
	if p := h.deps.Profiles(); p != nil {
		data.HostCount = len(p.Hosts)
	}

	for _, tree := range h.deps.Trees.List() {
		summary := views.TreeSummary{Tree: tree}
		summary.Validating = h.deps.Session.Snapshot(tree.ID).Validating
		if h.deps.History != nil {
			run, err := h.deps.History.GetLatestRun(tree.ID)
			if err != nil {
				return data, err
			}
			summary.LastRun = run
		}
		data.Trees = append(data.Trees, summary)
	}

	if h.deps.History != nil {
		runs, err := h.deps.History.ListRuns(10)
		if err != nil {
			return data, err
		}
		data.RecentRuns = runs
	}
	return data, nil
}
