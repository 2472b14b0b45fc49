package runs

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/treeline-labs/treeline/internal/ui/features/common"
	"github.com/treeline-labs/treeline/internal/ui/views"
)

// listLimit caps the history page; older runs stay queryable from the CLI.
const listLimit = 100

// Handlers provides HTTP handlers for run history.
type Handlers struct {
	deps *common.Deps
}

// NewHandlers creates a Handlers instance.
func NewHandlers(deps *common.Deps) *Handlers {
	return &Handlers{deps: deps}
}

// ListPage renders the run history.
func (h *Handlers) ListPage(w http.ResponseWriter, r *http.Request) {
	runs, err := h.deps.History.ListRuns(listLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.deps.Views.Page(w, "Runs", "runs_content", views.RunsData{Runs: runs}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// DetailPage renders one run with its per-edge results.
func (h *Handlers) DetailPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")

	run, err := h.deps.History.GetRun(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	edges, err := h.deps.History.GetEdgeResultsForRun(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := views.RunDetailData{Run: run, Edges: edges}
	if err := h.deps.Views.Page(w, "Run "+id, "run_detail_content", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
