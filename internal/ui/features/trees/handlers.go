package trees

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/treeline-labs/treeline/internal/engine"
	"github.com/treeline-labs/treeline/internal/profile"
	"github.com/treeline-labs/treeline/internal/ui/features/common"
	"github.com/treeline-labs/treeline/internal/ui/views"
	"github.com/treeline-labs/treeline/pkg/core"
)

// Handlers provides HTTP handlers for the tree detail feature.
type Handlers struct {
	deps *common.Deps

	// cancels maps tree ID to the in-flight run's cancel func.
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewHandlers creates a Handlers instance.
func NewHandlers(deps *common.Deps) *Handlers {
	return &Handlers{deps: deps, cancels: make(map[string]context.CancelFunc)}
}

func (h *Handlers) tree(w http.ResponseWriter, r *http.Request) *core.Tree {
	id := chi.URLParam(r, "treeID")
	tree := h.deps.Trees.Get(id)
	if tree == nil {
		http.NotFound(w, r)
	}
	return tree
}

// TreePage renders the tree detail page with full content.
func (h *Handlers) TreePage(w http.ResponseWriter, r *http.Request) {
	tree := h.tree(w, r)
	if tree == nil {
		return
	}

	host, device := h.deps.HostSelection(r)
	data := h.buildData(tree, host, device)
	data.Message = h.deps.PopFlash(w, r)

	title := tree.Name
	if title == "" {
		title = tree.ID
	}
	if err := h.deps.Views.Page(w, title, "tree_content", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Updates is the long-lived SSE endpoint for one tree's live state.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	tree := h.tree(w, r)
	if tree == nil {
		return
	}
	host, device := h.deps.HostSelection(r)

	sse := datastar.NewSSE(w, r)
	updates := h.deps.Notifier.Subscribe()
	defer h.deps.Notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			fragment, err := h.deps.Views.Fragment("tree_content", h.buildData(tree, host, device))
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

// Preview fetches the host preview for the tree, then redirects back.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	tree := h.tree(w, r)
	if tree == nil {
		return
	}

	host, device := h.deps.HostSelection(r)
	h.deps.SaveHostSelection(w, r, host, device)

	if _, err := h.deps.Engine.LoadPreview(r.Context(), tree.ID); err != nil {
		h.deps.Logger.Warn("preview failed", "tree_id", tree.ID, "error", err)
	}
	http.Redirect(w, r, "/trees/"+tree.ID, http.StatusSeeOther)
}

// Validate starts a run in the background and redirects back to the page,
// which follows progress over SSE.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	tree := h.tree(w, r)
	if tree == nil {
		return
	}

	host, device := h.deps.HostSelection(r)
	h.deps.SaveHostSelection(w, r, host, device)

	opts := engine.Options{Host: host, DeviceID: device}

	// The run outlives the request; it gets its own context so closing the
	// browser tab does not cancel a traversal already driving a device.
	runCtx, cancel := context.WithCancel(context.Background())
	h.mu.Lock()
	h.cancels[tree.ID] = cancel
	h.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			h.mu.Lock()
			delete(h.cancels, tree.ID)
			h.mu.Unlock()
		}()
		if _, err := h.deps.Engine.Run(runCtx, tree, opts); err != nil &&
			!errors.Is(err, engine.ErrRunInFlight) {
			h.deps.Logger.Warn("validation run failed", "tree_id", tree.ID, "error", err)
		}
	}()

	h.deps.Flash(w, r, "Validation started")
	http.Redirect(w, r, "/trees/"+tree.ID, http.StatusSeeOther)
}

// Cancel aborts the tree's in-flight run, if any.
func (h *Handlers) Cancel(w http.ResponseWriter, r *http.Request) {
	tree := h.tree(w, r)
	if tree == nil {
		return
	}

	h.mu.Lock()
	cancel := h.cancels[tree.ID]
	h.mu.Unlock()
	if cancel != nil {
		cancel()
		h.deps.Flash(w, r, "Cancelling run")
	}
	http.Redirect(w, r, "/trees/"+tree.ID, http.StatusSeeOther)
}

// LastResult restores the cached previous result into the active view.
func (h *Handlers) LastResult(w http.ResponseWriter, r *http.Request) {
	tree := h.tree(w, r)
	if tree == nil {
		return
	}

	if !h.deps.Session.ShowLastResult(tree.ID) {
		h.deps.Flash(w, r, "No previous result to show")
	}
	http.Redirect(w, r, "/trees/"+tree.ID, http.StatusSeeOther)
}

func (h *Handlers) buildData(tree *core.Tree, host, device string) views.TreeData {
	var hosts []profile.Host
	if p := h.deps.Profiles(); p != nil {
		hosts = p.Hosts
	}
	return views.TreeData{
		Tree:   tree,
		State:  h.deps.Session.Snapshot(tree.ID),
		Hosts:  hosts,
		Host:   host,
		Device: device,
	}
}
