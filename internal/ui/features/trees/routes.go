// Package trees provides the tree detail feature: live status, preview and
// run controls for one navigation tree.
package trees

import (
	"github.com/go-chi/chi/v5"

	"github.com/treeline-labs/treeline/internal/ui/features/common"
)

// SetupRoutes configures routes for the tree detail feature.
func SetupRoutes(router chi.Router, deps *common.Deps) error {
	handlers := NewHandlers(deps)

	router.Route("/trees/{treeID}", func(r chi.Router) {
		r.Get("/", handlers.TreePage)
		r.Get("/updates", handlers.Updates)
		r.Post("/preview", handlers.Preview)
		r.Post("/validate", handlers.Validate)
		r.Post("/cancel", handlers.Cancel)
		r.Post("/last-result", handlers.LastResult)
	})

	return nil
}
