// Package runs provides the run history feature for the UI.
package runs

import (
	"github.com/go-chi/chi/v5"

	"github.com/treeline-labs/treeline/internal/ui/features/common"
)

// SetupRoutes configures routes for run history.
func SetupRoutes(router chi.Router, deps *common.Deps) error {
	handlers := NewHandlers(deps)

	router.Get("/runs", handlers.ListPage)
	router.Get("/runs/{runID}", handlers.DetailPage)

	return nil
}
