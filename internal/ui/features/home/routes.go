// Package home provides the dashboard feature for the UI.
package home

import (
	"github.com/go-chi/chi/v5"

	"github.com/treeline-labs/treeline/internal/ui/features/common"
)

// SetupRoutes configures routes for the dashboard.
func SetupRoutes(router chi.Router, deps *common.Deps) error {
	handlers := NewHandlers(deps)

	router.Get("/", handlers.HomePage)
	router.Get("/updates", handlers.Updates)

	return nil
}
