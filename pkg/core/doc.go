// Package core defines the shared language of the Treeline system.
//
// This package contains:
//   - Domain entities (Tree, ValidationPreview, ValidationResults, Run)
//   - Derived status machinery (Status, StatusMap, Health)
//   - Service interfaces (Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
