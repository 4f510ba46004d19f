// Package source supplies the engine's per-run record sequence.
// Fetching and parsing the registry's native export format happen
// upstream; sources here read the parsed interchange form and apply
// sector classification and filtering, so the engine only ever sees
// tracked sectors.
package source

import (
	"context"

	"github.com/AP-Dev-Tools/independent-food-business-pulse/internal/registry"
)

// Source yields one run's business records. The sequence is finite,
// unordered, possibly empty, and already filtered to the tracked
// sector set.
type Source interface {
	Records(ctx context.Context) ([]registry.Record, error)
}

// Static is a fixed in-memory source, mainly for tests and dry runs.
type Static []registry.Record

// Records implements Source.
func (s Static) Records(_ context.Context) ([]registry.Record, error) {
	return s, nil
}
