// Package fetch routes layer fetches to the fetcher responsible for each
// layer kind.
package fetch

import (
	"context"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/core/ports"
)

// Router implements ports.LayerFetcher by dispatching on layer kind.
type Router struct {
	Elevation ports.LayerFetcher
	Vectors   ports.LayerFetcher
}

// Fetch dispatches to the elevation or vector fetcher.
func (r *Router) Fetch(ctx context.Context, area domain.Area, kind domain.LayerKind) (*domain.LayerPayload, error) {
	if kind == domain.LayerElevation {
		return r.Elevation.Fetch(ctx, area, kind)
	}
	return r.Vectors.Fetch(ctx, area, kind)
}
