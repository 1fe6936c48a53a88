package ports

import (
	"context"

	"github.com/mdenis/trailposter/internal/core/domain"
)

// LayerFetcher retrieves one external data layer for an area. Implementations
// are synchronous or blocking; retry and backoff belong to them, not to the
// cache in front of them.
type LayerFetcher interface {
	Fetch(ctx context.Context, area domain.Area, kind domain.LayerKind) (*domain.LayerPayload, error)
}

// LabelSolver places label requests without mutual overlap and without
// overlapping the given obstacles. Consumed as a black box: it returns one
// outcome per request, placed or explicitly dropped, in request order.
type LabelSolver interface {
	Place(ctx context.Context, canvas domain.Canvas, requests []domain.LabelRequest,
		obstacles []domain.Rect, polylines [][]domain.XY) ([]domain.LabelPlacement, error)
}

// PayloadStore is an optional durable second level under the in-memory layer
// cache. Store failures must degrade to a plain fetch, never abort a run.
type PayloadStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher publishes pipeline lifecycle events to a message broker.
type EventPublisher interface {
	PublishRecomputeStarted(ctx context.Context, ev *domain.RecomputeEvent) error
	PublishRecomputeCompleted(ctx context.Context, ev *domain.RecomputeEvent) error
	PublishRecomputeDiscarded(ctx context.Context, ev *domain.RecomputeEvent) error
}
