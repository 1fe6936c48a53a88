package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/core/ports"
	"github.com/mdenis/trailposter/internal/pkg/metrics"
)

// RecomputeParams are the inputs of one pipeline run.
type RecomputeParams struct {
	Paper  domain.PaperSpec
	Canvas domain.Canvas
	Meta   domain.PosterMeta
}

// Session is the single active poster-editing session: one journey, one
// area, one layer cache. Recompute runs the whole pipeline; a newer call
// supersedes an in-flight one, whose results are discarded on arrival
// rather than merged. Geometry and fetch errors abort the run and leave the
// previous bundle intact.
type Session struct {
	stitcher *StitchService
	areas    *AreaService
	cache    *LayerCache
	detector *DetectService
	planner  *AnnotationService
	events   ports.EventPublisher // optional, may be nil

	closedTolM float64

	gen atomic.Uint64

	mu      sync.Mutex
	journey *domain.Journey
	bundle  *domain.PosterBundle
}

// NewSession creates a new Session. events may be nil. closedTolM is the
// start-to-end distance under which a journey counts as a loop.
func NewSession(stitcher *StitchService, areas *AreaService, cache *LayerCache,
	detector *DetectService, planner *AnnotationService, events ports.EventPublisher,
	closedTolM float64) *Session {
	return &Session{
		stitcher:   stitcher,
		areas:      areas,
		cache:      cache,
		detector:   detector,
		planner:    planner,
		events:     events,
		closedTolM: closedTolM,
	}
}

// LoadTracks stitches the ordered daily tracks into the session journey and
// resets the layer cache, since prior external data belongs to another track.
func (s *Session) LoadTracks(days []domain.Track) error {
	j, err := s.stitcher.Stitch(days)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.journey = j
	s.bundle = nil
	s.mu.Unlock()

	s.cache.Reset()
	return nil
}

// Journey returns the currently loaded journey, or nil.
func (s *Session) Journey() *domain.Journey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.journey
}

// IsClosed reports whether the loaded journey is a loop.
func (s *Session) IsClosed() bool {
	s.mu.Lock()
	j := s.journey
	s.mu.Unlock()
	if j == nil {
		return false
	}
	return s.stitcher.IsClosed(j, s.closedTolM)
}

// Bundle returns the last successfully computed bundle, or nil.
func (s *Session) Bundle() *domain.PosterBundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bundle
}

// Recompute runs the full pipeline: area resolution, layer fetches, feature
// detection, label placement. All layer fetches complete before detection
// runs, so the detector reads a consistent snapshot. Returns ErrSuperseded
// when a newer Recompute started while this one was in flight.
func (s *Session) Recompute(ctx context.Context, p RecomputeParams) (*domain.PosterBundle, error) {
	s.mu.Lock()
	j := s.journey
	s.mu.Unlock()
	if j == nil {
		return nil, &domain.InvalidJourneyError{Reason: "no tracks loaded"}
	}

	gen := s.gen.Add(1)
	start := time.Now()
	tracer := otel.Tracer("trailposter/pipeline")

	area, err := s.areas.Resolve(j, p.Paper)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, eventStarted, &domain.RecomputeEvent{Generation: gen, Area: area})

	fetchCtx, span := tracer.Start(ctx, "layers.snapshot")
	layers, err := s.snapshot(fetchCtx, area)
	span.End()
	if err != nil {
		s.publish(ctx, eventDiscarded, &domain.RecomputeEvent{Generation: gen, Area: area, Error: err.Error()})
		return nil, err
	}
	if s.gen.Load() != gen {
		return nil, s.discard(ctx, gen, area)
	}

	features := s.detector.Detect(j, layers)

	solveCtx, span := tracer.Start(ctx, "labels.place")
	labels, err := s.planner.Plan(solveCtx, j, p.Meta, features, area, p.Canvas)
	span.End()
	if err != nil {
		s.publish(ctx, eventDiscarded, &domain.RecomputeEvent{Generation: gen, Area: area, Error: err.Error()})
		return nil, err
	}

	bundle := &domain.PosterBundle{
		Journey:     j,
		Area:        area,
		Features:    features,
		Labels:      labels,
		Meta:        p.Meta,
		GeneratedAt: time.Now(),
	}
	if elev := layers[domain.LayerElevation]; elev != nil {
		bundle.Elevation = elev.Elevation
	}

	// The store is the authoritative staleness check: a run superseded at
	// any point after the snapshot must neither become the session bundle
	// nor return one to its caller.
	s.mu.Lock()
	stored := s.gen.Load() == gen
	if stored {
		s.bundle = bundle
	}
	s.mu.Unlock()
	if !stored {
		return nil, s.discard(ctx, gen, area)
	}

	elapsed := time.Since(start)
	metrics.RecomputeDuration.Observe(elapsed.Seconds())
	placed, dropped := 0, 0
	for _, l := range labels {
		if l.Dropped {
			dropped++
		} else {
			placed++
		}
	}
	s.publish(ctx, eventCompleted, &domain.RecomputeEvent{
		Generation:    gen,
		Area:          area,
		Features:      len(features),
		LabelsPlaced:  placed,
		LabelsDropped: dropped,
		DurationMS:    elapsed.Milliseconds(),
	})
	slog.Info("recompute finished",
		"generation", gen, "features", len(features),
		"labels_placed", placed, "labels_dropped", dropped,
		"elapsed", elapsed)

	return bundle, nil
}

// snapshot fetches every layer kind for the area concurrently and returns
// the complete map, or the first error. Partial snapshots are never handed
// to the detector.
func (s *Session) snapshot(ctx context.Context, area domain.Area) (map[domain.LayerKind]*domain.LayerPayload, error) {
	kinds := domain.AllLayerKinds()
	payloads := make([]*domain.LayerPayload, len(kinds))

	g, ctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			p, err := s.cache.Get(ctx, area, kind)
			if err != nil {
				return err
			}
			payloads[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[domain.LayerKind]*domain.LayerPayload, len(kinds))
	for i, kind := range kinds {
		out[kind] = payloads[i]
	}
	return out, nil
}

func (s *Session) discard(ctx context.Context, gen uint64, area domain.Area) error {
	metrics.RecomputesSuperseded.Inc()
	s.publish(ctx, eventDiscarded, &domain.RecomputeEvent{Generation: gen, Area: area, Error: domain.ErrSuperseded.Error()})
	slog.Debug("recompute superseded", "generation", gen)
	return fmt.Errorf("generation %d: %w", gen, domain.ErrSuperseded)
}

type eventKind int

const (
	eventStarted eventKind = iota
	eventCompleted
	eventDiscarded
)

func (s *Session) publish(ctx context.Context, kind eventKind, ev *domain.RecomputeEvent) {
	if s.events == nil {
		return
	}
	var err error
	switch kind {
	case eventStarted:
		err = s.events.PublishRecomputeStarted(ctx, ev)
	case eventCompleted:
		err = s.events.PublishRecomputeCompleted(ctx, ev)
	case eventDiscarded:
		err = s.events.PublishRecomputeDiscarded(ctx, ev)
	}
	if err != nil {
		slog.Debug("event publish failed", "error", err)
	}
}
