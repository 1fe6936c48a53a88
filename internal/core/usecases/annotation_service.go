package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/core/ports"
	"github.com/mdenis/trailposter/internal/pkg/geospatial"
	"github.com/mdenis/trailposter/internal/pkg/metrics"
)

// AnnotationConfig sizes the generated label boxes in canvas units.
type AnnotationConfig struct {
	CharWidth  float64 // per character
	LineHeight float64

	// LoopTolM suppresses the end label when the journey closes on itself
	// within this distance. NearPassM suppresses a start/end label sitting
	// on top of an already-labeled pass. Zero disables either rule.
	LoopTolM  float64
	NearPassM float64
}

// AnnotationService turns detected features and poster metadata into label
// requests: one per feature, one per visible stat (title, distance, uphill,
// duration). Feature labels go through the layout solver; stat labels live
// in the reserved bands, which the solver treats as obstacles, so they are
// laid out here directly. Solver placements are geometry-derived and
// theme-independent: the last result is memoized by (canvas geometry, area,
// feature set, endpoint names) so presentation-only changes never re-solve.
type AnnotationService struct {
	solver ports.LabelSolver
	cfg    AnnotationConfig

	mu       sync.Mutex
	memoKey  string
	memoized []domain.LabelPlacement
}

// NewAnnotationService creates a new AnnotationService.
func NewAnnotationService(solver ports.LabelSolver, cfg AnnotationConfig) *AnnotationService {
	return &AnnotationService{solver: solver, cfg: cfg}
}

// Plan places one label per feature plus the start/end labels from meta.
// Labels that cannot be placed within the canvas and candidate budget come
// back explicitly dropped; that is a soft condition, not an error.
func (s *AnnotationService) Plan(ctx context.Context, j *domain.Journey, meta domain.PosterMeta,
	features []domain.Feature, area domain.Area, canvas domain.Canvas) ([]domain.LabelPlacement, error) {

	key := s.planKey(meta, features, area, canvas)
	s.mu.Lock()
	if key == s.memoKey && s.memoized != nil {
		out := make([]domain.LabelPlacement, len(s.memoized))
		copy(out, s.memoized)
		s.mu.Unlock()
		return append(out, s.bandPlacements(j, meta, canvas)...), nil
	}
	s.mu.Unlock()

	requests := s.buildRequests(j, meta, features, area, canvas)

	track := make([]domain.XY, len(j.Points))
	for i, p := range j.Points {
		track[i] = projectToCanvas(p.GeoPoint, area, canvas)
	}
	obstacles := []domain.Rect{
		{MinX: 0, MinY: 0, MaxX: canvas.Width, MaxY: canvas.ReservedTop},
		{MinX: 0, MinY: canvas.Height - canvas.ReservedBottom, MaxX: canvas.Width, MaxY: canvas.Height},
	}

	placements, err := s.solver.Place(ctx, canvas, requests, obstacles, [][]domain.XY{track})
	if err != nil {
		return nil, fmt.Errorf("label solver: %w", err)
	}
	if len(placements) != len(requests) {
		return nil, fmt.Errorf("label solver returned %d outcomes for %d requests", len(placements), len(requests))
	}

	band := s.bandPlacements(j, meta, canvas)

	placed, dropped := 0, 0
	for _, p := range placements {
		if p.Dropped {
			dropped++
			slog.Warn("label dropped, no non-overlapping position", "text", p.Request.Text)
		} else {
			placed++
		}
	}
	for _, p := range band {
		if p.Dropped {
			dropped++
			slog.Warn("label dropped, does not fit its band", "text", p.Request.Text)
		} else {
			placed++
		}
	}
	metrics.LabelsPlaced.Add(float64(placed))
	metrics.LabelsDropped.Add(float64(dropped))

	s.mu.Lock()
	s.memoKey = key
	s.memoized = make([]domain.LabelPlacement, len(placements))
	copy(s.memoized, placements)
	s.mu.Unlock()

	return append(placements, band...), nil
}

// bandPlacements builds the title and stat labels. The title centers in the
// top reserved band; the visible stats split the bottom band into equal
// columns. A label wider than its slot comes back explicitly dropped.
func (s *AnnotationService) bandPlacements(j *domain.Journey, meta domain.PosterMeta, canvas domain.Canvas) []domain.LabelPlacement {
	var out []domain.LabelPlacement

	fit := func(text string, cx, cy float64, slot domain.Rect) {
		w, h := s.textBox(text)
		p := domain.LabelPlacement{Request: domain.LabelRequest{
			Anchor: domain.XY{X: cx, Y: cy},
			Text:   text,
			Width:  w,
			Height: h,
		}}
		box := domain.Rect{MinX: cx - w/2, MinY: cy - h/2, MaxX: cx + w/2, MaxY: cy + h/2}
		if slot.Contains(box) {
			p.Box = box
		} else {
			p.Dropped = true
		}
		out = append(out, p)
	}

	if meta.Title != "" {
		top := domain.Rect{MinX: 0, MinY: 0, MaxX: canvas.Width, MaxY: canvas.ReservedTop}
		fit(meta.Title, canvas.Width/2, canvas.ReservedTop/2, top)
	}

	var stats []string
	if j.TotalDistM > 0 {
		stats = append(stats, fmt.Sprintf("%.0f km", j.TotalDistM/1000))
	}
	if j.UphillM > 0 {
		stats = append(stats, fmt.Sprintf("%.0f m D+", j.UphillM))
	}
	if meta.DurationDays > 0 {
		stats = append(stats, fmt.Sprintf("%d days", meta.DurationDays))
	}
	if len(stats) == 0 {
		return out
	}

	colW := canvas.Width / float64(len(stats))
	cy := canvas.Height - canvas.ReservedBottom/2
	for i, text := range stats {
		slot := domain.Rect{
			MinX: colW * float64(i),
			MinY: canvas.Height - canvas.ReservedBottom,
			MaxX: colW * float64(i+1),
			MaxY: canvas.Height,
		}
		fit(text, slot.MinX+colW/2, cy, slot)
	}
	return out
}

func (s *AnnotationService) buildRequests(j *domain.Journey, meta domain.PosterMeta,
	features []domain.Feature, area domain.Area, canvas domain.Canvas) []domain.LabelRequest {

	var reqs []domain.LabelRequest
	add := func(anchor domain.GeoPoint, text string, side domain.Side) {
		w, h := s.textBox(text)
		reqs = append(reqs, domain.LabelRequest{
			Anchor:        projectToCanvas(anchor, area, canvas),
			Text:          text,
			Width:         w,
			Height:        h,
			PreferredSide: side,
		})
	}

	for _, f := range features {
		switch f.Kind {
		case domain.FeaturePass:
			add(f.Location, fmt.Sprintf("%s\n(%d m)", f.Name, int(f.Elevation)), domain.SideAbove)
		case domain.FeatureBridge:
			if f.Name != "" {
				add(f.Location, f.Name, domain.SideAuto)
			}
		case domain.FeatureHut:
			if f.Name != "" {
				add(f.Location, f.Name, domain.SideAuto)
			}
		}
	}

	start := j.Points[0].GeoPoint
	end := j.Points[len(j.Points)-1].GeoPoint
	closed := s.cfg.LoopTolM > 0 &&
		geospatial.Haversine(start.Lat, start.Lon, end.Lat, end.Lon) < s.cfg.LoopTolM

	if meta.StartName != "" && !s.nearLabeledPass(start, features) {
		add(start, meta.StartName, domain.SideBelow)
	}
	if meta.EndName != "" && !closed && !s.nearLabeledPass(end, features) {
		add(end, meta.EndName, domain.SideBelow)
	}

	return reqs
}

// nearLabeledPass reports whether p falls within NearPassM of a matched
// pass, which already gets its own label at that spot.
func (s *AnnotationService) nearLabeledPass(p domain.GeoPoint, features []domain.Feature) bool {
	if s.cfg.NearPassM <= 0 {
		return false
	}
	for _, f := range features {
		if f.Kind != domain.FeaturePass {
			continue
		}
		if geospatial.Haversine(p.Lat, p.Lon, f.Location.Lat, f.Location.Lon) < s.cfg.NearPassM {
			return true
		}
	}
	return false
}

func (s *AnnotationService) textBox(text string) (w, h float64) {
	lines := strings.Split(text, "\n")
	longest := 0
	for _, l := range lines {
		if len(l) > longest {
			longest = len(l)
		}
	}
	return float64(longest) * s.cfg.CharWidth, float64(len(lines)) * s.cfg.LineHeight
}

// planKey identifies the geometry-dependent inputs of a placement run.
func (s *AnnotationService) planKey(meta domain.PosterMeta, features []domain.Feature,
	area domain.Area, canvas domain.Canvas) string {

	ids := make([]string, 0, len(features))
	for _, f := range features {
		ids = append(ids, fmt.Sprintf("%s/%s/%d", f.Kind, f.Name, f.TrackIndex))
	}
	sort.Strings(ids)

	return fmt.Sprintf("%.5f:%.5f:%.5f:%.5f|%gx%g:%g:%g|%s|%s|%s",
		area.MinLat, area.MinLon, area.MaxLat, area.MaxLon,
		canvas.Width, canvas.Height, canvas.ReservedTop, canvas.ReservedBottom,
		meta.StartName, meta.EndName, strings.Join(ids, ","))
}

// projectToCanvas maps a geographic point into the canvas map region.
func projectToCanvas(p domain.GeoPoint, area domain.Area, canvas domain.Canvas) domain.XY {
	m := canvas.MapRect()
	return domain.XY{
		X: m.MinX + (p.Lon-area.MinLon)/area.LonSpan()*m.Width(),
		Y: m.MinY + (area.MaxLat-p.Lat)/area.LatSpan()*m.Height(),
	}
}
