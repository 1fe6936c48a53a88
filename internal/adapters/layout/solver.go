// Package layout implements the label placement solver: a candidate-budgeted
// greedy search that tries positions around each anchor at increasing
// distances and keeps the first one free of overlaps.
package layout

import (
	"context"
	"math"

	"github.com/mdenis/trailposter/internal/core/domain"
)

// Solver implements ports.LabelSolver.
type Solver struct {
	Candidates  int     // positions tried per label before dropping it
	MinDistance float64 // closest candidate ring, canvas units
	MaxDistance float64 // farthest candidate ring
	Margin      float64 // clearance kept around placed boxes
}

// NewSolver creates a Solver with the given candidate budget.
func NewSolver(candidates int, minDist, maxDist, margin float64) *Solver {
	return &Solver{Candidates: candidates, MinDistance: minDist, MaxDistance: maxDist, Margin: margin}
}

// Place resolves each request to a non-overlapping box or an explicit drop.
// Outcomes are returned in request order, one per request.
func (s *Solver) Place(ctx context.Context, canvas domain.Canvas, requests []domain.LabelRequest,
	obstacles []domain.Rect, polylines [][]domain.XY) ([]domain.LabelPlacement, error) {

	bounds := domain.Rect{MinX: 0, MinY: 0, MaxX: canvas.Width, MaxY: canvas.Height}
	placed := make([]domain.Rect, 0, len(requests))
	out := make([]domain.LabelPlacement, 0, len(requests))

	for _, req := range requests {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		box, ok := s.search(req, bounds, obstacles, polylines, placed)
		if !ok {
			out = append(out, domain.LabelPlacement{Request: req, Dropped: true})
			continue
		}

		placed = append(placed, box)
		placement := domain.LabelPlacement{Request: req, Box: box}
		center := domain.XY{X: (box.MinX + box.MaxX) / 2, Y: (box.MinY + box.MaxY) / 2}
		if math.Hypot(center.X-req.Anchor.X, center.Y-req.Anchor.Y) > s.MinDistance {
			placement.Leader = []domain.XY{req.Anchor, center}
		}
		out = append(out, placement)
	}

	return out, nil
}

// search walks the candidate positions for one label. Directions are tried
// preferred-side first, then by increasing ring distance.
func (s *Solver) search(req domain.LabelRequest, bounds domain.Rect, obstacles []domain.Rect,
	polylines [][]domain.XY, placed []domain.Rect) (domain.Rect, bool) {

	dirs := directions(req.PreferredSide)
	rings := s.Candidates / len(dirs)
	if rings < 1 {
		rings = 1
	}

	for ring := 0; ring < rings; ring++ {
		dist := s.MinDistance + (s.MaxDistance-s.MinDistance)*float64(ring)/float64(rings)
		for _, d := range dirs {
			cx := req.Anchor.X + d.X*(dist+req.Width/2)
			cy := req.Anchor.Y + d.Y*(dist+req.Height/2)
			box := domain.Rect{
				MinX: cx - req.Width/2,
				MinY: cy - req.Height/2,
				MaxX: cx + req.Width/2,
				MaxY: cy + req.Height/2,
			}
			if s.fits(box, bounds, obstacles, polylines, placed) {
				return box, true
			}
		}
	}
	return domain.Rect{}, false
}

func (s *Solver) fits(box, bounds domain.Rect, obstacles []domain.Rect,
	polylines [][]domain.XY, placed []domain.Rect) bool {

	if !bounds.Contains(box) {
		return false
	}
	padded := box.Expand(s.Margin)
	for _, o := range obstacles {
		if padded.Overlaps(o) {
			return false
		}
	}
	for _, p := range placed {
		if padded.Overlaps(p) {
			return false
		}
	}
	for _, line := range polylines {
		for i := 1; i < len(line); i++ {
			if segmentIntersectsRect(line[i-1], line[i], padded) {
				return false
			}
		}
	}
	return true
}

type direction struct {
	side domain.Side
	d    domain.XY
}

// Fixed order keeps placement deterministic for identical inputs.
var allDirections = []direction{
	{domain.SideAbove, domain.XY{X: 0, Y: -1}},
	{domain.SideBelow, domain.XY{X: 0, Y: 1}},
	{domain.SideRight, domain.XY{X: 1, Y: 0}},
	{domain.SideLeft, domain.XY{X: -1, Y: 0}},
}

var diagonal = []domain.XY{
	{X: 0.707, Y: -0.707}, {X: -0.707, Y: -0.707},
	{X: 0.707, Y: 0.707}, {X: -0.707, Y: 0.707},
}

func directions(preferred domain.Side) []domain.XY {
	var out []domain.XY
	for _, dir := range allDirections {
		if dir.side == preferred {
			out = append(out, dir.d)
		}
	}
	for _, dir := range allDirections {
		if dir.side != preferred {
			out = append(out, dir.d)
		}
	}
	return append(out, diagonal...)
}

// segmentIntersectsRect reports whether segment a-b touches the box.
func segmentIntersectsRect(a, b domain.XY, r domain.Rect) bool {
	inside := func(p domain.XY) bool {
		return p.X >= r.MinX && p.X <= r.MaxX && p.Y >= r.MinY && p.Y <= r.MaxY
	}
	if inside(a) || inside(b) {
		return true
	}

	corners := [4]domain.XY{
		{X: r.MinX, Y: r.MinY}, {X: r.MaxX, Y: r.MinY},
		{X: r.MaxX, Y: r.MaxY}, {X: r.MinX, Y: r.MaxY},
	}
	for i := 0; i < 4; i++ {
		if segmentsCross(a, b, corners[i], corners[(i+1)%4]) {
			return true
		}
	}
	return false
}

func segmentsCross(p1, p2, p3, p4 domain.XY) bool {
	d := func(o, a, b domain.XY) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}
	d1, d2 := d(p3, p4, p1), d(p3, p4, p2)
	d3, d4 := d(p1, p2, p3), d(p1, p2, p4)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}
