package usecases

import (
	"log/slog"
	"math"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/pkg/geospatial"
)

// detectBridges decides, for each candidate bridge footprint, whether the
// track actually travels along it. A bridge counts as crossed when the
// track covers enough of the rectangle's long axis AND runs roughly
// parallel to it. Length alone accepts tangential grazes; angle alone
// accepts short clips; requiring both approximates "traveled along the
// bridge" and rejects tracks passing under it.
func (s *DetectService) detectBridges(j *domain.Journey, candidates []domain.VectorFeature) []domain.Feature {
	var out []domain.Feature

	for _, cand := range candidates {
		rect, ok := s.bridgeRect(cand)
		if !ok {
			slog.Debug("skipping bridge candidate with unusable footprint", "name", cand.Name, "id", cand.ID)
			continue
		}

		refLat := cand.Location.Lat
		frac, angleDeg, entryIdx, hit := trackThroughRect(j.Points, rect, refLat)
		if !hit {
			continue
		}
		if frac < s.cfg.BridgeLengthFrac || angleDeg > s.cfg.BridgeMaxAngleDeg {
			continue
		}

		out = append(out, domain.Feature{
			Kind:             domain.FeatureBridge,
			Name:             cand.Name,
			Location:         cand.Location,
			TrackIndex:       entryIdx,
			CrossedFraction:  frac,
			CrossingAngleDeg: angleDeg,
		})
	}

	return out
}

// bridgeRect derives the oriented rectangle approximation of a bridge
// footprint: minimum-area rectangle over the reported geometry, widened to
// the minimum aspect ratio, rejected when too short or too square.
func (s *DetectService) bridgeRect(cand domain.VectorFeature) (geospatial.OrientedRect, bool) {
	if len(cand.Geometry) < 3 {
		return geospatial.OrientedRect{}, false
	}

	refLat := cand.Location.Lat
	pts := make([]geospatial.Vec2, len(cand.Geometry))
	for i, g := range cand.Geometry {
		pts[i] = geospatial.Project(g.Lat, g.Lon, refLat)
	}

	rect, ok := geospatial.MinAreaRect(pts)
	if !ok {
		return geospatial.OrientedRect{}, false
	}
	if geospatial.LocalDegToM(rect.Length()) < s.cfg.BridgeMinLengthM {
		return geospatial.OrientedRect{}, false
	}
	if rect.AspectRatio() > s.cfg.BridgeMaxAspect {
		// Too square to have a meaningful travel direction.
		return geospatial.OrientedRect{}, false
	}
	if rect.AspectRatio() < s.cfg.BridgeMinAspect {
		rect.HalfWidth = rect.HalfLength * s.cfg.BridgeMinAspect
	}
	return rect, true
}

// trackThroughRect clips the track polyline against the rectangle and
// returns the covered fraction of the long axis, the angle between the
// track's chord through the rectangle and the long axis, and the index of
// the first track point at or after entry.
func trackThroughRect(points []domain.TrackPoint, rect geospatial.OrientedRect, refLat float64) (frac, angleDeg float64, entryIdx int, ok bool) {
	coveredX := 0.0
	var first, last geospatial.Vec2
	entryIdx = -1

	for i := 1; i < len(points); i++ {
		a := geospatial.Project(points[i-1].Lat, points[i-1].Lon, refLat)
		b := geospatial.Project(points[i].Lat, points[i].Lon, refLat)
		p0, p1, hit := rect.ClipSegment(a, b)
		if !hit {
			continue
		}
		coveredX += math.Abs(p1.X - p0.X)
		if entryIdx < 0 {
			entryIdx = i - 1
			first = p0
		}
		last = p1
	}
	if entryIdx < 0 {
		return 0, 0, 0, false
	}

	frac = coveredX / rect.Length()
	dx := math.Abs(last.X - first.X)
	dy := math.Abs(last.Y - first.Y)
	angleDeg = math.Atan2(dy, dx) * 180 / math.Pi
	return frac, angleDeg, entryIdx, true
}
