package usecases

import (
	"sort"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/pkg/geospatial"
	"github.com/mdenis/trailposter/internal/pkg/metrics"
)

// DetectConfig holds the detection policy thresholds. All of them are
// tunable heuristics, not proven classifiers.
type DetectConfig struct {
	PassProximityM    float64
	PassDedupIndexTol int
	BridgeLengthFrac  float64
	BridgeMaxAngleDeg float64
	BridgeMinAspect   float64
	BridgeMaxAspect   float64
	BridgeMinLengthM  float64
	HutRadiusM        float64
}

// DetectService runs the geometric matchers against a Journey and the
// cached vector layers. The three matchers are independent; the result is
// their union, unordered. Per-candidate failures degrade to a skip, never
// abort the run.
type DetectService struct {
	cfg DetectConfig
}

// NewDetectService creates a new DetectService.
func NewDetectService(cfg DetectConfig) *DetectService {
	return &DetectService{cfg: cfg}
}

// Detect returns every matched feature. layers maps kind to the complete
// cached snapshot; missing vector layers simply yield no features of that
// kind.
func (s *DetectService) Detect(j *domain.Journey, layers map[domain.LayerKind]*domain.LayerPayload) []domain.Feature {
	var out []domain.Feature

	if p := layers[domain.LayerPasses]; p != nil {
		passes := s.matchPasses(j, p.Vectors)
		metrics.FeaturesDetected.WithLabelValues(string(domain.FeaturePass)).Add(float64(len(passes)))
		out = append(out, passes...)
	}
	if p := layers[domain.LayerBridges]; p != nil {
		bridges := s.detectBridges(j, p.Vectors)
		metrics.FeaturesDetected.WithLabelValues(string(domain.FeatureBridge)).Add(float64(len(bridges)))
		out = append(out, bridges...)
	}
	if p := layers[domain.LayerHuts]; p != nil {
		huts := s.matchHuts(j, p.Vectors)
		metrics.FeaturesDetected.WithLabelValues(string(domain.FeatureHut)).Add(float64(len(huts)))
		out = append(out, huts...)
	}

	return out
}

// matchPasses matches each candidate pass to the nearest track point and
// accepts it when the distance is under the proximity threshold. Candidates
// resolving to the same track index within the dedup tolerance keep only
// the closer one. The result is sorted by cumulative track distance for
// elevation-profile alignment.
func (s *DetectService) matchPasses(j *domain.Journey, candidates []domain.VectorFeature) []domain.Feature {
	var matched []domain.Feature

	for _, cand := range candidates {
		idx, distM := nearestTrackIndex(j.Points, cand.Location)
		if distM > s.cfg.PassProximityM {
			continue
		}

		dup := -1
		for i, m := range matched {
			if abs(m.TrackIndex-idx) <= s.cfg.PassDedupIndexTol {
				dup = i
				break
			}
		}
		f := domain.Feature{
			Kind:       domain.FeaturePass,
			Name:       cand.Name,
			Location:   cand.Location,
			TrackIndex: idx,
			Elevation:  cand.Ele,
			ProximityM: distM,
		}
		if dup >= 0 {
			if distM < matched[dup].ProximityM {
				matched[dup] = f
			}
			continue
		}
		matched = append(matched, f)
	}

	sort.Slice(matched, func(a, b int) bool {
		return matched[a].TrackIndex < matched[b].TrackIndex
	})
	return matched
}

// matchHuts finds, for each stop point, the nearest hut or campsite within
// the configured radius. A stop with no hut nearby stays unlabeled.
func (s *DetectService) matchHuts(j *domain.Journey, candidates []domain.VectorFeature) []domain.Feature {
	var out []domain.Feature

	for stopIdx, stop := range j.Stops {
		bestDist := s.cfg.HutRadiusM
		best := -1
		for i, cand := range candidates {
			d := geospatial.Haversine(stop.Anchor.Lat, stop.Anchor.Lon, cand.Location.Lat, cand.Location.Lon)
			if d <= bestDist {
				bestDist = d
				best = i
			}
		}
		if best < 0 {
			continue
		}
		out = append(out, domain.Feature{
			Kind:       domain.FeatureHut,
			Name:       candidates[best].Name,
			Location:   candidates[best].Location,
			TrackIndex: stop.PointIndex,
			StopIndex:  stopIdx,
		})
	}

	return out
}

// nearestTrackIndex returns the index of the track point closest to p by
// great-circle distance, and that distance in meters. Ties resolve to the
// lower index.
func nearestTrackIndex(points []domain.TrackPoint, p domain.GeoPoint) (int, float64) {
	bestIdx, bestDist := 0, geospatial.Haversine(points[0].Lat, points[0].Lon, p.Lat, p.Lon)
	for i := 1; i < len(points); i++ {
		d := geospatial.Haversine(points[i].Lat, points[i].Lon, p.Lat, p.Lon)
		if d < bestDist {
			bestIdx, bestDist = i, d
		}
	}
	return bestIdx, bestDist
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
