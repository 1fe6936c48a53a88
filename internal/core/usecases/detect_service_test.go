package usecases_test

import (
	"testing"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/core/usecases"
)

func detectCfg() usecases.DetectConfig {
	return usecases.DetectConfig{
		PassProximityM:    50,
		PassDedupIndexTol: 3,
		BridgeLengthFrac:  0.7,
		BridgeMaxAngleDeg: 25,
		BridgeMinAspect:   0.1,
		BridgeMaxAspect:   0.75,
		BridgeMinLengthM:  40,
		HutRadiusM:        500,
	}
}

// straightJourney is a west-to-east track at latitude 42.8, 11 points
// roughly 810 m apart.
func straightJourney(t *testing.T) *domain.Journey {
	t.Helper()
	pts := make([]domain.GeoPoint, 11)
	for i := range pts {
		pts[i] = domain.GeoPoint{Lat: 42.8, Lon: 0.10 + 0.01*float64(i)}
	}
	svc := usecases.NewStitchService(50, 100000)
	j, err := svc.Stitch([]domain.Track{mkTrack(pts...)})
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}
	return j
}

func passesLayer(vectors ...domain.VectorFeature) map[domain.LayerKind]*domain.LayerPayload {
	return map[domain.LayerKind]*domain.LayerPayload{
		domain.LayerPasses: {Kind: domain.LayerPasses, Vectors: vectors},
	}
}

func TestDetect_PassOnTrack(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())
	j := straightJourney(t)

	features := svc.Detect(j, passesLayer(domain.VectorFeature{
		Name:     "Col du Test",
		Location: domain.GeoPoint{Lat: 42.8, Lon: 0.15}, // exactly point 5
		Ele:      2115,
	}))

	if len(features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(features))
	}
	f := features[0]
	if f.Kind != domain.FeaturePass {
		t.Errorf("expected pass, got %s", f.Kind)
	}
	if f.TrackIndex != 5 {
		t.Errorf("expected track index 5, got %d", f.TrackIndex)
	}
	if f.ProximityM > 1 {
		t.Errorf("expected near-zero proximity, got %f", f.ProximityM)
	}
	if f.Elevation != 2115 {
		t.Errorf("expected elevation carried over, got %f", f.Elevation)
	}
}

func TestDetect_PassTooFar(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())
	j := straightJourney(t)

	// ~1.1 km north of the track, well beyond the 50 m threshold.
	features := svc.Detect(j, passesLayer(domain.VectorFeature{
		Name:     "Col Lointain",
		Location: domain.GeoPoint{Lat: 42.81, Lon: 0.15},
	}))
	if len(features) != 0 {
		t.Fatalf("expected no features, got %d", len(features))
	}
}

func TestDetect_PassDedupKeepsCloser(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())
	j := straightJourney(t)

	features := svc.Detect(j, passesLayer(
		domain.VectorFeature{
			Name:     "Farther",
			Location: domain.GeoPoint{Lat: 42.8003, Lon: 0.15}, // ~33 m off point 5
		},
		domain.VectorFeature{
			Name:     "Closer",
			Location: domain.GeoPoint{Lat: 42.8, Lon: 0.16}, // exactly point 6
		},
	))

	if len(features) != 1 {
		t.Fatalf("expected duplicates collapsed to 1, got %d", len(features))
	}
	if features[0].Name != "Closer" {
		t.Errorf("expected the closer candidate kept, got %s", features[0].Name)
	}
}

func TestDetect_PassesSortedByTrackIndex(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())
	j := straightJourney(t)

	features := svc.Detect(j, passesLayer(
		domain.VectorFeature{Name: "Late", Location: domain.GeoPoint{Lat: 42.8, Lon: 0.19}},
		domain.VectorFeature{Name: "Early", Location: domain.GeoPoint{Lat: 42.8, Lon: 0.11}},
	))

	if len(features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(features))
	}
	if features[0].Name != "Early" || features[1].Name != "Late" {
		t.Errorf("expected features ordered along the track, got %s then %s",
			features[0].Name, features[1].Name)
	}
}

// bridgeFootprint is a rectangle roughly 98 m long (east-west) and 20 m
// wide at latitude 42.8.
func bridgeFootprint() domain.VectorFeature {
	return domain.VectorFeature{
		Name:     "Pont Neuf",
		Location: domain.GeoPoint{Lat: 42.80009, Lon: 0.1506},
		Geometry: []domain.GeoPoint{
			{Lat: 42.80000, Lon: 0.1500},
			{Lat: 42.80000, Lon: 0.1512},
			{Lat: 42.80018, Lon: 0.1512},
			{Lat: 42.80018, Lon: 0.1500},
		},
	}
}

func bridgesLayer(vectors ...domain.VectorFeature) map[domain.LayerKind]*domain.LayerPayload {
	return map[domain.LayerKind]*domain.LayerPayload{
		domain.LayerBridges: {Kind: domain.LayerBridges, Vectors: vectors},
	}
}

func TestDetect_BridgeCrossedAlongAxis(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())

	// Track runs through the bridge along its long axis.
	pts := make([]domain.GeoPoint, 9)
	for i := range pts {
		pts[i] = domain.GeoPoint{Lat: 42.80009, Lon: 0.1490 + 0.0004*float64(i)}
	}
	stitch := usecases.NewStitchService(50, 100000)
	j, err := stitch.Stitch([]domain.Track{mkTrack(pts...)})
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}

	features := svc.Detect(j, bridgesLayer(bridgeFootprint()))
	if len(features) != 1 {
		t.Fatalf("expected bridge detected, got %d features", len(features))
	}
	f := features[0]
	if f.Kind != domain.FeatureBridge {
		t.Errorf("expected bridge, got %s", f.Kind)
	}
	if f.CrossedFraction < 0.7 {
		t.Errorf("expected crossed fraction >= 0.7, got %f", f.CrossedFraction)
	}
	if f.CrossingAngleDeg > 25 {
		t.Errorf("expected crossing angle <= 25, got %f", f.CrossingAngleDeg)
	}
}

func TestDetect_BridgePassedUnder(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())

	// Track crosses the bridge footprint perpendicular to its long axis:
	// a road passing under, not a crossing.
	pts := make([]domain.GeoPoint, 9)
	for i := range pts {
		pts[i] = domain.GeoPoint{Lat: 42.7990 + 0.0003*float64(i), Lon: 0.1506}
	}
	stitch := usecases.NewStitchService(50, 100000)
	j, err := stitch.Stitch([]domain.Track{mkTrack(pts...)})
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}

	features := svc.Detect(j, bridgesLayer(bridgeFootprint()))
	if len(features) != 0 {
		t.Fatalf("expected perpendicular crossing rejected, got %d features", len(features))
	}
}

func TestDetect_BridgeGrazeRejected(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())

	// Track clips only the western end of the footprint then turns away:
	// parallel enough, but covers far less than 70% of the length.
	pts := []domain.GeoPoint{
		{Lat: 42.80009, Lon: 0.1490},
		{Lat: 42.80009, Lon: 0.1501},
		{Lat: 42.80060, Lon: 0.1502},
		{Lat: 42.80200, Lon: 0.1503},
	}
	stitch := usecases.NewStitchService(50, 100000)
	j, err := stitch.Stitch([]domain.Track{mkTrack(pts...)})
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}

	features := svc.Detect(j, bridgesLayer(bridgeFootprint()))
	if len(features) != 0 {
		t.Fatalf("expected short graze rejected, got %d features", len(features))
	}
}

func TestDetect_BridgeDegenerateFootprintSkipped(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())
	j := straightJourney(t)

	// Two-point geometry cannot form a rectangle; the candidate is skipped,
	// not fatal.
	features := svc.Detect(j, bridgesLayer(domain.VectorFeature{
		Name:     "Broken",
		Location: domain.GeoPoint{Lat: 42.8, Lon: 0.15},
		Geometry: []domain.GeoPoint{{Lat: 42.8, Lon: 0.15}, {Lat: 42.8, Lon: 0.151}},
	}))
	if len(features) != 0 {
		t.Fatalf("expected degenerate footprint skipped, got %d features", len(features))
	}
}

func TestDetect_HutNearStop(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())

	shared := domain.GeoPoint{Lat: 42.81, Lon: 0.11}
	day1 := mkTrack(domain.GeoPoint{Lat: 42.80, Lon: 0.10}, shared)
	day2 := mkTrack(shared, domain.GeoPoint{Lat: 42.82, Lon: 0.12})
	stitch := usecases.NewStitchService(50, 1000)
	j, err := stitch.Stitch([]domain.Track{day1, day2})
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}

	layers := map[domain.LayerKind]*domain.LayerPayload{
		domain.LayerHuts: {Kind: domain.LayerHuts, Vectors: []domain.VectorFeature{
			{Name: "Refuge Far", Location: domain.GeoPoint{Lat: 42.8135, Lon: 0.11}},  // ~390 m
			{Name: "Refuge Near", Location: domain.GeoPoint{Lat: 42.8109, Lon: 0.11}}, // ~100 m
		}},
	}

	features := svc.Detect(j, layers)
	if len(features) != 1 {
		t.Fatalf("expected 1 hut per stop, got %d features", len(features))
	}
	f := features[0]
	if f.Kind != domain.FeatureHut {
		t.Errorf("expected hut, got %s", f.Kind)
	}
	if f.Name != "Refuge Near" {
		t.Errorf("expected nearest hut, got %s", f.Name)
	}
	if f.StopIndex != 0 {
		t.Errorf("expected stop index 0, got %d", f.StopIndex)
	}
}

func TestDetect_StopWithoutHutStaysUnlabeled(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())

	shared := domain.GeoPoint{Lat: 42.81, Lon: 0.11}
	day1 := mkTrack(domain.GeoPoint{Lat: 42.80, Lon: 0.10}, shared)
	day2 := mkTrack(shared, domain.GeoPoint{Lat: 42.82, Lon: 0.12})
	stitch := usecases.NewStitchService(50, 1000)
	j, err := stitch.Stitch([]domain.Track{day1, day2})
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}

	layers := map[domain.LayerKind]*domain.LayerPayload{
		domain.LayerHuts: {Kind: domain.LayerHuts, Vectors: []domain.VectorFeature{
			{Name: "Refuge Lointain", Location: domain.GeoPoint{Lat: 42.9, Lon: 0.3}},
		}},
	}

	if features := svc.Detect(j, layers); len(features) != 0 {
		t.Fatalf("expected no hut match, got %d features", len(features))
	}
}

func TestDetect_MissingLayersYieldNoFeatures(t *testing.T) {
	svc := usecases.NewDetectService(detectCfg())
	j := straightJourney(t)

	if features := svc.Detect(j, map[domain.LayerKind]*domain.LayerPayload{}); len(features) != 0 {
		t.Fatalf("expected no features without vector layers, got %d", len(features))
	}
}
