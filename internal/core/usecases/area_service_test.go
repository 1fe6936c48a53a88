package usecases_test

import (
	"errors"
	"math"
	"testing"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/core/usecases"
)

func testJourney(t *testing.T) *domain.Journey {
	t.Helper()
	svc := usecases.NewStitchService(50, 100000)
	j, err := svc.Stitch([]domain.Track{mkTrack(
		domain.GeoPoint{Lat: 42.80, Lon: 0.10},
		domain.GeoPoint{Lat: 42.85, Lon: 0.30},
		domain.GeoPoint{Lat: 42.95, Lon: 0.15},
	)})
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}
	return j
}

func TestAreaResolve_ContainsAllPoints(t *testing.T) {
	svc := usecases.NewAreaService(0.1, 100)
	j := testJourney(t)

	for name, size := range domain.StandardPaperSizes {
		for _, landscape := range []bool{false, true} {
			area, err := svc.Resolve(j, domain.PaperSpec{Size: size, Landscape: landscape})
			if err != nil {
				t.Fatalf("%s landscape=%v: %v", name, landscape, err)
			}
			for i, p := range j.Points {
				if !area.Contains(p.GeoPoint) {
					t.Errorf("%s landscape=%v: point %d cropped out of area", name, landscape, i)
				}
			}
		}
	}
}

func TestAreaResolve_AspectMatchesPaper(t *testing.T) {
	svc := usecases.NewAreaService(0.1, 100)
	j := testJourney(t)

	spec := domain.PaperSpec{Size: domain.StandardPaperSizes["A4"]}
	area, err := svc.Resolve(j, spec)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	center := area.Center()
	wantRatio := spec.AspectRatio() / math.Cos(center.Lat*math.Pi/180)
	gotRatio := area.LonSpan() / area.LatSpan()
	if math.Abs(gotRatio-wantRatio) > 1e-9 {
		t.Errorf("expected lon/lat span ratio %f, got %f", wantRatio, gotRatio)
	}
	if area.PaperAspect != spec.AspectRatio() {
		t.Errorf("expected paper aspect %f recorded, got %f", spec.AspectRatio(), area.PaperAspect)
	}
}

func TestAreaResolve_MarginApplied(t *testing.T) {
	svc := usecases.NewAreaService(0.1, 100)
	j := testJourney(t)

	area, err := svc.Resolve(j, domain.PaperSpec{Size: domain.StandardPaperSizes["A4"]})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	raw := j.Bounds()
	margin := 0.1 * raw.LatSpan()
	if area.MinLat > raw.MinLat-margin+1e-12 {
		t.Errorf("south margin not applied: area min lat %f, raw %f", area.MinLat, raw.MinLat)
	}
	if area.MaxLat < raw.MaxLat+margin-1e-12 {
		t.Errorf("north margin not applied: area max lat %f, raw %f", area.MaxLat, raw.MaxLat)
	}
}

func TestAreaResolve_DegenerateJourney(t *testing.T) {
	svc := usecases.NewAreaService(0.1, 100)

	stitch := usecases.NewStitchService(50, 1000)
	j, err := stitch.Stitch([]domain.Track{mkTrack(
		domain.GeoPoint{Lat: 42.800000, Lon: 0.100000},
		domain.GeoPoint{Lat: 42.800001, Lon: 0.100001},
	)})
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}

	var degenerate *domain.DegenerateAreaError
	_, err = svc.Resolve(j, domain.PaperSpec{Size: domain.StandardPaperSizes["A4"]})
	if !errors.As(err, &degenerate) {
		t.Fatalf("expected DegenerateAreaError, got %v", err)
	}
}
