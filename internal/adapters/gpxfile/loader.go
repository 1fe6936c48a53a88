// Package gpxfile loads GPX recordings into domain tracks. Syntax
// validation beyond producing a normalized point sequence is out of scope;
// malformed files surface as parse errors from the underlying library.
package gpxfile

import (
	"fmt"
	"sort"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/pkg/geospatial"
)

// LoadDays loads the given GPX files in filename alphabetical order, one
// track per file.
func LoadDays(paths []string) ([]domain.Track, error) {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	days := make([]domain.Track, 0, len(sorted))
	for _, path := range sorted {
		t, err := LoadTrack(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		days = append(days, t)
	}
	return days, nil
}

// LoadTrack parses one GPX file into a normalized track.
func LoadTrack(path string) (domain.Track, error) {
	f, err := gpx.ParseFile(path)
	if err != nil {
		return domain.Track{}, fmt.Errorf("parse gpx: %w", err)
	}
	return fromGPX(f)
}

// ParseTrack parses GPX bytes into a normalized track.
func ParseTrack(data []byte) (domain.Track, error) {
	f, err := gpx.ParseBytes(data)
	if err != nil {
		return domain.Track{}, fmt.Errorf("parse gpx: %w", err)
	}
	return fromGPX(f)
}

func fromGPX(f *gpx.GPX) (domain.Track, error) {
	var raw []domain.TrackPoint
	for _, track := range f.Tracks {
		for _, segment := range track.Segments {
			for _, p := range segment.Points {
				tp := domain.TrackPoint{GeoPoint: domain.GeoPoint{Lat: p.Latitude, Lon: p.Longitude}}
				if p.Elevation.NotNull() {
					tp.Ele = p.Elevation.Value()
				} else {
					if len(raw) == 0 {
						continue // skip leading points without elevation
					}
					tp.Ele = raw[len(raw)-1].Ele
				}
				raw = append(raw, tp)
			}
		}
	}
	if len(raw) == 0 {
		return domain.Track{}, fmt.Errorf("gpx contains no usable points")
	}
	return NewTrack(raw), nil
}

// NewTrack normalizes a raw point sequence into a Track, computing the
// cumulative distance along it.
func NewTrack(points []domain.TrackPoint) domain.Track {
	out := make([]domain.TrackPoint, len(points))
	copy(out, points)
	for i := 1; i < len(out); i++ {
		step := geospatial.Haversine(out[i-1].Lat, out[i-1].Lon, out[i].Lat, out[i].Lon)
		out[i].Dist = out[i-1].Dist + step
	}
	if len(out) > 0 {
		out[0].Dist = 0
	}
	return domain.Track{Points: out}
}
