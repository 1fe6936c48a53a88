package domain

import "math"

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// LatSpan returns the latitude extent in degrees.
func (b Bounds) LatSpan() float64 { return b.MaxLat - b.MinLat }

// LonSpan returns the longitude extent in degrees.
func (b Bounds) LonSpan() float64 { return b.MaxLon - b.MinLon }

// Center returns the geographic center of the box.
func (b Bounds) Center() GeoPoint {
	return GeoPoint{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

// Contains reports whether p lies inside the box, borders included.
func (b Bounds) Contains(p GeoPoint) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lon >= b.MinLon && p.Lon <= b.MaxLon
}

// WithRelativeMargin grows the box by frac of its own span on every side.
func (b Bounds) WithRelativeMargin(frac float64) Bounds {
	latMargin := frac * b.LatSpan()
	lonMargin := frac * b.LonSpan()
	return Bounds{
		MinLat: b.MinLat - latMargin,
		MinLon: b.MinLon - lonMargin,
		MaxLat: b.MaxLat + latMargin,
		MaxLon: b.MaxLon + lonMargin,
	}
}

// PaperSize is a physical output format in millimeters.
type PaperSize struct {
	Name     string `json:"name"`
	WidthMM  int    `json:"width_mm"`
	HeightMM int    `json:"height_mm"`
}

// StandardPaperSizes lists the built-in formats, keyed by name.
var StandardPaperSizes = map[string]PaperSize{
	"A4":    {Name: "A4", WidthMM: 210, HeightMM: 297},
	"A3":    {Name: "A3", WidthMM: 297, HeightMM: 420},
	"50x70": {Name: "50x70", WidthMM: 500, HeightMM: 700},
}

// PaperSpec is a requested paper size plus orientation.
type PaperSpec struct {
	Size      PaperSize `json:"size"`
	Landscape bool      `json:"landscape"`
}

// AspectRatio returns effective width/height after orientation.
func (p PaperSpec) AspectRatio() float64 {
	w, h := float64(p.Size.WidthMM), float64(p.Size.HeightMM)
	if p.Landscape {
		w, h = h, w
	}
	return w / h
}

// Area is the geographic rectangle external data is fetched for, together
// with the paper aspect ratio that shaped it. It is the cache key for all
// layer data: any change in the four bounds invalidates cached entries.
type Area struct {
	Bounds
	PaperAspect float64 `json:"paper_aspect"`
}

// Equal reports whether the two areas match within tol degrees on every bound.
func (a Area) Equal(o Area, tol float64) bool {
	return math.Abs(a.MinLat-o.MinLat) <= tol &&
		math.Abs(a.MinLon-o.MinLon) <= tol &&
		math.Abs(a.MaxLat-o.MaxLat) <= tol &&
		math.Abs(a.MaxLon-o.MaxLon) <= tol
}
