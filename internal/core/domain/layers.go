package domain

import "time"

// LayerKind is a category of externally sourced geographic data.
type LayerKind string

const (
	LayerElevation LayerKind = "elevation"
	LayerRoads     LayerKind = "roads"
	LayerWater     LayerKind = "water"
	LayerPasses    LayerKind = "passes"
	LayerBridges   LayerKind = "bridges"
	LayerHuts      LayerKind = "huts"
)

// AllLayerKinds returns every kind a poster needs, elevation included.
func AllLayerKinds() []LayerKind {
	return []LayerKind{LayerElevation, LayerRoads, LayerWater, LayerPasses, LayerBridges, LayerHuts}
}

// VectorLayerKinds returns the kinds backed by OSM vector data.
func VectorLayerKinds() []LayerKind {
	return []LayerKind{LayerRoads, LayerWater, LayerPasses, LayerBridges, LayerHuts}
}

// VectorFeature is one raw candidate from a vector layer: a representative
// location plus the full geometry for ways and polygon footprints.
type VectorFeature struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name,omitempty"`
	Location GeoPoint          `json:"location"`
	Geometry []GeoPoint        `json:"geometry,omitempty"`
	Ele      float64           `json:"ele,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// ElevationGrid is a row-major raster of elevation samples covering an Area.
type ElevationGrid struct {
	Cols   int       `json:"cols"`
	Rows   int       `json:"rows"`
	Values []float64 `json:"values"` // Rows*Cols, north-west origin
}

// At returns the sample at column x, row y.
func (g *ElevationGrid) At(x, y int) float64 { return g.Values[y*g.Cols+x] }

// LayerPayload is the cached result of one external fetch. Exactly one of
// Vectors or Elevation is populated, depending on Kind.
type LayerPayload struct {
	Kind      LayerKind       `json:"kind"`
	FetchedAt time.Time       `json:"fetched_at"`
	Vectors   []VectorFeature `json:"vectors,omitempty"`
	Elevation *ElevationGrid  `json:"elevation,omitempty"`
}
