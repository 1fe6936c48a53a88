package domain

// FeatureKind tags the closed set of detected feature variants.
type FeatureKind string

const (
	FeaturePass   FeatureKind = "pass"
	FeatureBridge FeatureKind = "bridge"
	FeatureHut    FeatureKind = "hut"
)

// Feature is a geometrically matched point of interest along a Journey.
// Kind selects which variant fields are meaningful: passes carry Elevation
// and ProximityM, bridges CrossedFraction and CrossingAngleDeg, huts
// StopIndex. TrackIndex points into Journey.Points for all variants.
type Feature struct {
	Kind       FeatureKind `json:"kind"`
	Name       string      `json:"name,omitempty"`
	Location   GeoPoint    `json:"location"`
	TrackIndex int         `json:"track_index"`

	// Pass
	Elevation  float64 `json:"elevation,omitempty"`
	ProximityM float64 `json:"proximity_m,omitempty"`

	// Bridge
	CrossedFraction  float64 `json:"crossed_fraction,omitempty"`
	CrossingAngleDeg float64 `json:"crossing_angle_deg,omitempty"`

	// Hut
	StopIndex int `json:"stop_index,omitempty"`
}
