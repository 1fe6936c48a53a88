package domain

import "time"

// PosterMeta is the user-editable poster metadata. Changing it never
// requires refetching external data.
type PosterMeta struct {
	Title        string `json:"title"`
	StartName    string `json:"start_name,omitempty"`
	EndName      string `json:"end_name,omitempty"`
	DurationDays int    `json:"duration_days,omitempty"`
}

// PosterBundle is the fully geometry-resolved, presentation-agnostic output
// handed to the renderer: journey, area, detected features, label
// placements and the elevation raster.
type PosterBundle struct {
	Journey     *Journey         `json:"journey"`
	Area        Area             `json:"area"`
	Features    []Feature        `json:"features"`
	Labels      []LabelPlacement `json:"labels"`
	Elevation   *ElevationGrid   `json:"elevation,omitempty"`
	Meta        PosterMeta       `json:"meta"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// RecomputeEvent describes one pipeline run for the event stream.
type RecomputeEvent struct {
	Generation    uint64 `json:"generation"`
	Area          Area   `json:"area"`
	Features      int    `json:"features,omitempty"`
	LabelsPlaced  int    `json:"labels_placed,omitempty"`
	LabelsDropped int    `json:"labels_dropped,omitempty"`
	DurationMS    int64  `json:"duration_ms,omitempty"`
	Error         string `json:"error,omitempty"`
}
