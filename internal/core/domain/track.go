package domain

// TrackPoint is a single normalized GPS reading: position, elevation and
// cumulative distance along the track in meters. Immutable once produced
// by ingestion.
type TrackPoint struct {
	GeoPoint
	Ele  float64 `json:"ele"`
	Dist float64 `json:"dist"`
}

// Track is one recorded day: an ordered, non-empty point sequence whose
// cumulative distance starts at 0 and never decreases.
type Track struct {
	Points []TrackPoint `json:"points"`
}

// IsEmpty reports whether the track has no points.
func (t Track) IsEmpty() bool { return len(t.Points) == 0 }

// DistanceM returns the total track length in meters.
func (t Track) DistanceM() float64 {
	if len(t.Points) == 0 {
		return 0
	}
	return t.Points[len(t.Points)-1].Dist
}

// Start returns the first point. Caller guarantees the track is non-empty.
func (t Track) Start() TrackPoint { return t.Points[0] }

// End returns the last point. Caller guarantees the track is non-empty.
func (t Track) End() TrackPoint { return t.Points[len(t.Points)-1] }

// Bounds returns the bounding box of the track.
func (t Track) Bounds() Bounds {
	b := Bounds{MinLat: 90, MinLon: 180, MaxLat: -90, MaxLon: -180}
	for _, p := range t.Points {
		if p.Lat < b.MinLat {
			b.MinLat = p.Lat
		}
		if p.Lat > b.MaxLat {
			b.MaxLat = p.Lat
		}
		if p.Lon < b.MinLon {
			b.MinLon = p.Lon
		}
		if p.Lon > b.MaxLon {
			b.MaxLon = p.Lon
		}
	}
	return b
}

// StopPoint is the inferred resting location between two consecutive days.
// DayIndex is the index of the day that ends at this stop. When the day
// endpoints disagree beyond the stitch tolerance, both are recorded and
// Anchor is their midpoint.
type StopPoint struct {
	Anchor     GeoPoint `json:"anchor"`
	DayEnd     GeoPoint `json:"day_end"`
	NextStart  GeoPoint `json:"next_start"`
	DayIndex   int      `json:"day_index"`
	PointIndex int      `json:"point_index"` // index into Journey.Points at the day boundary
}

// Journey is one logical trip: one or more stitched daily tracks, the
// derived stop points between them, and the merged point sequence with
// journey-wide cumulative distance.
type Journey struct {
	Days   []Track      `json:"days"`
	Stops  []StopPoint  `json:"stops"`
	Points []TrackPoint `json:"points"`

	TotalDistM float64 `json:"total_dist_m"`
	UphillM    float64 `json:"uphill_m"`
}

// Bounds returns the bounding box of the merged track.
func (j *Journey) Bounds() Bounds {
	return Track{Points: j.Points}.Bounds()
}

// DayDistancesM returns per-day lengths, for the elevation profile split.
func (j *Journey) DayDistancesM() []float64 {
	out := make([]float64, len(j.Days))
	for i, d := range j.Days {
		out[i] = d.DistanceM()
	}
	return out
}
