package domain

// XY is a point in canvas (output) coordinate space. The origin is the
// top-left corner, y grows downward, matching raster conventions.
type XY struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned box in canvas space.
type Rect struct {
	MinX float64 `json:"min_x"`
	MinY float64 `json:"min_y"`
	MaxX float64 `json:"max_x"`
	MaxY float64 `json:"max_y"`
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Overlaps reports whether the two boxes share any area.
func (r Rect) Overlaps(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Expand grows the box by m on every side.
func (r Rect) Expand(m float64) Rect {
	return Rect{MinX: r.MinX - m, MinY: r.MinY - m, MaxX: r.MaxX + m, MaxY: r.MaxY + m}
}

// Contains reports whether o lies fully inside r.
func (r Rect) Contains(o Rect) bool {
	return o.MinX >= r.MinX && o.MaxX <= r.MaxX && o.MinY >= r.MinY && o.MaxY <= r.MaxY
}

// Canvas is the output coordinate space labels are placed in. The reserved
// bands at top and bottom (title and elevation profile) are off limits for
// the map and its labels.
type Canvas struct {
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	ReservedTop    float64 `json:"reserved_top"`
	ReservedBottom float64 `json:"reserved_bottom"`
}

// MapRect returns the usable map region between the reserved bands.
func (c Canvas) MapRect() Rect {
	return Rect{MinX: 0, MinY: c.ReservedTop, MaxX: c.Width, MaxY: c.Height - c.ReservedBottom}
}

// Side is a placement preference hint for a label.
type Side string

const (
	SideAuto  Side = "auto"
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideAbove Side = "above"
	SideBelow Side = "below"
)

// LabelRequest asks for one text annotation near an anchor point.
type LabelRequest struct {
	Anchor        XY      `json:"anchor"`
	Text          string  `json:"text"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	PreferredSide Side    `json:"preferred_side"`
}

// LabelPlacement is the resolved outcome for one request: either a final
// non-overlapping box (plus a leader line back to the anchor) or an
// explicit drop when no position fit within the candidate budget.
type LabelPlacement struct {
	Request LabelRequest `json:"request"`
	Box     Rect         `json:"box"`
	Leader  []XY         `json:"leader,omitempty"`
	Dropped bool         `json:"dropped"`
}
