// Package geospatial provides great-circle distance and the small planar
// geometry toolkit the feature detectors need: a local equirectangular
// projection, convex hulls, oriented minimum rectangles and segment
// clipping against them.
package geospatial

import (
	"math"
	"sort"
)

// Vec2 is a point in a local planar frame, in degrees with the longitude
// axis pre-scaled by the cosine of a reference latitude so both axes have
// equal metric length.
type Vec2 struct {
	X float64
	Y float64
}

// Project maps lat/lon to the local planar frame anchored at refLat.
func Project(lat, lon, refLat float64) Vec2 {
	return Vec2{X: lon * math.Cos(toRad(refLat)), Y: lat}
}

func (v Vec2) sub(o Vec2) Vec2    { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }
func (v Vec2) norm() float64      { return math.Hypot(v.X, v.Y) }

func cross(o, a, b Vec2) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ConvexHull returns the convex hull of pts in counter-clockwise order
// (Andrew monotone chain). Degenerate inputs return the sorted points.
func ConvexHull(pts []Vec2) []Vec2 {
	if len(pts) < 3 {
		return pts
	}
	sorted := make([]Vec2, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	var hull []Vec2
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// OrientedRect is a rotated rectangle given by center, unit long axis and
// half extents. HalfLength is measured along Axis, HalfWidth across it.
type OrientedRect struct {
	Center     Vec2
	Axis       Vec2
	HalfLength float64
	HalfWidth  float64
}

// Length returns the long-axis extent.
func (r OrientedRect) Length() float64 { return 2 * r.HalfLength }

// AspectRatio returns width/length.
func (r OrientedRect) AspectRatio() float64 {
	if r.HalfLength == 0 {
		return 0
	}
	return r.HalfWidth / r.HalfLength
}

// ToLocal maps p into the rectangle frame: x along the long axis, y across.
func (r OrientedRect) ToLocal(p Vec2) Vec2 {
	d := p.sub(r.Center)
	return Vec2{
		X: d.X*r.Axis.X + d.Y*r.Axis.Y,
		Y: -d.X*r.Axis.Y + d.Y*r.Axis.X,
	}
}

// Contains reports whether p lies inside the rectangle.
func (r OrientedRect) Contains(p Vec2) bool {
	l := r.ToLocal(p)
	return math.Abs(l.X) <= r.HalfLength && math.Abs(l.Y) <= r.HalfWidth
}

// MinAreaRect fits the minimum-area oriented rectangle around pts by
// rotating calipers over the convex hull edges. Returns false for inputs
// with fewer than three distinct points.
func MinAreaRect(pts []Vec2) (OrientedRect, bool) {
	hull := ConvexHull(pts)
	if len(hull) < 3 {
		return OrientedRect{}, false
	}

	best := OrientedRect{}
	bestArea := math.Inf(1)
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		edge := b.sub(a)
		n := edge.norm()
		if n == 0 {
			continue
		}
		axis := Vec2{edge.X / n, edge.Y / n}
		perp := Vec2{-axis.Y, axis.X}

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			u, v := p.dot(axis), p.dot(perp)
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minV, maxV = math.Min(minV, v), math.Max(maxV, v)
		}

		area := (maxU - minU) * (maxV - minV)
		if area >= bestArea {
			continue
		}
		bestArea = area
		cu, cv := (minU+maxU)/2, (minV+maxV)/2
		center := Vec2{X: axis.X*cu + perp.X*cv, Y: axis.Y*cu + perp.Y*cv}
		hl, hw := (maxU-minU)/2, (maxV-minV)/2
		if hw > hl {
			// keep the long side on the main axis
			axis, hl, hw = perp, hw, hl
		}
		best = OrientedRect{Center: center, Axis: axis, HalfLength: hl, HalfWidth: hw}
	}
	if math.IsInf(bestArea, 1) {
		return OrientedRect{}, false
	}
	return best, true
}

// ClipSegment clips segment a-b against the rectangle and returns the
// clipped endpoints in the rectangle's local frame. ok is false when the
// segment misses the rectangle entirely.
func (r OrientedRect) ClipSegment(a, b Vec2) (p0, p1 Vec2, ok bool) {
	la, lb := r.ToLocal(a), r.ToLocal(b)
	d := lb.sub(la)

	// Liang-Barsky against [-HL,HL] x [-HW,HW].
	t0, t1 := 0.0, 1.0
	bounds := [4][2]float64{
		{-d.X, la.X + r.HalfLength},
		{d.X, r.HalfLength - la.X},
		{-d.Y, la.Y + r.HalfWidth},
		{d.Y, r.HalfWidth - la.Y},
	}
	for _, pq := range bounds {
		p, q := pq[0], pq[1]
		if p == 0 {
			if q < 0 {
				return Vec2{}, Vec2{}, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return Vec2{}, Vec2{}, false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return Vec2{}, Vec2{}, false
			}
			if t < t1 {
				t1 = t
			}
		}
	}
	p0 = Vec2{la.X + t0*d.X, la.Y + t0*d.Y}
	p1 = Vec2{la.X + t1*d.X, la.Y + t1*d.Y}
	return p0, p1, true
}
