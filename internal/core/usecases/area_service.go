package usecases

import (
	"math"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/pkg/geospatial"
)

// AreaService computes the geographic rectangle of interest around a
// Journey, matched to the requested paper aspect ratio.
type AreaService struct {
	marginFrac float64
	minExtentM float64
}

// NewAreaService creates a new AreaService. marginFrac is the relative
// margin added around the track bounds; minExtentM is the smallest journey
// diagonal for which an area can be formed.
func NewAreaService(marginFrac, minExtentM float64) *AreaService {
	return &AreaService{marginFrac: marginFrac, minExtentM: minExtentM}
}

// Resolve returns an Area that contains every journey point with margin and
// has the paper's aspect ratio. The shorter geographic dimension is expanded
// symmetrically about the bounds center, never cropping a point out.
func (s *AreaService) Resolve(j *domain.Journey, paper domain.PaperSpec) (domain.Area, error) {
	raw := j.Bounds()

	diagM := geospatial.Haversine(raw.MinLat, raw.MinLon, raw.MaxLat, raw.MaxLon)
	if diagM < s.minExtentM {
		return domain.Area{}, &domain.DegenerateAreaError{Bounds: raw, ExtentM: diagM}
	}

	b := raw.WithRelativeMargin(s.marginFrac)
	center := b.Center()

	// A physical width of one degree of longitude shrinks with latitude, so
	// the target lon/lat span ratio is the paper ratio divided by cos(lat).
	paperAspect := paper.AspectRatio()
	targetRatio := paperAspect / math.Cos(center.Lat*math.Pi/180)

	lonSpan := b.LonSpan()
	latSpan := b.LatSpan()
	if lonSpan/latSpan < targetRatio {
		lonSpan = latSpan * targetRatio
	} else {
		latSpan = lonSpan / targetRatio
	}

	return domain.Area{
		Bounds: domain.Bounds{
			MinLat: center.Lat - latSpan/2,
			MaxLat: center.Lat + latSpan/2,
			MinLon: center.Lon - lonSpan/2,
			MaxLon: center.Lon + lonSpan/2,
		},
		PaperAspect: paperAspect,
	}, nil
}
