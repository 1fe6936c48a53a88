package usecases

import (
	"fmt"

	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/pkg/geospatial"
)

// StitchService merges an ordered list of daily tracks into one Journey,
// inferring the stop location between each pair of consecutive days.
// The caller guarantees the order (filename alphabetical order for files).
type StitchService struct {
	coincidenceTolM float64
	maxGapM         float64
}

// NewStitchService creates a new StitchService. coincidenceTolM is the
// distance under which two day endpoints count as the same location;
// maxGapM is the largest tolerated gap between consecutive days.
func NewStitchService(coincidenceTolM, maxGapM float64) *StitchService {
	return &StitchService{coincidenceTolM: coincidenceTolM, maxGapM: maxGapM}
}

// Stitch builds a Journey from days. Pure transform: the input tracks are
// not modified. Fails with InvalidJourneyError when a day is empty or two
// consecutive days are too far apart.
func (s *StitchService) Stitch(days []domain.Track) (*domain.Journey, error) {
	if len(days) == 0 {
		return nil, &domain.InvalidJourneyError{Reason: "no tracks given"}
	}
	for i, d := range days {
		if d.IsEmpty() {
			return nil, &domain.InvalidJourneyError{Reason: fmt.Sprintf("track %d is empty", i)}
		}
	}

	j := &domain.Journey{Days: days}

	offset := 0.0
	pointIndex := 0
	for i, d := range days {
		if i > 0 {
			prev := days[i-1].End()
			next := d.Start()
			gap := geospatial.Haversine(prev.Lat, prev.Lon, next.Lat, next.Lon)
			if gap > s.maxGapM {
				return nil, &domain.InvalidJourneyError{
					Reason: fmt.Sprintf("gap of %.0f m between day %d and day %d, check file order", gap, i-1, i),
				}
			}

			stop := domain.StopPoint{
				DayEnd:     prev.GeoPoint,
				NextStart:  next.GeoPoint,
				DayIndex:   i - 1,
				PointIndex: pointIndex - 1,
			}
			if gap <= s.coincidenceTolM {
				stop.Anchor = prev.GeoPoint
			} else {
				stop.Anchor = domain.GeoPoint{
					Lat: (prev.Lat + next.Lat) / 2,
					Lon: (prev.Lon + next.Lon) / 2,
				}
			}
			j.Stops = append(j.Stops, stop)
		}

		for _, p := range d.Points {
			merged := p
			merged.Dist = p.Dist + offset
			j.Points = append(j.Points, merged)
			pointIndex++
		}
		offset += d.DistanceM()
	}

	j.TotalDistM = offset
	j.UphillM = uphill(j.Points)
	return j, nil
}

// IsClosed estimates whether the journey ends where it started.
func (s *StitchService) IsClosed(j *domain.Journey, tolM float64) bool {
	first, last := j.Points[0], j.Points[len(j.Points)-1]
	return geospatial.Haversine(first.Lat, first.Lon, last.Lat, last.Lon) < tolM
}

func uphill(points []domain.TrackPoint) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		if d := points[i].Ele - points[i-1].Ele; d > 0 {
			total += d
		}
	}
	return total
}
