package http

import (
	"errors"
	"io"
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/mdenis/trailposter/internal/adapters/gpxfile"
	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/core/usecases"
)

// pointDTO is one track point in a JSON track upload.
type pointDTO struct {
	Lat float64  `json:"lat"`
	Lon float64  `json:"lon"`
	Ele *float64 `json:"ele,omitempty"`
}

// tracksRequest uploads a multi-day journey as raw point sequences, one
// inner slice per day, in chronological order.
type tracksRequest struct {
	Days [][]pointDTO `json:"days"`
}

type tracksResponse struct {
	Days       int     `json:"days"`
	Points     int     `json:"points"`
	DistanceKM float64 `json:"distance_km"`
	UphillM    float64 `json:"uphill_m"`
	Closed     bool    `json:"closed"`
}

// computeRequest triggers a full pipeline run against the loaded journey.
type computeRequest struct {
	Paper struct {
		Size      string `json:"size"`
		Landscape bool   `json:"landscape"`
	} `json:"paper"`
	Canvas domain.Canvas     `json:"canvas"`
	Meta   domain.PosterMeta `json:"meta"`
}

// LoadTracksHandler ingests JSON point sequences as the session journey.
func LoadTracksHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req tracksRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}
		if len(req.Days) == 0 {
			return errBadRequest(c, "days must contain at least one track")
		}

		days := make([]domain.Track, 0, len(req.Days))
		for _, day := range req.Days {
			pts := make([]domain.TrackPoint, 0, len(day))
			var lastEle float64
			for _, p := range day {
				tp := domain.TrackPoint{GeoPoint: domain.GeoPoint{Lat: p.Lat, Lon: p.Lon}}
				if p.Ele != nil {
					tp.Ele = *p.Ele
					lastEle = *p.Ele
				} else {
					tp.Ele = lastEle
				}
				pts = append(pts, tp)
			}
			days = append(days, gpxfile.NewTrack(pts))
		}

		return loadJourney(c, deps, days)
	}
}

// UploadGPXHandler ingests a multipart form of GPX files, one per day,
// ordered by filename.
func UploadGPXHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		form, err := c.MultipartForm()
		if err != nil {
			return errBadRequest(c, "expected multipart form: "+err.Error())
		}
		files := form.File["files"]
		if len(files) == 0 {
			return errBadRequest(c, "no files uploaded under field 'files'")
		}

		sort.Slice(files, func(i, j int) bool {
			return files[i].Filename < files[j].Filename
		})

		days := make([]domain.Track, 0, len(files))
		for _, fh := range files {
			f, err := fh.Open()
			if err != nil {
				return errBadRequest(c, "open "+fh.Filename+": "+err.Error())
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				return errBadRequest(c, "read "+fh.Filename+": "+err.Error())
			}
			t, err := gpxfile.ParseTrack(data)
			if err != nil {
				return errUnprocessable(c, fh.Filename+": "+err.Error())
			}
			days = append(days, t)
		}

		return loadJourney(c, deps, days)
	}
}

func loadJourney(c *fiber.Ctx, deps *Dependencies, days []domain.Track) error {
	if err := deps.Session.LoadTracks(days); err != nil {
		var invalid *domain.InvalidJourneyError
		if errors.As(err, &invalid) {
			return errUnprocessable(c, invalid.Error())
		}
		return errInternal(c, err.Error())
	}

	j := deps.Session.Journey()
	return c.Status(fiber.StatusCreated).JSON(tracksResponse{
		Days:       len(j.Days),
		Points:     len(j.Points),
		DistanceKM: j.TotalDistM / 1000,
		UphillM:    j.UphillM,
		Closed:     deps.Session.IsClosed(),
	})
}

// ComputeHandler runs the full pipeline and returns the poster bundle. A
// concurrent compute supersedes this one, which then answers 409.
func ComputeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req computeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body: "+err.Error())
		}

		size, ok := domain.StandardPaperSizes[req.Paper.Size]
		if !ok {
			return errBadRequest(c, "unknown paper size: "+req.Paper.Size)
		}
		if req.Canvas.Width <= 0 || req.Canvas.Height <= 0 {
			return errBadRequest(c, "canvas width and height must be positive")
		}

		bundle, err := deps.Session.Recompute(c.Context(), usecases.RecomputeParams{
			Paper:  domain.PaperSpec{Size: size, Landscape: req.Paper.Landscape},
			Canvas: req.Canvas,
			Meta:   req.Meta,
		})
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrSuperseded):
				return errConflict(c, "superseded by a newer compute")
			default:
				var invalid *domain.InvalidJourneyError
				var degenerate *domain.DegenerateAreaError
				var unavailable *domain.DataUnavailableError
				switch {
				case errors.As(err, &invalid):
					return errUnprocessable(c, invalid.Error())
				case errors.As(err, &degenerate):
					return errUnprocessable(c, degenerate.Error())
				case errors.As(err, &unavailable):
					return errServiceUnavailable(c, unavailable.Error())
				}
				return errInternal(c, err.Error())
			}
		}

		return c.JSON(bundle)
	}
}

// LastBundleHandler returns the most recently computed bundle.
func LastBundleHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bundle := deps.Session.Bundle()
		if bundle == nil {
			return errNotFound(c, "no poster computed yet")
		}
		return c.JSON(bundle)
	}
}

// ListPapersHandler returns the supported paper formats.
func ListPapersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		names := make([]string, 0, len(domain.StandardPaperSizes))
		for name := range domain.StandardPaperSizes {
			names = append(names, name)
		}
		sort.Strings(names)

		sizes := make([]domain.PaperSize, 0, len(names))
		for _, name := range names {
			sizes = append(sizes, domain.StandardPaperSizes[name])
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(sizes)
	}
}
