package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mdenis/trailposter/internal/adapters/elevation"
	"github.com/mdenis/trailposter/internal/adapters/fetch"
	"github.com/mdenis/trailposter/internal/adapters/gpxfile"
	"github.com/mdenis/trailposter/internal/adapters/layout"
	"github.com/mdenis/trailposter/internal/adapters/overpass"
	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/core/usecases"
	"github.com/mdenis/trailposter/internal/pkg/config"
	"github.com/mdenis/trailposter/internal/pkg/logging"
)

// postergen computes one poster bundle from GPX files on the command line
// and writes it as JSON, for batch use and debugging without the API server.
func main() {
	paper := flag.String("paper", "A4", "paper size: A4, A3 or 50x70")
	landscape := flag.Bool("landscape", false, "landscape orientation")
	title := flag.String("title", "", "poster title")
	out := flag.String("out", "-", "output file, - for stdout")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: postergen [flags] day1.gpx [day2.gpx ...]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load("trailposter-postergen")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup("postergen", "warn", "text")

	size, ok := domain.StandardPaperSizes[*paper]
	if !ok {
		log.Fatalf("unknown paper size %q", *paper)
	}

	days, err := gpxfile.LoadDays(flag.Args())
	if err != nil {
		log.Fatalf("load tracks: %v", err)
	}

	fetcher := &fetch.Router{
		Elevation: elevation.New(cfg.Elevation.URL, cfg.Elevation.Dataset, cfg.Elevation.Cols),
		Vectors:   overpass.New(cfg.Overpass.URL, time.Duration(cfg.Overpass.TimeoutSeconds)*time.Second),
	}

	stitcher := usecases.NewStitchService(cfg.Poster.StitchToleranceM, cfg.Poster.StitchMaxGapM)
	areas := usecases.NewAreaService(cfg.Poster.MarginFraction, cfg.Poster.MinAreaExtentM)
	cache := usecases.NewLayerCache(fetcher, nil, cfg.Poster.AreaToleranceDeg, cfg.Poster.PayloadTTLSeconds)
	detector := usecases.NewDetectService(usecases.DetectConfig{
		PassProximityM:    cfg.Poster.PassProximityM,
		PassDedupIndexTol: cfg.Poster.PassDedupIndexTol,
		BridgeLengthFrac:  cfg.Poster.BridgeLengthFrac,
		BridgeMaxAngleDeg: cfg.Poster.BridgeMaxAngleDeg,
		BridgeMinAspect:   cfg.Poster.BridgeMinAspect,
		BridgeMaxAspect:   cfg.Poster.BridgeMaxAspect,
		BridgeMinLengthM:  cfg.Poster.BridgeMinLengthM,
		HutRadiusM:        cfg.Poster.HutRadiusM,
	})
	solver := layout.NewSolver(cfg.Poster.LabelCandidates, 4, 60, 2)
	planner := usecases.NewAnnotationService(solver, usecases.AnnotationConfig{
		CharWidth:  6,
		LineHeight: 12,
		LoopTolM:   cfg.Poster.ClosedTrackM,
		NearPassM:  cfg.Poster.PassProximityM,
	})
	session := usecases.NewSession(stitcher, areas, cache, detector, planner, nil, cfg.Poster.ClosedTrackM)

	if err := session.LoadTracks(days); err != nil {
		log.Fatalf("stitch: %v", err)
	}

	spec := domain.PaperSpec{Size: size, Landscape: *landscape}
	canvas := domain.Canvas{
		Width:          float64(size.WidthMM) * 2,
		Height:         float64(size.HeightMM) * 2,
		ReservedTop:    float64(size.HeightMM) * 2 * 0.08,
		ReservedBottom: float64(size.HeightMM) * 2 * 0.12,
	}
	if *landscape {
		canvas.Width, canvas.Height = canvas.Height, canvas.Width
		canvas.ReservedTop = canvas.Height * 0.08
		canvas.ReservedBottom = canvas.Height * 0.12
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	bundle, err := session.Recompute(ctx, usecases.RecomputeParams{
		Paper:  spec,
		Canvas: canvas,
		Meta:   domain.PosterMeta{Title: *title, DurationDays: len(days)},
	})
	if err != nil {
		log.Fatalf("compute: %v", err)
	}

	w := os.Stdout
	if *out != "-" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("create %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(bundle); err != nil {
		log.Fatalf("encode: %v", err)
	}
}
