package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mdenis/trailposter/internal/adapters/elevation"
	"github.com/mdenis/trailposter/internal/adapters/fetch"
	"github.com/mdenis/trailposter/internal/adapters/http"
	"github.com/mdenis/trailposter/internal/adapters/layout"
	natsadapter "github.com/mdenis/trailposter/internal/adapters/nats"
	"github.com/mdenis/trailposter/internal/adapters/overpass"
	"github.com/mdenis/trailposter/internal/adapters/postgres"
	valkeyadapter "github.com/mdenis/trailposter/internal/adapters/valkey"
	"github.com/mdenis/trailposter/internal/core/ports"
	"github.com/mdenis/trailposter/internal/core/usecases"
	"github.com/mdenis/trailposter/internal/pkg/config"
	"github.com/mdenis/trailposter/internal/pkg/logging"
	"github.com/mdenis/trailposter/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("trailposter-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup("trailposter-api", logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Durable payload store (optional, at most one backend)
	var store ports.PayloadStore
	var db *postgres.DB
	if cfg.Database.Enabled {
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		store = postgres.NewStore(db)
	} else if cfg.Valkey.Enabled {
		vk, err := valkeyadapter.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, running without durable store", "error", err)
		} else {
			defer vk.Close()
			store = vk
		}
	}

	// Event stream (optional)
	var events ports.EventPublisher
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, running without event stream", "error", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	// External data fetchers
	fetcher := &fetch.Router{
		Elevation: elevation.New(cfg.Elevation.URL, cfg.Elevation.Dataset, cfg.Elevation.Cols),
		Vectors:   overpass.New(cfg.Overpass.URL, time.Duration(cfg.Overpass.TimeoutSeconds)*time.Second),
	}

	// Use cases
	stitcher := usecases.NewStitchService(cfg.Poster.StitchToleranceM, cfg.Poster.StitchMaxGapM)
	areas := usecases.NewAreaService(cfg.Poster.MarginFraction, cfg.Poster.MinAreaExtentM)
	cache := usecases.NewLayerCache(fetcher, store, cfg.Poster.AreaToleranceDeg, cfg.Poster.PayloadTTLSeconds)
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
	session := usecases.NewSession(stitcher, areas, cache, detector, planner, events, cfg.Poster.ClosedTrackM)

	deps := &http.Dependencies{
		Session: session,
		DB:      db,
		Store:   store != nil,
		Events:  events != nil,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    32 * 1024 * 1024, // multi-day GPX uploads
		AppName:      "TrailPoster API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
