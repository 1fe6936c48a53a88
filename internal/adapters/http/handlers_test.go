package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/mdenis/trailposter/internal/adapters/http"
	"github.com/mdenis/trailposter/internal/adapters/layout"
	"github.com/mdenis/trailposter/internal/core/domain"
	"github.com/mdenis/trailposter/internal/core/usecases"
)

// ---- Stub LayerFetcher ----

type stubFetcher struct {
	fetchFn func(ctx context.Context, area domain.Area, kind domain.LayerKind) (*domain.LayerPayload, error)
}

func (s *stubFetcher) Fetch(ctx context.Context, area domain.Area, kind domain.LayerKind) (*domain.LayerPayload, error) {
	if s.fetchFn != nil {
		return s.fetchFn(ctx, area, kind)
	}
	return &domain.LayerPayload{Kind: kind}, nil
}

func makeDeps(fetcher *stubFetcher) *handler.Dependencies {
	stitcher := usecases.NewStitchService(50, 100000)
	areas := usecases.NewAreaService(0.1, 100)
	cache := usecases.NewLayerCache(fetcher, nil, 1e-5, 60)
	detector := usecases.NewDetectService(usecases.DetectConfig{
		PassProximityM:    50,
		PassDedupIndexTol: 3,
		BridgeLengthFrac:  0.7,
		BridgeMaxAngleDeg: 25,
		BridgeMinAspect:   0.1,
		BridgeMaxAspect:   0.75,
		BridgeMinLengthM:  40,
		HutRadiusM:        500,
	})
	solver := layout.NewSolver(300, 4, 60, 2)
	planner := usecases.NewAnnotationService(solver, usecases.AnnotationConfig{CharWidth: 6, LineHeight: 12})
	session := usecases.NewSession(stitcher, areas, cache, detector, planner, nil, 1000)
	return &handler.Dependencies{Session: session}
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New()
	handler.SetupRoutes(app, deps)
	return app
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

const tracksJSON = `{"days":[[
	{"lat":42.80,"lon":0.10,"ele":1200},
	{"lat":42.85,"lon":0.20,"ele":1500},
	{"lat":42.90,"lon":0.15,"ele":1300}
]]}`

const computeJSON = `{
	"paper":{"size":"A4","landscape":false},
	"canvas":{"width":420,"height":594,"reserved_top":50,"reserved_bottom":70},
	"meta":{"title":"Test","start_name":"Start","end_name":"End"}
}`

func postJSON(t *testing.T, app *fiber.App, path, body string) *fiber.App {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode >= 300 {
		t.Fatalf("POST %s: status %d: %s", path, resp.StatusCode, readBody(t, resp.Body))
	}
	return app
}

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(&stubFetcher{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestListPapers(t *testing.T) {
	app := setupApp(makeDeps(&stubFetcher{}))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/papers", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var sizes []domain.PaperSize
	if err := json.Unmarshal(readBody(t, resp.Body), &sizes); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sizes) != len(domain.StandardPaperSizes) {
		t.Errorf("expected %d sizes, got %d", len(domain.StandardPaperSizes), len(sizes))
	}
}

func TestLoadTracks(t *testing.T) {
	app := setupApp(makeDeps(&stubFetcher{}))

	req := httptest.NewRequest("POST", "/v1/tracks", strings.NewReader(tracksJSON))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var result struct {
		Days       int     `json:"days"`
		Points     int     `json:"points"`
		DistanceKM float64 `json:"distance_km"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Days != 1 || result.Points != 3 {
		t.Errorf("expected 1 day / 3 points, got %+v", result)
	}
	if result.DistanceKM <= 0 {
		t.Errorf("expected positive distance, got %f", result.DistanceKM)
	}
}

func TestLoadTracks_BadJSON(t *testing.T) {
	app := setupApp(makeDeps(&stubFetcher{}))

	req := httptest.NewRequest("POST", "/v1/tracks", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLoadTracks_Empty(t *testing.T) {
	app := setupApp(makeDeps(&stubFetcher{}))

	req := httptest.NewRequest("POST", "/v1/tracks", strings.NewReader(`{"days":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUploadGPX(t *testing.T) {
	app := setupApp(makeDeps(&stubFetcher{}))

	gpxBody := `<?xml version="1.0"?><gpx version="1.1" creator="t" xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg>` +
		`<trkpt lat="42.80" lon="0.10"><ele>1200</ele></trkpt>` +
		`<trkpt lat="42.90" lon="0.20"><ele>1400</ele></trkpt>` +
		`</trkseg></trk></gpx>`

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("files", "day1.gpx")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(gpxBody)); err != nil {
		t.Fatal(err)
	}
	w.Close()

	req := httptest.NewRequest("POST", "/v1/tracks/gpx", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
}

func TestCompute_WithoutTracks(t *testing.T) {
	app := setupApp(makeDeps(&stubFetcher{}))

	req := httptest.NewRequest("POST", "/v1/posters/compute", strings.NewReader(computeJSON))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 422 {
		t.Fatalf("expected 422 without tracks, got %d", resp.StatusCode)
	}
}

func TestCompute_UnknownPaper(t *testing.T) {
	app := setupApp(makeDeps(&stubFetcher{}))
	postJSON(t, app, "/v1/tracks", tracksJSON)

	body := strings.Replace(computeJSON, `"A4"`, `"B5"`, 1)
	req := httptest.NewRequest("POST", "/v1/posters/compute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for unknown paper, got %d", resp.StatusCode)
	}
}

func TestCompute_FullFlow(t *testing.T) {
	fetcher := &stubFetcher{
		fetchFn: func(ctx context.Context, area domain.Area, kind domain.LayerKind) (*domain.LayerPayload, error) {
			p := &domain.LayerPayload{Kind: kind}
			if kind == domain.LayerPasses {
				p.Vectors = []domain.VectorFeature{
					{Name: "Col du Test", Location: domain.GeoPoint{Lat: 42.85, Lon: 0.20}, Ele: 2115},
				}
			}
			return p, nil
		},
	}
	app := setupApp(makeDeps(fetcher))
	postJSON(t, app, "/v1/tracks", tracksJSON)

	req := httptest.NewRequest("POST", "/v1/posters/compute", strings.NewReader(computeJSON))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var bundle domain.PosterBundle
	if err := json.Unmarshal(readBody(t, resp.Body), &bundle); err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if len(bundle.Features) != 1 || bundle.Features[0].Name != "Col du Test" {
		t.Errorf("expected the detected pass in the bundle, got %+v", bundle.Features)
	}
	if len(bundle.Labels) == 0 {
		t.Error("expected label placements in the bundle")
	}

	// The bundle is retrievable afterwards.
	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/posters/last", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 for last bundle, got %d", resp.StatusCode)
	}

	// And exportable as GeoJSON.
	resp, _ = app.Test(httptest.NewRequest("GET", "/v1/posters/last/geojson", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 for geojson, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "geo+json") {
		t.Errorf("expected geo+json content type, got %q", ct)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(readBody(t, resp.Body), &fc); err != nil {
		t.Fatalf("decode geojson: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("expected FeatureCollection, got %q", fc.Type)
	}
	// track + 1 pass
	if len(fc.Features) != 2 {
		t.Errorf("expected 2 geojson features, got %d", len(fc.Features))
	}
}

func TestLastBundle_BeforeCompute(t *testing.T) {
	app := setupApp(makeDeps(&stubFetcher{}))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/posters/last", nil), -1)
	if resp.StatusCode != 404 {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCompute_UpstreamFailure(t *testing.T) {
	fetcher := &stubFetcher{
		fetchFn: func(ctx context.Context, area domain.Area, kind domain.LayerKind) (*domain.LayerPayload, error) {
			if kind == domain.LayerRoads {
				return nil, context.DeadlineExceeded
			}
			return &domain.LayerPayload{Kind: kind}, nil
		},
	}
	app := setupApp(makeDeps(fetcher))
	postJSON(t, app, "/v1/tracks", tracksJSON)

	req := httptest.NewRequest("POST", "/v1/posters/compute", strings.NewReader(computeJSON))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502 for upstream failure, got %d", resp.StatusCode)
	}
}
