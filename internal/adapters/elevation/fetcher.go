// Package elevation fetches terrain rasters by sampling a DEM lookup API
// (opentopodata-compatible) over a grid covering the area.
package elevation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/mdenis/trailposter/internal/core/domain"
)

const batchSize = 100

// Fetcher implements ports.LayerFetcher for the elevation raster kind.
type Fetcher struct {
	baseURL string
	dataset string
	cols    int
	client  *http.Client
}

// New creates a Fetcher. cols controls the raster resolution; rows follow
// from the area aspect ratio.
func New(baseURL, dataset string, cols int) *Fetcher {
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		dataset: dataset,
		cols:    cols,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type apiResponse struct {
	Results []struct {
		Elevation *float64 `json:"elevation"`
	} `json:"results"`
}

// Fetch samples the DEM over a cols x rows grid and returns the raster.
func (f *Fetcher) Fetch(ctx context.Context, area domain.Area, kind domain.LayerKind) (*domain.LayerPayload, error) {
	if kind != domain.LayerElevation {
		return nil, fmt.Errorf("elevation fetcher cannot serve layer kind %q", kind)
	}

	rows := int(math.Round(float64(f.cols) * area.LatSpan() / area.LonSpan()))
	if rows < 2 {
		rows = 2
	}

	locations := make([]string, 0, f.cols*rows)
	for y := 0; y < rows; y++ {
		lat := area.MaxLat - area.LatSpan()*float64(y)/float64(rows-1)
		for x := 0; x < f.cols; x++ {
			lon := area.MinLon + area.LonSpan()*float64(x)/float64(f.cols-1)
			locations = append(locations, fmt.Sprintf("%.5f,%.5f", lat, lon))
		}
	}

	values := make([]float64, 0, len(locations))
	for start := 0; start < len(locations); start += batchSize {
		end := start + batchSize
		if end > len(locations) {
			end = len(locations)
		}
		batch, err := f.lookup(ctx, locations[start:end])
		if err != nil {
			return nil, err
		}
		values = append(values, batch...)
	}

	return &domain.LayerPayload{
		Kind:      domain.LayerElevation,
		FetchedAt: time.Now(),
		Elevation: &domain.ElevationGrid{Cols: f.cols, Rows: rows, Values: values},
	}, nil
}

func (f *Fetcher) lookup(ctx context.Context, locations []string) ([]float64, error) {
	url := fmt.Sprintf("%s/v1/%s?locations=%s", f.baseURL, f.dataset, strings.Join(locations, "|"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dem request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dem request: unexpected status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("dem response: %w", err)
	}
	if len(body.Results) != len(locations) {
		return nil, fmt.Errorf("dem response: got %d results for %d locations", len(body.Results), len(locations))
	}

	out := make([]float64, len(body.Results))
	for i, r := range body.Results {
		if r.Elevation != nil {
			out[i] = *r.Elevation
		}
	}
	return out, nil
}
