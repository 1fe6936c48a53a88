// Package overpass fetches OSM vector layers through the Overpass API.
package overpass

import (
	"context"
	"fmt"
	"strconv"
	"time"

	overpass "github.com/MeKo-Christian/go-overpass"

	"github.com/mdenis/trailposter/internal/core/domain"
)

// Fetcher implements ports.LayerFetcher for the vector layer kinds.
type Fetcher struct {
	client  overpass.Client
	timeout time.Duration
}

// New creates a Fetcher against the given Overpass endpoint.
func New(endpoint string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		client:  overpass.NewWithSettings(endpoint, 1, nil),
		timeout: timeout,
	}
}

// Fetch runs the Overpass query for (area, kind) and maps the result to
// vector features.
func (f *Fetcher) Fetch(ctx context.Context, area domain.Area, kind domain.LayerKind) (*domain.LayerPayload, error) {
	q, ok := buildQuery(area, kind, int(f.timeout.Seconds()))
	if !ok {
		return nil, fmt.Errorf("overpass fetcher cannot serve layer kind %q", kind)
	}

	// The client has no context support; run the blocking query aside and
	// abandon it on cancellation.
	type queryResult struct {
		res overpass.Result
		err error
	}
	ch := make(chan queryResult, 1)
	go func() {
		res, err := f.client.Query(q)
		ch <- queryResult{res: res, err: err}
	}()

	var res overpass.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("overpass query: %w", r.err)
		}
		res = r.res
	}

	payload := &domain.LayerPayload{Kind: kind, FetchedAt: time.Now()}
	switch kind {
	case domain.LayerPasses, domain.LayerHuts:
		payload.Vectors = nodeFeatures(res, kind)
	case domain.LayerBridges, domain.LayerRoads, domain.LayerWater:
		payload.Vectors = wayFeatures(res)
	}
	return payload, nil
}

func buildQuery(area domain.Area, kind domain.LayerKind, timeoutSecs int) (string, bool) {
	bbox := fmt.Sprintf("(%.5f,%.5f,%.5f,%.5f)", area.MinLat, area.MinLon, area.MaxLat, area.MaxLon)

	var body string
	switch kind {
	case domain.LayerPasses:
		body = fmt.Sprintf(`node["natural"="saddle"]%s;node["mountain_pass"="yes"]%s;`, bbox, bbox)
	case domain.LayerBridges:
		body = fmt.Sprintf(`way["man_made"="bridge"]%s;way["bridge"="yes"]["highway"]%s;`, bbox, bbox)
	case domain.LayerHuts:
		body = fmt.Sprintf(`node["tourism"~"alpine_hut|wilderness_hut|camp_site"]%s;`, bbox)
	case domain.LayerRoads:
		body = fmt.Sprintf(`way["highway"~"motorway|trunk|primary|secondary|tertiary|residential|unclassified"]%s;`, bbox)
	case domain.LayerWater:
		body = fmt.Sprintf(`way["natural"="water"]%s;way["waterway"~"river|riverbank|canal"]%s;`, bbox, bbox)
	default:
		return "", false
	}

	return fmt.Sprintf("[out:json][timeout:%d];(%s);out body;>;out skel qt;", timeoutSecs, body), true
}

// nodeFeatures maps tagged nodes. Pass candidates require both a name and
// an elevation tag; untagged member nodes are skipped.
func nodeFeatures(res overpass.Result, kind domain.LayerKind) []domain.VectorFeature {
	var out []domain.VectorFeature
	for id, node := range res.Nodes {
		if node == nil || len(node.Tags) == 0 {
			continue
		}
		name := node.Tags["name"]
		ele, hasEle := parseEle(node.Tags["ele"])
		if kind == domain.LayerPasses && (name == "" || !hasEle) {
			continue
		}
		out = append(out, domain.VectorFeature{
			ID:       id,
			Name:     name,
			Location: domain.GeoPoint{Lat: node.Lat, Lon: node.Lon},
			Ele:      ele,
			Tags:     node.Tags,
		})
	}
	return out
}

func wayFeatures(res overpass.Result) []domain.VectorFeature {
	var out []domain.VectorFeature
	for id, way := range res.Ways {
		if way == nil || len(way.Nodes) < 2 {
			continue
		}
		geom := make([]domain.GeoPoint, 0, len(way.Nodes))
		var latSum, lonSum float64
		for _, n := range way.Nodes {
			if n == nil {
				continue
			}
			geom = append(geom, domain.GeoPoint{Lat: n.Lat, Lon: n.Lon})
			latSum += n.Lat
			lonSum += n.Lon
		}
		if len(geom) < 2 {
			continue
		}
		out = append(out, domain.VectorFeature{
			ID:       id,
			Name:     way.Tags["name"],
			Location: domain.GeoPoint{Lat: latSum / float64(len(geom)), Lon: lonSum / float64(len(geom))},
			Geometry: geom,
			Tags:     way.Tags,
		})
	}
	return out
}

func parseEle(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
