package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSONHandler exports the last computed bundle as a FeatureCollection:
// the journey as a LineString, overnight stops and detected features as
// Points. Useful for previewing the poster content on a regular slippy map.
func GeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bundle := deps.Session.Bundle()
		if bundle == nil {
			return errNotFound(c, "no poster computed yet")
		}

		fc := geojson.NewFeatureCollection()

		line := make(orb.LineString, 0, len(bundle.Journey.Points))
		for _, p := range bundle.Journey.Points {
			line = append(line, orb.Point{p.Lon, p.Lat})
		}
		track := geojson.NewFeature(line)
		track.Properties["kind"] = "track"
		track.Properties["distance_m"] = bundle.Journey.TotalDistM
		track.Properties["uphill_m"] = bundle.Journey.UphillM
		fc.Append(track)

		for i, stop := range bundle.Journey.Stops {
			f := geojson.NewFeature(orb.Point{stop.Anchor.Lon, stop.Anchor.Lat})
			f.Properties["kind"] = "stop"
			f.Properties["night"] = i + 1
			fc.Append(f)
		}

		for _, feat := range bundle.Features {
			f := geojson.NewFeature(orb.Point{feat.Location.Lon, feat.Location.Lat})
			f.Properties["kind"] = string(feat.Kind)
			f.Properties["name"] = feat.Name
			if feat.Elevation != 0 {
				f.Properties["ele"] = feat.Elevation
			}
			fc.Append(f)
		}

		data, err := fc.MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}
