package geospatial

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// ErrNoArea is returned for boundaries that do not enclose any area
var ErrNoArea = errors.New("boundary has no polygonal area")

// ParseBoundary accepts a GeoJSON Feature, FeatureCollection or bare
// geometry and returns its polygonal part. Collections are merged into one
// MultiPolygon.
func ParseBoundary(data []byte) (orb.Geometry, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}

	var geometries []orb.Geometry
	switch envelope.Type {
	case "Feature":
		feature, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("invalid GeoJSON feature: %w", err)
		}
		geometries = append(geometries, feature.Geometry)
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("invalid GeoJSON feature collection: %w", err)
		}
		for _, f := range fc.Features {
			geometries = append(geometries, f.Geometry)
		}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("invalid GeoJSON geometry: %w", err)
		}
		geometries = append(geometries, g.Geometry())
	}

	var mp orb.MultiPolygon
	for _, g := range geometries {
		switch v := g.(type) {
		case orb.Polygon:
			mp = append(mp, v)
		case orb.MultiPolygon:
			mp = append(mp, v...)
		}
	}

	switch len(mp) {
	case 0:
		return nil, ErrNoArea
	case 1:
		return mp[0], nil
	default:
		return mp, nil
	}
}

// CalculateArea returns the geodesic area of a geometry in square meters
func CalculateArea(geometry orb.Geometry) float64 {
	return math.Abs(geo.Area(geometry))
}

// ConvertToHectares converts square meters to hectares
func ConvertToHectares(sqMeters float64) float64 {
	return sqMeters / 10000
}

// BoundaryArea parses a boundary and returns its area in hectares when
// hectares is set, square meters otherwise.
func BoundaryArea(data []byte, hectares bool) (float64, error) {
	g, err := ParseBoundary(data)
	if err != nil {
		return 0, err
	}
	area := CalculateArea(g)
	if area <= 0 {
		return 0, ErrNoArea
	}
	if hectares {
		return ConvertToHectares(area), nil
	}
	return area, nil
}
