// Package geo handles globe projection and the geographic data structures
// used to seed pins.
package geo

import "fmt"

// GeoJSONFeatureCollection represents a collection of geographic features.
// It follows the standard GeoJSON structure.
type GeoJSONFeatureCollection struct {
	Type     string           `json:"type" yaml:"type"`
	Features []GeoJSONFeature `json:"features" yaml:"features"`
}

// GeoJSONFeature represents a single geographic feature with geometry and properties.
type GeoJSONFeature struct {
	Properties map[string]interface{} `json:"properties" yaml:"properties"`
	Type       string                 `json:"type" yaml:"type"`
	Geometry   GeoJSONGeometry        `json:"geometry" yaml:"geometry"`
}

// GeoJSONGeometry represents the geometry of a feature. Only Point is used.
type GeoJSONGeometry struct {
	Type        string    `json:"type" yaml:"type"`
	Coordinates []float64 `json:"coordinates" yaml:"coordinates"` // [Lon, Lat, Alt?]
}

// Location is a named point extracted from a feature collection.
type Location struct {
	Name     string
	Lat      float64
	Lon      float64
	Altitude float64 // zero when the feature has no third coordinate
}

// Locations extracts named points from the collection.
// Non-point features are skipped. The name comes from the "name" property;
// features without one get an empty name.
func (fc GeoJSONFeatureCollection) Locations() ([]Location, error) {
	out := make([]Location, 0, len(fc.Features))

	for i, f := range fc.Features {
		if f.Geometry.Type != "Point" {
			continue
		}
		if len(f.Geometry.Coordinates) < 2 {
			return nil, fmt.Errorf("feature %d: point needs at least 2 coordinates, got %d", i, len(f.Geometry.Coordinates))
		}

		loc := Location{
			Lon: f.Geometry.Coordinates[0],
			Lat: f.Geometry.Coordinates[1],
		}
		if len(f.Geometry.Coordinates) > 2 {
			loc.Altitude = f.Geometry.Coordinates[2]
		}
		if name, ok := f.Properties["name"].(string); ok {
			loc.Name = name
		}

		out = append(out, loc)
	}

	return out, nil
}
