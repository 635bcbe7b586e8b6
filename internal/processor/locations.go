// Package processor loads seed locations and writes rendered frames to disk.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/woozymasta/globepins/internal/geo"

	"github.com/rs/zerolog/log"
)

// flatLocation is one entry of a plain JSON array of places.
type flatLocation struct {
	Name   string   `json:"name"`
	NameEN string   `json:"nameEN"`
	Lat    float64  `json:"lat"`
	Lng    *float64 `json:"lng"`
	Lon    *float64 `json:"lon"`
}

// LoadLocations reads a location list from a local file or an http(s) URL.
// Both a GeoJSON FeatureCollection of points and a flat JSON array of
// {name, lat, lon|lng} objects are accepted.
func LoadLocations(ctx context.Context, client *http.Client, source string) ([]geo.Location, error) {
	data, err := readSource(ctx, client, source)
	if err != nil {
		return nil, err
	}

	locs, err := ParseLocations(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", source, err)
	}

	log.Info().
		Str("source", source).
		Int("count", len(locs)).
		Msg("Locations loaded")

	return locs, nil
}

// ParseLocations decodes either supported location format.
func ParseLocations(data []byte) ([]geo.Location, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty location data")
	}

	if trimmed[0] == '[' {
		return parseFlat(trimmed)
	}

	var fc geo.GeoJSONFeatureCollection
	if err := json.Unmarshal(trimmed, &fc); err != nil {
		return nil, err
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("unexpected GeoJSON type %q", fc.Type)
	}

	return fc.Locations()
}

func parseFlat(data []byte) ([]geo.Location, error) {
	var raw []flatLocation
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := make([]geo.Location, 0, len(raw))
	for i, l := range raw {
		lon := l.Lon
		if lon == nil {
			lon = l.Lng
		}
		if lon == nil {
			return nil, fmt.Errorf("entry %d: missing lon", i)
		}

		name := l.Name
		if name == "" {
			name = l.NameEN
		}

		out = append(out, geo.Location{Name: name, Lat: l.Lat, Lon: *lon})
	}

	return out, nil
}

func readSource(ctx context.Context, client *http.Client, source string) ([]byte, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.ReadFile(source)
	}

	log.Debug().Str("url", source).Msg("Downloading locations")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
