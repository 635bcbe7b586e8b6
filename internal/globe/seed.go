package globe

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/globepins/internal/config"
	"github.com/woozymasta/globepins/internal/geo"
)

// Seed plants the configured pins followed by locs. Duplicates are skipped
// with a warning. It returns the number of pins planted.
func (w *World) Seed(pins []config.Pin, locs []geo.Location, altitude float64) int {
	specs := make([]PinSpec, 0, len(pins)+len(locs))

	for _, p := range pins {
		spec := PinSpec{Text: p.Text, Lat: p.Lat, Lon: p.Lon, Altitude: p.Altitude}
		if p.Options != nil {
			spec.Options = *p.Options
		}
		specs = append(specs, spec)
	}

	for _, l := range locs {
		alt := l.Altitude
		if alt == 0 {
			alt = altitude
		}
		specs = append(specs, PinSpec{Text: l.Name, Lat: l.Lat, Lon: l.Lon, Altitude: alt})
	}

	planted := 0
	for _, spec := range specs {
		if _, err := w.AddPin(spec); err != nil {
			if errors.Is(err, ErrPinExists) {
				log.Debug().Err(err).Msg("Skipping duplicate pin")
				continue
			}
			log.Error().Err(err).Msg("Failed to seed pin")
			continue
		}
		planted++
	}

	return planted
}
