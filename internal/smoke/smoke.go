// Package smoke keeps track of smoke emitters anchored to globe locations.
package smoke

import (
	"image/color"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handle addresses one fire. The zero value never refers to a live fire.
type Handle = uuid.UUID

// Fire is a snapshot of one emitter.
type Fire struct {
	Handle   Handle
	Lat      float64
	Lon      float64
	Altitude float64
	Color    color.RGBA
	Started  time.Time
}

// Field is an in-memory smoke provider. It is safe for concurrent use.
type Field struct {
	mu    sync.Mutex
	fires map[Handle]*Fire
	color color.RGBA
	now   func() time.Time
}

// NewField creates an empty field whose fires use col.
func NewField(col color.RGBA) *Field {
	return &Field{
		fires: make(map[Handle]*Fire),
		color: col,
		now:   time.Now,
	}
}

// SetFire starts a new emitter and returns its handle.
func (f *Field) SetFire(lat, lon, altitude float64) Handle {
	h := uuid.New()

	f.mu.Lock()
	f.fires[h] = &Fire{
		Handle:   h,
		Lat:      lat,
		Lon:      lon,
		Altitude: altitude,
		Color:    f.color,
		Started:  f.now(),
	}
	f.mu.Unlock()

	log.Trace().
		Str("handle", h.String()).
		Float64("lat", lat).
		Float64("lon", lon).
		Float64("altitude", altitude).
		Msg("Fire started")

	return h
}

// ChangeAltitude moves the emitter. Unknown handles are ignored.
func (f *Field) ChangeAltitude(altitude float64, h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if fire, ok := f.fires[h]; ok {
		fire.Altitude = altitude
	}
}

// Extinguish stops the emitter. Extinguishing an unknown or already
// extinguished handle is a no-op.
func (f *Field) Extinguish(h Handle) {
	f.mu.Lock()
	_, ok := f.fires[h]
	delete(f.fires, h)
	f.mu.Unlock()

	if !ok {
		log.Debug().Str("handle", h.String()).Msg("Extinguish on unknown fire ignored")
		return
	}
	log.Trace().Str("handle", h.String()).Msg("Fire extinguished")
}

// Lookup returns a copy of the fire addressed by h.
func (f *Field) Lookup(h Handle) (Fire, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fire, ok := f.fires[h]
	if !ok {
		return Fire{}, false
	}
	return *fire, true
}

// Len returns the number of burning fires.
func (f *Field) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fires)
}

// Fires returns a snapshot ordered by start time.
func (f *Field) Fires() []Fire {
	f.mu.Lock()
	out := make([]Fire, 0, len(f.fires))
	for _, fire := range f.fires {
		out = append(out, *fire)
	}
	f.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Started.Equal(out[j].Started) {
			return out[i].Started.Before(out[j].Started)
		}
		return out[i].Handle.String() < out[j].Handle.String()
	})
	return out
}
