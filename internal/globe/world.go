// Package globe hosts the live set of pins together with the scene graph,
// tween scheduler and smoke field they draw into.
package globe

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/globepins/internal/animation"
	"github.com/woozymasta/globepins/internal/canvas"
	"github.com/woozymasta/globepins/internal/config"
	"github.com/woozymasta/globepins/internal/geo"
	"github.com/woozymasta/globepins/internal/pin"
	"github.com/woozymasta/globepins/internal/scene"
	"github.com/woozymasta/globepins/internal/smoke"
)

var (
	// ErrPinExists is returned when a pin with the same key is already planted.
	ErrPinExists = errors.New("pin already exists")
	// ErrPinNotFound is returned for operations on an unknown key.
	ErrPinNotFound = errors.New("pin not found")
	// ErrUnknownElement is returned for an element name other than top, label or smoke.
	ErrUnknownElement = errors.New("unknown pin element")
)

// Element names a toggleable part of a pin.
type Element string

// Pin elements.
const (
	ElementTop   Element = "top"
	ElementLabel Element = "label"
	ElementSmoke Element = "smoke"
)

// ParseElement validates an element name.
func ParseElement(s string) (Element, error) {
	switch e := Element(s); e {
	case ElementTop, ElementLabel, ElementSmoke:
		return e, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownElement, s)
	}
}

// PinSpec describes a pin to plant. A zero Created means now.
type PinSpec struct {
	Created  time.Time   `json:"-"`
	Options  pin.Options `json:"options,omitempty"`
	Text     string      `json:"text"`
	Lat      float64     `json:"lat"`
	Lon      float64     `json:"lon"`
	Altitude float64     `json:"altitude"`
}

// PinInfo is a read-only view of a live pin.
type PinInfo struct {
	Created  time.Time    `json:"created"`
	Key      string       `json:"key"`
	Text     string       `json:"text"`
	Options  pin.Resolved `json:"options"`
	Lat      float64      `json:"lat"`
	Lon      float64      `json:"lon"`
	Altitude float64      `json:"altitude"`
	AgeMS    int64        `json:"age_ms"`
	Top      bool         `json:"top"`
	Label    bool         `json:"label"`
	Smoke    bool         `json:"smoke"`
}

// Snapshot is what a renderer sees of the world. It is only valid inside
// the View callback.
type Snapshot struct {
	Objects  []scene.Object
	Fires    []smoke.Fire
	Radius   float64
	Rotation float64 // radians about the polar axis
	Project  func(lat, lon float64) geo.Vec3
}

// Option tweaks a World.
type Option func(*World)

// WithClock replaces time.Now for pin ages and expiry.
func WithClock(now func() time.Time) Option {
	return func(w *World) { w.now = now }
}

// World owns every pin. All methods are safe for concurrent use.
type World struct {
	mu       sync.Mutex
	graph    *scene.Graph
	sched    *animation.Scheduler
	field    *smoke.Field
	pins     map[string]*pin.Pin
	defaults pin.Options

	radius   float64
	rotation float64
	spin     float64
	maxAge   time.Duration
	now      func() time.Time

	onExpire []func(key string)
}

// New creates an empty world from the globe settings.
func New(cfg config.Globe, defaults pin.Options, opts ...Option) *World {
	radius := cfg.Radius
	if radius <= 0 {
		radius = config.DefaultRadius
	}

	w := &World{
		graph:    scene.NewGraph(),
		sched:    animation.NewScheduler(),
		field:    smoke.NewField(canvas.ColorOr(cfg.SmokeColor, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})),
		pins:     make(map[string]*pin.Pin),
		defaults: defaults,
		radius:   radius,
		rotation: cfg.Rotation * math.Pi / 180,
		spin:     cfg.Spin * math.Pi / 180,
		maxAge:   cfg.MaxAge,
		now:      time.Now,
	}

	for _, fn := range opts {
		fn(w)
	}

	return w
}

// Project maps a location onto the globe surface in scene units.
func (w *World) Project(lat, lon float64) geo.Vec3 {
	return geo.MapPoint(lat, lon).Scale(w.radius)
}

// OnExpire registers fn to be called with the key of every pin removed
// because it outlived MaxAge.
func (w *World) OnExpire(fn func(key string)) {
	w.mu.Lock()
	w.onExpire = append(w.onExpire, fn)
	w.mu.Unlock()
}

// AddPin plants a new pin. The world defaults are applied under spec.Options.
func (w *World) AddPin(spec PinSpec) (PinInfo, error) {
	key := pin.Key(spec.Lat, spec.Lon)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.pins[key]; ok {
		return PinInfo{}, fmt.Errorf("%w: %s", ErrPinExists, key)
	}

	p := pin.New(
		spec.Lat, spec.Lon, spec.Text, spec.Altitude,
		w.graph, w.field, w.sched,
		w.defaults.Merge(spec.Options),
		pin.WithProjector(w.Project),
		pin.WithClock(w.now),
		pin.WithCreated(spec.Created),
	)
	w.pins[key] = p

	log.Info().
		Str("pin", key).
		Str("text", spec.Text).
		Float64("altitude", spec.Altitude).
		Int("pins", len(w.pins)).
		Msg("Pin added")

	return w.info(p), nil
}

// RemovePin takes a pin off the globe.
func (w *World) RemovePin(key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pins[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPinNotFound, key)
	}

	p.Remove()
	delete(w.pins, key)

	log.Info().Str("pin", key).Int("pins", len(w.pins)).Msg("Pin removed")
	return nil
}

// ChangeAltitude starts an altitude animation on the pin.
func (w *World) ChangeAltitude(key string, altitude float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pins[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPinNotFound, key)
	}

	p.ChangeAltitude(altitude)
	return nil
}

// SetVisibility shows or hides one element of a pin.
func (w *World) SetVisibility(key string, element Element, visible bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pins[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPinNotFound, key)
	}

	switch {
	case element == ElementTop && visible:
		p.ShowTop()
	case element == ElementTop:
		p.HideTop()
	case element == ElementLabel && visible:
		p.ShowLabel()
	case element == ElementLabel:
		p.HideLabel()
	case element == ElementSmoke && visible:
		p.ShowSmoke()
	case element == ElementSmoke:
		p.HideSmoke()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownElement, element)
	}

	return nil
}

// Pin returns the view of one pin.
func (w *World) Pin(key string) (PinInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pins[key]
	if !ok {
		return PinInfo{}, fmt.Errorf("%w: %s", ErrPinNotFound, key)
	}
	return w.info(p), nil
}

// Pins lists live pins ordered by key.
func (w *World) Pins() []PinInfo {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]PinInfo, 0, len(w.pins))
	for _, p := range w.pins {
		out = append(out, w.info(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of live pins.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pins)
}

// Step advances animations and globe spin by dt, then expires old pins.
func (w *World) Step(dt time.Duration) {
	w.mu.Lock()

	w.sched.Tick(dt)
	w.rotation = math.Mod(w.rotation+w.spin*dt.Seconds(), 2*math.Pi)

	var expired []string
	if w.maxAge > 0 {
		for key, p := range w.pins {
			if p.Age() > w.maxAge {
				p.Remove()
				delete(w.pins, key)
				expired = append(expired, key)
			}
		}
	}
	hooks := w.onExpire

	w.mu.Unlock()

	sort.Strings(expired)
	for _, key := range expired {
		log.Info().Str("pin", key).Dur("max_age", w.maxAge).Msg("Pin expired")
		for _, fn := range hooks {
			fn(key)
		}
	}
}

// Run steps the world at fps until ctx is cancelled.
func (w *World) Run(ctx context.Context, fps int) {
	if fps <= 0 {
		fps = config.DefaultFPS
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	log.Info().Int("fps", fps).Msg("World loop started")

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("World loop stopped")
			return
		case now := <-ticker.C:
			w.Step(now.Sub(last))
			last = now
		}
	}
}

// View calls fn with a consistent snapshot while holding the world lock.
func (w *World) View(fn func(s Snapshot)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	fn(Snapshot{
		Objects:  w.graph.Objects(),
		Fires:    w.field.Fires(),
		Radius:   w.radius,
		Rotation: w.rotation,
		Project:  w.Project,
	})
}

// Animating returns the number of tweens still scheduled.
func (w *World) Animating() int {
	return w.sched.Len()
}

func (w *World) info(p *pin.Pin) PinInfo {
	return PinInfo{
		Key:      p.String(),
		Text:     p.Text(),
		Lat:      p.Lat(),
		Lon:      p.Lon(),
		Altitude: p.Altitude(),
		Created:  p.Created(),
		AgeMS:    p.Age().Milliseconds(),
		Options:  p.Options(),
		Top:      p.TopVisible(),
		Label:    p.LabelVisible(),
		Smoke:    p.SmokeVisible(),
	}
}
