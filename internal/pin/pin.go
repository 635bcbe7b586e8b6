// Package pin renders a single labeled marker on the globe: a connector line
// rising from the surface, an icon on top, a text label and a smoke plume.
//
// A Pin only builds scene objects and schedules animations. It must be used
// from the goroutine that ticks its Animator.
package pin

import (
	"image"
	"image/color"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/globepins/internal/animation"
	"github.com/woozymasta/globepins/internal/canvas"
	"github.com/woozymasta/globepins/internal/geo"
	"github.com/woozymasta/globepins/internal/scene"
	"github.com/woozymasta/globepins/internal/smoke"
)

const (
	labelFontSize = 18
	labelStagger  = 1.1
	labelDrop     = -15.0
	labelLift     = 30.0

	topCanvasSize = 20
	topSpriteSize = 20

	fadeDelay    = 1000 * time.Millisecond
	fadeDuration = 500 * time.Millisecond
	riseDuration = 1500 * time.Millisecond
)

var white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Scene receives the renderable objects of a pin.
type Scene interface {
	Add(obj scene.Object)
	Remove(obj scene.Object)
}

// SmokeProvider renders smoke plumes addressed by opaque handles.
type SmokeProvider interface {
	SetFire(lat, lon, altitude float64) smoke.Handle
	ChangeAltitude(altitude float64, h smoke.Handle)
	Extinguish(h smoke.Handle)
}

// Animator schedules tweens. Tick is driven by the caller's frame loop.
type Animator interface {
	Start(spec animation.Spec) *animation.Handle
}

// Rasterizer draws the textures of labels and markers.
type Rasterizer interface {
	CreateLabel(text string, fontSize float64, col string, fontFamily string) *image.RGBA
	RenderToCanvas(w, h int, drawFn func(img *image.RGBA)) *image.RGBA
}

// Projector maps latitude and longitude to a point on the globe surface.
type Projector func(lat, lon float64) geo.Vec3

type deps struct {
	project Projector
	raster  Rasterizer
	now     func() time.Time
	created time.Time
}

// Dep overrides one of the pin's environment defaults.
type Dep func(*deps)

// WithProjector replaces geo.MapPoint.
func WithProjector(p Projector) Dep {
	return func(d *deps) { d.project = p }
}

// WithRasterizer replaces canvas.Painter.
func WithRasterizer(r Rasterizer) Dep {
	return func(d *deps) { d.raster = r }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Dep {
	return func(d *deps) { d.now = now }
}

// WithCreated backdates the pin, e.g. when it is restored from storage.
func WithCreated(t time.Time) Dep {
	return func(d *deps) { d.created = t }
}

// Pin is one marker instance.
type Pin struct {
	lat      float64
	lon      float64
	text     string
	altitude float64
	created  time.Time
	opts     Resolved

	topVisible   bool
	labelVisible bool
	smokeVisible bool

	scene    Scene
	smoke    SmokeProvider
	animator Animator
	project  Projector
	now      func() time.Time

	point   geo.Vec3
	line    *scene.Line
	label   *scene.Sprite
	top     *scene.Sprite
	smokeID smoke.Handle

	// shown is the altitude most recently drawn, which lags altitude while
	// a change is in flight.
	shown float64
	// reach is the altitude of the line end, which differs from shown
	// during the intro rise.
	reach float64

	// generation is bumped by Remove; frames from older generations are dropped.
	generation uint64
	removed    bool

	fade  *animation.Handle
	rise  *animation.Handle
	climb *animation.Handle
}

// New builds a pin, schedules its intro animations and attaches it to sc.
// Inputs are not validated.
func New(
	lat, lon float64,
	text string,
	altitude float64,
	sc Scene,
	smokeProvider SmokeProvider,
	animator Animator,
	opts Options,
	extra ...Dep,
) *Pin {
	d := deps{
		project: geo.MapPoint,
		raster:  canvas.Painter{},
		now:     time.Now,
	}
	for _, fn := range extra {
		fn(&d)
	}

	resolved := opts.Resolve(text)

	p := &Pin{
		lat:          lat,
		lon:          lon,
		text:         text,
		altitude:     altitude,
		shown:        altitude,
		reach:        1,
		opts:         resolved,
		topVisible:   resolved.ShowTop,
		labelVisible: resolved.ShowLabel,
		smokeVisible: resolved.ShowSmoke,
		scene:        sc,
		smoke:        smokeProvider,
		animator:     animator,
		project:      d.project,
		now:          d.now,
	}
	p.created = d.created
	if p.created.IsZero() {
		p.created = p.now()
	}

	point := p.project(lat, lon)
	p.point = point

	// the line starts collapsed on the surface and grows outwards
	p.line = scene.NewLine(scene.LineMaterial{
		Color:   canvas.ColorOr(resolved.LineColor, white),
		Width:   resolved.LineWidth,
		Opacity: 1,
	}, point, point)

	labelCanvas := d.raster.CreateLabel(text, labelFontSize, resolved.LabelColor, resolved.Font)
	p.label = scene.NewSprite(scene.SpriteMaterial{
		Texture:   labelCanvas,
		DepthTest: true,
		Fog:       true,
	})
	p.label.Position = labelPosition(point, altitude)
	p.label.SetScale(float64(labelCanvas.Bounds().Dx()), float64(labelCanvas.Bounds().Dy()))

	topColor := canvas.ColorOr(resolved.TopColor, white)
	topCanvas := d.raster.RenderToCanvas(topCanvasSize, topCanvasSize, func(img *image.RGBA) {
		canvas.FillCircle(img, topCanvasSize/2, topCanvasSize/2, topCanvasSize/4, topColor)
	})
	p.top = scene.NewSprite(scene.SpriteMaterial{
		Texture:   topCanvas,
		DepthTest: true,
		Fog:       true,
	})
	p.top.SetScale(topSpriteSize, topSpriteSize)
	p.top.Position = point.Scale(altitude)

	if p.smokeVisible {
		p.smokeID = p.smoke.SetFire(lat, lon, altitude)
	}

	gen := p.generation

	if resolved.ShowTop || resolved.ShowLabel {
		p.fade = p.animator.Start(animation.Spec{
			From:     []float64{0},
			To:       []float64{1},
			Duration: fadeDuration,
			Delay:    fadeDelay,
			OnUpdate: func(v []float64) {
				if !p.alive(gen) {
					return
				}
				// visibility is read per frame so a hide during the fade wins
				p.top.Material.Opacity = opacityIf(p.topVisible, v[0])
				p.label.Material.Opacity = opacityIf(p.labelVisible, v[0])
			},
		})
	}

	p.rise = p.animator.Start(animation.Spec{
		From:     []float64{1},
		To:       []float64{altitude},
		Duration: riseDuration,
		Easing:   animation.ElasticOut,
		OnUpdate: func(v []float64) {
			if !p.alive(gen) {
				return
			}
			p.reach = v[0]
			p.line.SetVertex(1, point.Scale(v[0]))
		},
	})

	p.scene.Add(p.label)
	p.scene.Add(p.line)
	p.scene.Add(p.top)

	log.Debug().
		Str("pin", p.String()).
		Str("text", text).
		Float64("altitude", altitude).
		Bool("top", p.topVisible).
		Bool("label", p.labelVisible).
		Bool("smoke", p.smokeVisible).
		Msg("Pin created")

	return p
}

// ChangeAltitude animates the pin towards altitude. The committed Altitude
// only changes once the animation completes.
//
// A newer call supersedes one still in flight: the older animation is
// cancelled and the new one starts from the altitudes currently on screen,
// the line end included when the intro rise is still running.
func (p *Pin) ChangeAltitude(altitude float64) {
	if p.removed {
		return
	}

	point := p.project(p.lat, p.lon)
	p.point = point

	p.rise.Cancel()
	p.climb.Cancel()

	gen := p.generation

	log.Trace().
		Str("pin", p.String()).
		Float64("from", p.shown).
		Float64("reach", p.reach).
		Float64("to", altitude).
		Msg("Changing pin altitude")

	p.climb = p.animator.Start(animation.Spec{
		From:     []float64{p.shown, p.reach},
		To:       []float64{altitude, altitude},
		Duration: riseDuration,
		Easing:   animation.ElasticOut,
		OnUpdate: func(v []float64) {
			if !p.alive(gen) {
				return
			}
			alt := v[0]
			p.shown = alt

			if p.smokeVisible {
				p.smoke.ChangeAltitude(alt, p.smokeID)
			}
			if p.topVisible {
				p.top.Position = point.Scale(alt)
			}
			if p.labelVisible {
				p.label.Position = labelPosition(point, alt)
			}
			p.reach = v[1]
			p.line.SetVertex(1, point.Scale(v[1]))
		},
		OnComplete: func() {
			if !p.alive(gen) {
				return
			}
			p.altitude = altitude
		},
	})
}

// HideTop makes the marker icon transparent.
func (p *Pin) HideTop() {
	if p.removed || !p.topVisible {
		return
	}
	p.top.Material.Opacity = 0
	p.topVisible = false
}

// ShowTop makes the marker icon opaque.
func (p *Pin) ShowTop() {
	if p.removed || p.topVisible {
		return
	}
	p.top.Position = p.point.Scale(p.shown)
	p.top.Material.Opacity = 1
	p.topVisible = true
}

// HideLabel makes the label transparent.
func (p *Pin) HideLabel() {
	if p.removed || !p.labelVisible {
		return
	}
	p.label.Material.Opacity = 0
	p.labelVisible = false
}

// ShowLabel makes the label opaque.
func (p *Pin) ShowLabel() {
	if p.removed || p.labelVisible {
		return
	}
	p.label.Position = labelPosition(p.point, p.shown)
	p.label.Material.Opacity = 1
	p.labelVisible = true
}

// HideSmoke extinguishes the pin's smoke.
func (p *Pin) HideSmoke() {
	if p.removed || !p.smokeVisible {
		return
	}
	p.smoke.Extinguish(p.smokeID)
	p.smokeVisible = false
}

// ShowSmoke lights a new fire at the committed altitude. Any previous handle
// is dropped; cleaning it up is the provider's business.
func (p *Pin) ShowSmoke() {
	if p.removed || p.smokeVisible {
		return
	}
	p.smokeID = p.smoke.SetFire(p.lat, p.lon, p.altitude)
	p.smokeVisible = true
}

// Age returns the time elapsed since construction.
func (p *Pin) Age() time.Duration {
	return p.now().Sub(p.created)
}

// String returns "{lat}_{lon}", the pin's identity key.
func (p *Pin) String() string {
	return Key(p.lat, p.lon)
}

// Key formats the identity key for a location.
func Key(lat, lon float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "_" + strconv.FormatFloat(lon, 'f', -1, 64)
}

// Remove detaches the pin from the scene, puts out its smoke and cancels
// its animations. Calling Remove again does nothing.
func (p *Pin) Remove() {
	if p.removed {
		return
	}
	p.removed = true
	p.generation++

	p.fade.Cancel()
	p.rise.Cancel()
	p.climb.Cancel()

	p.scene.Remove(p.label)
	p.scene.Remove(p.line)
	p.scene.Remove(p.top)

	if p.smokeVisible {
		p.smoke.Extinguish(p.smokeID)
	}

	log.Debug().Str("pin", p.String()).Dur("age", p.Age()).Msg("Pin removed")
}

func (p *Pin) alive(gen uint64) bool {
	return !p.removed && p.generation == gen
}

// Lat returns the latitude in degrees.
func (p *Pin) Lat() float64 { return p.lat }

// Lon returns the longitude in degrees.
func (p *Pin) Lon() float64 { return p.lon }

// Text returns the label text.
func (p *Pin) Text() string { return p.text }

// Altitude returns the committed altitude.
func (p *Pin) Altitude() float64 { return p.altitude }

// Created returns the construction time.
func (p *Pin) Created() time.Time { return p.created }

// Options returns the resolved option set.
func (p *Pin) Options() Resolved { return p.opts }

// TopVisible reports the marker icon flag.
func (p *Pin) TopVisible() bool { return p.topVisible }

// LabelVisible reports the label flag.
func (p *Pin) LabelVisible() bool { return p.labelVisible }

// SmokeVisible reports the smoke flag.
func (p *Pin) SmokeVisible() bool { return p.smokeVisible }

// SmokeHandle returns the handle of the last fire lit for this pin.
func (p *Pin) SmokeHandle() smoke.Handle { return p.smokeID }

// Removed reports whether Remove was called.
func (p *Pin) Removed() bool { return p.removed }

// Line returns the connector line.
func (p *Pin) Line() *scene.Line { return p.line }

// Label returns the label sprite.
func (p *Pin) Label() *scene.Sprite { return p.label }

// Top returns the marker icon sprite.
func (p *Pin) Top() *scene.Sprite { return p.top }

// labelPosition offsets the label from the pin head: pushed outward, and
// below the head in the southern hemisphere or above it in the northern.
func labelPosition(point geo.Vec3, altitude float64) geo.Vec3 {
	nudge := labelLift
	if point.Y < 0 {
		nudge = labelDrop
	}
	return geo.Vec3{
		X: point.X * altitude * labelStagger,
		Y: point.Y*altitude + nudge,
		Z: point.Z * altitude * labelStagger,
	}
}

func opacityIf(visible bool, v float64) float64 {
	if visible {
		return v
	}
	return 0
}
