// Package render rasterizes a globe snapshot with an orthographic camera.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/woozymasta/globepins/internal/canvas"
	"github.com/woozymasta/globepins/internal/config"
	"github.com/woozymasta/globepins/internal/geo"
	"github.com/woozymasta/globepins/internal/globe"
	"github.com/woozymasta/globepins/internal/scene"
)

const (
	// globeFill is the share of the shorter image side covered by the globe diameter.
	globeFill = 0.6

	puffCount  = 3
	puffRadius = 5.0
	puffRise   = 6.0
)

// Options configures a Renderer.
type Options struct {
	Width       int
	Height      int
	Background  color.RGBA
	Globe       color.RGBA
	SpriteScale float64 // sprite pixels per texture pixel, 0 means 0.5
}

// Renderer draws snapshots into new images.
type Renderer struct {
	opts Options
	now  func() time.Time
}

// New creates a renderer.
func New(opts Options) *Renderer {
	if opts.SpriteScale <= 0 {
		opts.SpriteScale = 0.5
	}
	return &Renderer{opts: opts, now: time.Now}
}

type camera struct {
	cx, cy   float64
	scale    float64 // pixels per scene unit
	radius   float64 // globe radius in scene units
	rotation float64
}

// project returns screen coordinates and whether the point is hidden
// behind the globe.
func (c camera) project(v geo.Vec3) (x, y float64, hidden bool) {
	r := v.RotateY(c.rotation)
	x = c.cx + r.X*c.scale
	y = c.cy - r.Y*c.scale
	hidden = r.Z < 0 && r.X*r.X+r.Y*r.Y < c.radius*c.radius
	return x, y, hidden
}

// Draw rasterizes s.
func (r *Renderer) Draw(s globe.Snapshot) *image.RGBA {
	w, h := r.opts.Width, r.opts.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(r.opts.Background), image.Point{}, draw.Src)

	radius := s.Radius
	if radius <= 0 {
		radius = 1
	}

	cam := camera{
		cx:       float64(w) / 2,
		cy:       float64(h) / 2,
		scale:    globeFill * float64(min(w, h)) / 2 / radius,
		radius:   radius,
		rotation: s.Rotation,
	}

	fillDisc(img, cam.cx, cam.cy, radius*cam.scale, r.opts.Globe, 1)

	for _, obj := range s.Objects {
		switch o := obj.(type) {
		case *scene.Line:
			r.drawLine(img, cam, o)
		case *scene.Sprite:
			r.drawSprite(img, cam, o)
		}
	}

	now := r.now()
	for _, f := range s.Fires {
		if s.Project == nil {
			break
		}
		x, y, hidden := cam.project(s.Project(f.Lat, f.Lon).Scale(f.Altitude))
		if hidden {
			continue
		}
		// puffs drift upward over a one second cycle
		phase := math.Mod(now.Sub(f.Started).Seconds(), 1)
		for i := 0; i < puffCount; i++ {
			t := (float64(i) + phase) / puffCount
			fillDisc(img, x, y-t*puffRise*puffCount, puffRadius*(1+t), f.Color, 0.35*(1-t))
		}
	}

	return img
}

func (r *Renderer) drawLine(img *image.RGBA, cam camera, l *scene.Line) {
	if l.Material.Opacity <= 0 || len(l.Vertices) < 2 {
		return
	}

	for i := 1; i < len(l.Vertices); i++ {
		x0, y0, hidden := cam.project(l.Vertices[i-1])
		if hidden {
			continue
		}
		x1, y1, _ := cam.project(l.Vertices[i])
		strokeLine(img, x0, y0, x1, y1, l.Material.Color, l.Material.Opacity)
	}
	l.NeedsUpdate = false
}

func (r *Renderer) drawSprite(img *image.RGBA, cam camera, s *scene.Sprite) {
	tex := s.Material.Texture
	if s.Material.Opacity <= 0 || tex == nil || tex.Bounds().Empty() {
		return
	}

	x, y, hidden := cam.project(s.Position)
	if hidden && s.Material.DepthTest {
		return
	}

	hw := s.ScaleX * r.opts.SpriteScale / 2
	hh := s.ScaleY * r.opts.SpriteScale / 2
	if offscreen(img.Bounds(), x-hw, y-hh, x+hw, y+hh) {
		return
	}
	dst := image.Rect(
		int(math.Round(x-hw)), int(math.Round(y-hh)),
		int(math.Round(x+hw)), int(math.Round(y+hh)),
	)
	if dst.Empty() || !dst.Overlaps(img.Bounds()) {
		return
	}

	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(clamp01(s.Material.Opacity) * 0xff))})
	xdraw.ApproxBiLinear.Scale(img, dst, tex, tex.Bounds(), draw.Over, &xdraw.Options{
		DstMask:  mask,
		DstMaskP: image.Point{},
	})
}

// strokeLine draws a one pixel line with Bresenham's algorithm. The segment
// is clipped to the image first so far away endpoints cost nothing.
func strokeLine(img *image.RGBA, x0f, y0f, x1f, y1f float64, c color.RGBA, alpha float64) {
	b := img.Bounds()
	x0f, y0f, x1f, y1f, ok := clipSegment(x0f, y0f, x1f, y1f,
		float64(b.Min.X), float64(b.Min.Y), float64(b.Max.X-1), float64(b.Max.Y-1))
	if !ok {
		return
	}

	x0, y0 := int(math.Round(x0f)), int(math.Round(y0f))
	x1, y1 := int(math.Round(x1f)), int(math.Round(y1f))

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	for {
		blend(img, x0, y0, c, alpha)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// clipSegment clips a segment to the rectangle with the Liang-Barsky
// algorithm. ok is false when nothing of the segment is inside or an
// endpoint is not finite.
func clipSegment(x0, y0, x1, y1, minX, minY, maxX, maxY float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	for _, v := range [...]float64{x0, y0, x1, y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, 0, 0, false
		}
	}
	if minX > maxX || minY > maxY {
		return 0, 0, 0, 0, false
	}

	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0

	edges := [4][2]float64{
		{-dx, x0 - minX},
		{dx, maxX - x0},
		{-dy, y0 - minY},
		{dy, maxY - y0},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, t)
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, t)
		}
	}

	clampX := func(v float64) float64 { return math.Max(minX, math.Min(maxX, v)) }
	clampY := func(v float64) float64 { return math.Max(minY, math.Min(maxY, v)) }

	return clampX(x0 + t0*dx), clampY(y0 + t0*dy), clampX(x0 + t1*dx), clampY(y0 + t1*dy), true
}

// offscreen reports whether the box misses b. Non-finite boxes count as offscreen.
func offscreen(b image.Rectangle, minX, minY, maxX, maxY float64) bool {
	inside := maxX >= float64(b.Min.X) && minX < float64(b.Max.X) &&
		maxY >= float64(b.Min.Y) && minY < float64(b.Max.Y)
	return !inside || math.IsInf(minX, 0) || math.IsInf(minY, 0) || math.IsInf(maxX, 0) || math.IsInf(maxY, 0)
}

func fillDisc(img *image.RGBA, cx, cy, r float64, c color.RGBA, alpha float64) {
	if offscreen(img.Bounds(), cx-r, cy-r, cx+r+1, cy+r+1) {
		return
	}
	b := img.Bounds().Intersect(image.Rect(
		int(math.Floor(cx-r)), int(math.Floor(cy-r)),
		int(math.Ceil(cx+r))+1, int(math.Ceil(cy+r))+1,
	))
	r2 := r * r

	for y := b.Min.Y; y < b.Max.Y; y++ {
		dy := float64(y) + 0.5 - cy
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			if dx*dx+dy*dy <= r2 {
				blend(img, x, y, c, alpha)
			}
		}
	}
}

// blend composites c at alpha over the pixel at (x, y).
func blend(img *image.RGBA, x, y int, c color.RGBA, alpha float64) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	a := clamp01(alpha) * float64(c.A) / 0xff
	if a <= 0 {
		return
	}

	dst := img.RGBAAt(x, y)
	mix := func(s, d uint8) uint8 {
		return uint8(math.Round(float64(s)*a + float64(d)*(1-a)))
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(c.R, dst.R),
		G: mix(c.G, dst.G),
		B: mix(c.B, dst.B),
		A: uint8(math.Round(0xff*a + float64(dst.A)*(1-a))),
	})
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// OptionsFrom builds renderer options from the configuration sections.
func OptionsFrom(r config.Render, g config.Globe) Options {
	return Options{
		Width:      r.Width,
		Height:     r.Height,
		Background: canvas.ColorOr(g.Background, color.RGBA{A: 0xff}),
		Globe:      canvas.ColorOr(g.Color, color.RGBA{R: 0x0b, G: 0x1f, B: 0x2a, A: 0xff}),
	}
}
