// Package canvas draws the small offscreen rasters used as sprite textures.
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// labelPadding is the transparent margin around label text, in pixels.
const labelPadding = 4

type faceKey struct {
	family string
	size   float64
}

var (
	facesMu sync.Mutex
	faces   = make(map[faceKey]font.Face)
)

// ParseColor parses "#rgb" or "#rrggbb" into an opaque RGBA colour.
func ParseColor(s string) (color.RGBA, error) {
	c, err := colorful.Hex(strings.TrimSpace(s))
	if err != nil {
		return color.RGBA{}, fmt.Errorf("parse color %q: %w", s, err)
	}

	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

// ColorOr parses s, falling back to def when s is not a valid hex colour.
func ColorOr(s string, def color.RGBA) color.RGBA {
	c, err := ParseColor(s)
	if err != nil {
		log.Warn().Err(err).Msg("Using fallback color")
		return def
	}
	return c
}

// RenderToCanvas allocates a transparent w×h surface and hands it to drawFn.
func RenderToCanvas(w, h int, drawFn func(img *image.RGBA)) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	if drawFn != nil {
		drawFn(img)
	}
	return img
}

// CreateLabel renders text onto a tightly sized transparent surface.
// fontFamily is matched loosely: monospace families (Inconsolata, Courier,
// anything containing "mono") use Go Mono, everything else Go Regular.
func CreateLabel(text string, fontSize float64, col string, fontFamily string) *image.RGBA {
	// opentype faces keep scratch buffers and must not be shared concurrently
	facesMu.Lock()
	defer facesMu.Unlock()

	face := lookupFace(fontFamily, fontSize)
	metrics := face.Metrics()

	advance := font.MeasureString(face, text).Ceil()
	ascent := metrics.Ascent.Ceil()
	height := ascent + metrics.Descent.Ceil() + 2*labelPadding
	width := advance + 2*labelPadding

	return RenderToCanvas(width, height, func(img *image.RGBA) {
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(ColorOr(col, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})),
			Face: face,
			Dot:  fixed.P(labelPadding, labelPadding+ascent),
		}
		d.DrawString(text)
	})
}

// FillCircle paints a solid disc centred on (cx, cy). Pixels whose centre
// falls inside the radius are painted.
func FillCircle(img *image.RGBA, cx, cy, r float64, col color.RGBA) {
	b := img.Bounds()
	r2 := r * r

	for y := b.Min.Y; y < b.Max.Y; y++ {
		dy := float64(y) + 0.5 - cy
		for x := b.Min.X; x < b.Max.X; x++ {
			dx := float64(x) + 0.5 - cx
			if dx*dx+dy*dy <= r2 {
				img.SetRGBA(x, y, col)
			}
		}
	}
}

// lookupFace must be called with facesMu held.
func lookupFace(family string, size float64) font.Face {
	family = resolveFamily(family)
	key := faceKey{family: family, size: size}

	if f, ok := faces[key]; ok {
		return f
	}

	src := goregular.TTF
	if family == "mono" {
		src = gomono.TTF
	}

	var face font.Face = basicfont.Face7x13
	parsed, err := opentype.Parse(src)
	if err == nil {
		face, err = opentype.NewFace(parsed, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}
	if err != nil {
		log.Warn().Err(err).Str("family", family).Msg("Falling back to bitmap font")
		face = basicfont.Face7x13
	}

	faces[key] = face
	return face
}

func resolveFamily(family string) string {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "mono"),
		strings.Contains(f, "inconsolata"),
		strings.Contains(f, "courier"),
		strings.Contains(f, "consol"):
		return "mono"
	default:
		return "sans"
	}
}

// Painter exposes the package drawing functions as a value so they can be
// injected where an interface is expected.
type Painter struct{}

// CreateLabel calls the package level CreateLabel.
func (Painter) CreateLabel(text string, fontSize float64, col string, fontFamily string) *image.RGBA {
	return CreateLabel(text, fontSize, col, fontFamily)
}

// RenderToCanvas calls the package level RenderToCanvas.
func (Painter) RenderToCanvas(w, h int, drawFn func(img *image.RGBA)) *image.RGBA {
	return RenderToCanvas(w, h, drawFn)
}
