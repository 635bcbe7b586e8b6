package canvas

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#8FD8D8")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x8f, G: 0xd8, B: 0xd8, A: 0xff}, c)

	c, err = ParseColor("#FFF")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, c)

	_, err = ParseColor("teal")
	assert.Error(t, err)
}

func TestColorOr(t *testing.T) {
	def := color.RGBA{R: 1, A: 0xff}
	assert.Equal(t, def, ColorOr("nope", def))
	assert.Equal(t, color.RGBA{A: 0xff}, ColorOr("#000000", def))
}

func TestRenderToCanvas(t *testing.T) {
	called := false
	img := RenderToCanvas(20, 10, func(img *image.RGBA) {
		called = true
		assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
	})

	assert.True(t, called)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())
}

func TestFillCircle(t *testing.T) {
	red := color.RGBA{R: 0xff, A: 0xff}
	img := RenderToCanvas(20, 20, func(img *image.RGBA) {
		FillCircle(img, 10, 10, 5, red)
	})

	assert.Equal(t, red, img.RGBAAt(10, 10))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(19, 19))
}

func TestCreateLabel(t *testing.T) {
	short := CreateLabel("A", 18, "#FFF", "Inconsolata")
	long := CreateLabel("Amsterdam", 18, "#FFF", "Inconsolata")

	assert.Greater(t, long.Bounds().Dx(), short.Bounds().Dx())
	assert.Equal(t, short.Bounds().Dy(), long.Bounds().Dy())

	painted := false
	b := long.Bounds()
	for y := b.Min.Y; y < b.Max.Y && !painted; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if long.RGBAAt(x, y).A > 0 {
				painted = true
				break
			}
		}
	}
	assert.True(t, painted, "label should contain glyph pixels")
}

func TestCreateLabel_Empty(t *testing.T) {
	img := CreateLabel("", 18, "#FFF", "sans-serif")
	assert.Equal(t, 2*labelPadding, img.Bounds().Dx())
}

func TestResolveFamily(t *testing.T) {
	assert.Equal(t, "mono", resolveFamily("Inconsolata"))
	assert.Equal(t, "mono", resolveFamily("Go Mono"))
	assert.Equal(t, "sans", resolveFamily("Helvetica"))
	assert.Equal(t, "sans", resolveFamily(""))
}
