package render

import (
	"image"
	"image/png"
	"io"

	"github.com/chai2010/webp"
)

// EncodeWebP writes img as lossy WebP.
func EncodeWebP(w io.Writer, img image.Image, quality int) error {
	return webp.Encode(w, img, &webp.Options{Lossless: false, Quality: float32(quality)})
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
