package processor

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"sync"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog/log"
	xdraw "golang.org/x/image/draw"
)

// Frame is one rendered image in a sequence.
type Frame struct {
	Image *image.RGBA
	Index int
}

// FrameWriter encodes frames to numbered WebP files.
type FrameWriter struct {
	Dir         string
	Concurrency int
	Quality     int
	Size        int  // longest edge after downscaling, 0 keeps the source size
	Force       bool // overwrite existing files
}

type frameResult struct {
	err   error
	index int
	saved bool
}

// Path returns the output file for the frame index.
func (fw FrameWriter) Path(index int) string {
	return filepath.Join(fw.Dir, fmt.Sprintf("frame_%05d.webp", index))
}

// Write drains frames and writes each one with a pool of workers.
// It returns the number of files written and the first error seen.
func (fw FrameWriter) Write(frames <-chan Frame) (int, error) {
	if err := os.MkdirAll(fw.Dir, 0755); err != nil {
		return 0, err
	}

	concurrency := fw.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make(chan frameResult, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range frames {
				saved, err := fw.save(f)
				results <- frameResult{index: f.Index, saved: saved, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		written  int
		firstErr error
	)
	for res := range results {
		if res.err != nil {
			log.Error().Err(res.err).Int("frame", res.index).Msg("Failed to write frame")
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		if res.saved {
			written++
		}
	}

	return written, firstErr
}

func (fw FrameWriter) save(f Frame) (bool, error) {
	outPath := fw.Path(f.Index)

	if !fw.Force {
		if info, err := os.Stat(outPath); err == nil && info.Size() > 0 {
			log.Trace().Str("path", outPath).Msg("Frame exists, skipping")
			return false, nil
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return false, err
	}
	defer func() { _ = out.Close() }()

	img := fw.scale(f.Image)
	if err := webp.Encode(out, img, &webp.Options{Lossless: false, Quality: float32(fw.Quality)}); err != nil {
		return false, fmt.Errorf("encode frame %d: %w", f.Index, err)
	}

	return true, nil
}

// scale shrinks the frame so its longest edge equals Size.
func (fw FrameWriter) scale(src *image.RGBA) image.Image {
	b := src.Bounds()
	longest := max(b.Dx(), b.Dy())
	if fw.Size <= 0 || fw.Size >= longest {
		return src
	}

	w := b.Dx() * fw.Size / longest
	h := b.Dy() * fw.Size / longest
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	return dst
}
