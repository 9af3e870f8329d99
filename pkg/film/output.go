package film

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/df07/lightpath/pkg/core"
)

var (
	// ErrMissingChannel is returned when reading a channel the film does not allocate
	ErrMissingChannel = errors.New("channel not allocated")
	// ErrBufferSize is returned when an output buffer is too small
	ErrBufferSize = errors.New("output buffer too small")
	// ErrUnsupportedFormat is returned by Save for unknown file extensions
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// OutputType selects what GetOutput writes
type OutputType int

const (
	OutputRGB         OutputType = iota // Merged linear radiance, 3 floats per pixel
	OutputRGBDisplay                    // Tone mapped display image, 3 floats per pixel
	OutputRGBADisplay                   // Tone mapped display image with alpha, 4 floats per pixel
	OutputAlpha                         // 1 float per pixel
	OutputDepth                         // 1 float per pixel
	OutputEmission                      // AOVs, 3 floats per pixel
	OutputDirectDiffuse
	OutputDirectGlossy
	OutputIndirectDiffuse
	OutputIndirectGlossy
	OutputIndirectSpecular
)

// Components returns the number of floats per pixel for t
func (t OutputType) Components() int {
	switch t {
	case OutputAlpha, OutputDepth:
		return 1
	case OutputRGBADisplay:
		return 4
	}
	return 3
}

// GetOutput writes the requested output into buffer in row-major order
func (f *Film) GetOutput(t OutputType, buffer []float64) error {
	n := f.PixelCount() * t.Components()
	if len(buffer) < n {
		return fmt.Errorf("%w: need %d, have %d", ErrBufferSize, n, len(buffer))
	}

	switch t {
	case OutputRGBDisplay:
		for i, p := range f.ScreenBuffer() {
			putVec3(buffer, i, p)
		}
		return nil
	case OutputRGBADisplay:
		alpha := make([]float64, f.PixelCount())
		if f.alpha != nil {
			f.mu.Lock()
			f.readAlpha(alpha)
			f.mu.Unlock()
		} else {
			for i := range alpha {
				alpha[i] = 1
			}
		}
		for i, p := range f.ScreenBuffer() {
			buffer[4*i] = p.X
			buffer[4*i+1] = p.Y
			buffer[4*i+2] = p.Z
			buffer[4*i+3] = alpha[i]
		}
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	w, h := f.opts.Width, f.opts.Height
	switch t {
	case OutputRGB:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				putVec3(buffer, y*w+x, f.pixel(x, y))
			}
		}
	case OutputAlpha:
		if f.alpha == nil {
			return fmt.Errorf("%w: alpha", ErrMissingChannel)
		}
		f.readAlpha(buffer)
	case OutputDepth:
		if f.depth == nil {
			return fmt.Errorf("%w: depth", ErrMissingChannel)
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				buffer[y*w+x] = f.depth.get(x, y, 0)
			}
		}
	default:
		if t < OutputEmission || t > OutputIndirectSpecular {
			return fmt.Errorf("unknown output type %d", t)
		}
		ch := aovOrder[t-OutputEmission]
		buf, ok := f.aovs[ch]
		if !ok {
			return fmt.Errorf("%w: aov %d", ErrMissingChannel, t)
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var c core.Vec3
				if wt := buf.get(x, y, 3); wt > 0 {
					c = core.NewVec3(buf.get(x, y, 0), buf.get(x, y, 1), buf.get(x, y, 2)).Multiply(1 / wt)
				}
				putVec3(buffer, y*w+x, c)
			}
		}
	}
	return nil
}

// readAlpha writes the filtered alpha of every pixel. f.mu must be held.
func (f *Film) readAlpha(buffer []float64) {
	w, h := f.opts.Width, f.opts.Height
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			a := 0.0
			if wt := f.alpha.get(x, y, 1); wt > 0 {
				a = f.alpha.get(x, y, 0) / wt
			}
			buffer[y*w+x] = a
		}
	}
}

func putVec3(buffer []float64, i int, v core.Vec3) {
	buffer[3*i] = v.X
	buffer[3*i+1] = v.Y
	buffer[3*i+2] = v.Z
}

// Image converts the display buffer to a 16-bit image with alpha.
// UpdateScreenBuffer must have been called first.
func (f *Film) Image() *image.NRGBA64 {
	w, h := f.opts.Width, f.opts.Height
	img := image.NewNRGBA64(image.Rect(0, 0, w, h))
	rgba := make([]float64, 4*w*h)
	_ = f.GetOutput(OutputRGBADisplay, rgba)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := 4 * (y*w + x)
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: to16(rgba[i]), G: to16(rgba[i+1]), B: to16(rgba[i+2]), A: to16(rgba[i+3]),
			})
		}
	}
	return img
}

// Image8 is the 8-bit version of Image
func (f *Film) Image8() *image.NRGBA {
	src := f.Image()
	img := image.NewNRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, image.Point{}, draw.Src)
	return img
}

func to16(v float64) uint16 {
	return uint16(math.Round(math.Max(0, math.Min(1, v)) * 65535))
}

// Save refreshes the display buffer and writes it as 8-bit PNG or 16-bit TIFF,
// chosen by file extension
func (f *Film) Save(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".png" && ext != ".tif" && ext != ".tiff" {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f.UpdateScreenBuffer()

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if ext == ".png" {
		err = png.Encode(file, f.Image8())
	} else {
		err = tiff.Encode(file, f.Image(), &tiff.Options{Compression: tiff.Deflate})
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return file.Close()
}
