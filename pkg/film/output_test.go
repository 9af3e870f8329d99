package film

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/df07/lightpath/pkg/core"
)

func TestSave(t *testing.T) {
	f := newTestFilm(t, 3, 2, FilterNone)
	sr := NewPerPixelResult(0.5, 0.5)
	sr.Radiance = core.Splat(1)
	sr.Alpha = 1
	f.AddSampleResult(&sr, 1)

	dir := t.TempDir()
	t.Run("png", func(t *testing.T) {
		path := filepath.Join(dir, "out.png")
		require.NoError(t, f.Save(path))
		file, err := os.Open(path)
		require.NoError(t, err)
		defer file.Close()
		img, err := png.Decode(file)
		require.NoError(t, err)
		assert.Equal(t, 3, img.Bounds().Dx())
		r, _, _, a := img.At(0, 0).RGBA()
		assert.Equal(t, uint32(0xffff), r)
		assert.Equal(t, uint32(0xffff), a)
	})
	t.Run("tiff", func(t *testing.T) {
		path := filepath.Join(dir, "out.tiff")
		require.NoError(t, f.Save(path))
		file, err := os.Open(path)
		require.NoError(t, err)
		defer file.Close()
		img, err := tiff.Decode(file)
		require.NoError(t, err)
		assert.Equal(t, 2, img.Bounds().Dy())
	})
	t.Run("unsupported", func(t *testing.T) {
		assert.ErrorIs(t, f.Save(filepath.Join(dir, "out.exr")), ErrUnsupportedFormat)
	})
}

func TestDisplayBufferIsClamped(t *testing.T) {
	f := newTestFilm(t, 1, 1, FilterNone)
	sr := NewPerPixelResult(0.5, 0.5)
	sr.Radiance = core.NewVec3(10, 0.25, 0)
	f.AddSampleResult(&sr, 1)
	f.UpdateScreenBuffer()

	out := make([]float64, 3)
	require.NoError(t, f.GetOutput(OutputRGBDisplay, out))
	assert.Equal(t, 1.0, out[0])
	assert.InDelta(t, 0.5325, out[1], 1e-3) // 0.25^(1/2.2)
	assert.Equal(t, 0.0, out[2])
}
