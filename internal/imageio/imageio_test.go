package imageio

import (
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"testing"

	"turmoric/internal/npy"
	"turmoric/internal/raster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderNpy(t *testing.T) {
	dir := t.TempDir()
	m := raster.NewMask(4, 5)
	m.Fill(1, 3, 1, 4, true)
	path := filepath.Join(dir, "cells.npy")
	require.NoError(t, npy.SaveMask(path, m))

	img, err := NewLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, img.Channels)
	assert.Equal(t, 1.0, img.At(1, 1, 0))
	assert.Equal(t, 0.0, img.At(0, 0, 0))
}

func TestLoaderUnsupported(t *testing.T) {
	l := NewLoader(nil)

	_, err := l.Load("/data/stack.nd2")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = l.Load("/data/stack.czi")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoaderMissingFile(t *testing.T) {
	_, err := NewLoader(nil).Load(filepath.Join(t.TempDir(), "nope.npy"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoaderRegisterOverrides(t *testing.T) {
	l := NewLoader(nil)
	called := false
	l.Register("TIF", func(string) (*raster.Image, error) {
		called = true
		return raster.NewImage(1, 1, 1, true), nil
	})

	_, err := l.Load("/x/y.tif")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, l.Extensions(), ".tif")
	assert.Contains(t, l.Extensions(), ".npy")
}

func TestDecodeStdRGB(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	src.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 150, B: 100, A: 255})

	path := filepath.Join(t.TempDir(), "rgb.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	img, err := DecodeStd(path)
	require.NoError(t, err)
	assert.Equal(t, 3, img.Channels)
	assert.True(t, img.Integer)
	assert.Equal(t, 20.0, img.At(0, 0, 1))
	assert.Equal(t, 200.0, img.At(0, 1, 0))
}

func TestFromImageGray16(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 2, 2))
	src.SetGray16(1, 1, color.Gray16{Y: 4095})

	img := FromImage(src)
	assert.Equal(t, 1, img.Channels)
	assert.Equal(t, 4095.0, img.At(1, 1, 0))
}

func TestExportMaskTIFFRoundTrip(t *testing.T) {
	m := raster.NewMask(6, 7)
	m.Fill(2, 5, 1, 3, true)
	path := filepath.Join(t.TempDir(), "mask.tif")
	require.NoError(t, ExportMaskTIFF(path, m))

	img, err := DecodeStd(path)
	require.NoError(t, err)
	require.Equal(t, 1, img.Channels)
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			want := 0.0
			if m.At(r, c) {
				want = 255
			}
			assert.Equal(t, want, img.At(r, c, 0), "pixel (%d,%d)", r, c)
		}
	}
}

func TestNormalize8(t *testing.T) {
	img := raster.NewImage(1, 4, 1, false)
	copy(img.Pix, []float64{-1, 0, 1, math.NaN()})
	assert.Equal(t, []uint8{0, 127, 255, 0}, Normalize8(img))

	flat := raster.NewImage(1, 3, 1, true)
	copy(flat.Pix, []float64{7, 7, 7})
	assert.Equal(t, []uint8{0, 0, 0}, Normalize8(flat))
}

func TestImageToStdRejectsTwoChannels(t *testing.T) {
	_, err := ImageToStd(raster.NewImage(2, 2, 2, true))
	assert.ErrorIs(t, err, raster.ErrDimensionality)
}
