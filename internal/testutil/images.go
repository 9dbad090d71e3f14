package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// leaf returns a w x h green image with a brown lesion in the middle.
func leaf(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			c := color.RGBA{G: 160, A: 255}
			if x > w/3 && x < 2*w/3 && y > h/3 && y < 2*h/3 {
				c = color.RGBA{R: 110, G: 70, B: 20, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

// LeafPNG encodes a small synthetic leaf as PNG.
func LeafPNG(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, leaf(16, 16)))
	return buf.Bytes()
}

// LeafJPEG encodes a small synthetic leaf as JPEG.
func LeafJPEG(t testing.TB) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, leaf(16, 16), nil))
	return buf.Bytes()
}
