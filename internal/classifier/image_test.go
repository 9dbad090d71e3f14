package classifier

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/tphakala/cropdoc/internal/errors"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.RGBA{G: 200, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	var bmpBuf bytes.Buffer
	require.NoError(t, bmp.Encode(&bmpBuf, testImage(4, 3)))

	tests := []struct {
		name string
		data []byte
		want ImageInfo
	}{
		{"png", encodePNG(t, 8, 6), ImageInfo{Format: "png", MIME: "image/png", Width: 8, Height: 6}},
		{"jpeg", encodeJPEG(t, 16, 16), ImageInfo{Format: "jpeg", MIME: "image/jpeg", Width: 16, Height: 16}},
		{"bmp", bmpBuf.Bytes(), ImageInfo{Format: "bmp", MIME: "image/bmp", Width: 4, Height: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Inspect(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInspectRejectsNonImages(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty": nil,
		"text":  []byte("definitely not an image"),
		"truncated png": encodePNG(t, 8, 8)[:10],
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Inspect(data)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryImageDecode))
		})
	}
}
