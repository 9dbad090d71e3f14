package classifier

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // Register decoders
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tphakala/cropdoc/internal/errors"
)

// MaxPixels bounds accepted image dimensions.
const MaxPixels = 64 * 1024 * 1024

// ImageInfo describes an encoded image without decoding its pixels.
type ImageInfo struct {
	Format string `json:"format"`
	MIME   string `json:"mime"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

var formatMIME = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// Inspect reads the image header and checks that the format is supported
// and the dimensions are sane.
func Inspect(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, imageError(fmt.Errorf("empty image"), "")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, imageError(fmt.Errorf("invalid image format: %w", err), "")
	}

	mime, ok := formatMIME[format]
	if !ok {
		return ImageInfo{}, imageError(fmt.Errorf("unsupported image format %q", format), format)
	}

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return ImageInfo{}, imageError(fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height), format)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return ImageInfo{}, imageError(fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height), format)
	}

	return ImageInfo{Format: format, MIME: mime, Width: cfg.Width, Height: cfg.Height}, nil
}

func imageError(err error, format string) error {
	b := errors.New(err).
		Component("classifier").
		Category(errors.CategoryImageDecode)
	if format != "" {
		b = b.Context("format", format)
	}
	return b.Build()
}
