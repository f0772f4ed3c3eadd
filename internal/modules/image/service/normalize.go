package service

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/samber/oops"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Normalizer fits images into a bounding box, drops color and re-encodes
// them as JPEG. Pure Go, no CGo.
type Normalizer struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// NewNormalizer creates a Normalizer; non-positive values fall back to
// 600x800 at quality 75.
func NewNormalizer(maxWidth, maxHeight, quality int) *Normalizer {
	if maxWidth <= 0 {
		maxWidth = 600
	}
	if maxHeight <= 0 {
		maxHeight = 800
	}
	if quality <= 0 || quality > 100 {
		quality = 75
	}
	return &Normalizer{MaxWidth: maxWidth, MaxHeight: maxHeight, Quality: quality}
}

// Normalize decodes data, shrinks it to fit MaxWidth x MaxHeight keeping the
// aspect ratio (never upscaling), converts to 8-bit grayscale and encodes JPEG.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, oops.Wrapf(errors.ErrParse, "empty image data")
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, oops.Wrapf(errors.ErrParse, "decode image: %v", err)
	}

	bounds := src.Bounds()
	width, height := FitWithin(bounds.Dx(), bounds.Dy(), n.MaxWidth, n.MaxHeight)
	if width == 0 || height == 0 {
		return nil, oops.With("format", format).Wrapf(errors.ErrParse, "degenerate image %dx%d", bounds.Dx(), bounds.Dy())
	}

	gray := image.NewGray(image.Rect(0, 0, width, height))
	if width == bounds.Dx() && height == bounds.Dy() {
		xdraw.Draw(gray, gray.Bounds(), src, bounds.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(gray, gray.Bounds(), src, bounds, xdraw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gray, &jpeg.Options{Quality: n.Quality}); err != nil {
		return nil, oops.Wrapf(errors.ErrParse, "encode JPEG: %v", err)
	}
	return buf.Bytes(), nil
}

// FitWithin scales width x height down to fit maxWidth x maxHeight,
// preserving the aspect ratio. Sizes already inside the box are unchanged.
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	// Compare width/maxWidth against height/maxHeight without floats
	if width*maxHeight >= height*maxWidth {
		return maxWidth, max(1, height*maxWidth/width)
	}
	return max(1, width*maxHeight/height), maxHeight
}
