package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultMaxSourcePixels caps width x height of a source image when
// Limits.MaxSourcePixels is zero.
const DefaultMaxSourcePixels = 25_000_000

// ErrTooLarge is returned for images whose header declares more pixels than
// the source cap allows.
var ErrTooLarge = errors.New("image too large")

// Limits bounds the work done per portrait.
type Limits struct {
	MaxPixels       int // output side length; 0 keeps full resolution
	MaxSourcePixels int // source width x height; 0 = DefaultMaxSourcePixels
}

func (l Limits) sourceCap() int {
	if l.MaxSourcePixels > 0 {
		return l.MaxSourcePixels
	}
	return DefaultMaxSourcePixels
}

// Circularize center-crops an image to the largest square, optionally
// downscales it to MaxPixels on a side, masks it with a solid circle and
// encodes the result as PNG. The image header is checked against the source
// cap before any pixel is decoded.
func Circularize(data []byte, limits Limits) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(limits.sourceCap()) {
		return nil, fmt.Errorf("%w: %s image is %dx%d, cap is %d pixels", ErrTooLarge, format, cfg.Width, cfg.Height, limits.sourceCap())
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	b := src.Bounds()
	size := b.Dx()
	if b.Dy() < size {
		size = b.Dy()
	}
	if size == 0 {
		return nil, fmt.Errorf("%s image has no pixels", format)
	}

	origin := image.Pt(b.Min.X+(b.Dx()-size)/2, b.Min.Y+(b.Dy()-size)/2)
	square := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(square, square.Bounds(), src, origin, draw.Src)

	if maxPixels := limits.MaxPixels; maxPixels > 0 && size > maxPixels {
		scaled := image.NewNRGBA(image.Rect(0, 0, maxPixels, maxPixels))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), square, square.Bounds(), draw.Src, nil)
		square, size = scaled, maxPixels
	}

	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.DrawMask(out, out.Bounds(), square, image.Point{}, circleMask{size: size}, image.Point{}, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// circleMask is an opaque disc inscribed in a size x size square.
type circleMask struct {
	size int
}

func (c circleMask) ColorModel() color.Model { return color.AlphaModel }

func (c circleMask) Bounds() image.Rectangle { return image.Rect(0, 0, c.size, c.size) }

func (c circleMask) At(x, y int) color.Color {
	r := float64(c.size) / 2
	dx, dy := float64(x)+0.5-r, float64(y)+0.5-r
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}
