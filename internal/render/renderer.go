package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// ErrEmptyViewBox reports an SVG whose geometry has no area.
var ErrEmptyViewBox = errors.New("svg has an empty view box")

// Renderer turns icon content into a square, opaque raster of edge size.
type Renderer interface {
	Rasterize(content []byte, size int) (*image.NRGBA, error)
}

// SVGRenderer rasterizes SVG documents with oksvg and rasterx.
type SVGRenderer struct{}

// NewSVGRenderer returns the default renderer.
func NewSVGRenderer() SVGRenderer { return SVGRenderer{} }

// Rasterize scales the icon to fit size while keeping its aspect ratio and
// centers it on a white background.
func (SVGRenderer) Rasterize(content []byte, size int) (img *image.NRGBA, err error) {
	if size <= 0 {
		return nil, fmt.Errorf("render: invalid size %d", size)
	}
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("render: rasterizer panic: %v", r)
		}
	}()

	// currentColor is what most icon sets stroke with; draw it as black.
	icon, err := oksvg.ReadReplacingCurrentColor(bytes.NewReader(content), "#000000", oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("render: parse svg: %w", err)
	}
	vw, vh := icon.ViewBox.W, icon.ViewBox.H
	if vw <= 0 || vh <= 0 {
		return nil, ErrEmptyViewBox
	}

	scale := float64(size) / math.Max(vw, vh)
	w := max(1, int(math.Round(vw*scale)))
	h := max(1, int(math.Round(vh*scale)))
	icon.SetTarget(0, 0, float64(w), float64(h))

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, canvas, canvas.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)

	background := imaging.New(size, size, color.White)
	return imaging.OverlayCenter(background, canvas, 1.0), nil
}

// PNG rasterizes content with r and encodes it as PNG bytes.
func PNG(r Renderer, content []byte, size int) ([]byte, error) {
	img, err := r.Rasterize(content, size)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}
