package imageprocessing

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed placeholder.svg
var placeholderSVG []byte

// PlaceholderSVG returns the raw placeholder icon
func PlaceholderSVG() []byte {
	return placeholderSVG
}

// Placeholder renders the placeholder icon as a PNG of the given size.
// It stands in for garden images whose file is missing or unreadable.
func Placeholder(width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid placeholder size %dx%d", width, height)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(placeholderSVG))
	if err != nil {
		return nil, fmt.Errorf("failed to parse placeholder SVG: %w", err)
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, dst, dst.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode placeholder PNG: %w", err)
	}
	return buf.Bytes(), nil
}
