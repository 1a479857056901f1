package imageprocessing

import (
	"fmt"
	"image"
	"log/slog"

	"golang.org/x/image/draw"
)

// FitWithin returns the dimensions of a bounding-box resize: the result keeps the
// aspect ratio of width x height and fits inside maxWidth x maxHeight.
// Dimensions already inside the box are returned unchanged; images are never enlarged.
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	aspectRatio := float64(width) / float64(height)
	newWidth, newHeight := width, height
	if aspectRatio > 1 {
		newWidth = maxWidth
		newHeight = int(float64(maxWidth) / aspectRatio)
	} else {
		newHeight = maxHeight
		newWidth = int(float64(maxHeight) * aspectRatio)
	}

	// the limiting side can differ from the one picked by orientation
	if newWidth > maxWidth {
		newWidth = maxWidth
		newHeight = int(float64(maxWidth) / aspectRatio)
	}
	if newHeight > maxHeight {
		newHeight = maxHeight
		newWidth = int(float64(maxHeight) * aspectRatio)
	}

	return max(newWidth, 1), max(newHeight, 1)
}

// scale resizes img to exactly width x height
func scale(img image.Image, width, height int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// FitParams represents typed parameters for the fit command
type FitParams struct {
	MaxWidth  int
	MaxHeight int
}

// NewFitParamsFromMap creates FitParams from a generic map
func NewFitParamsFromMap(params map[string]any) (*FitParams, error) {
	if err := ValidateRequiredParams(params, []string{"maxWidth", "maxHeight"}); err != nil {
		return nil, err
	}
	return newFitParams(GetIntParam(params, "maxWidth", 0), GetIntParam(params, "maxHeight", 0))
}

func newFitParams(maxWidth, maxHeight int) (*FitParams, error) {
	if maxWidth <= 0 {
		return nil, fmt.Errorf("maxWidth must be positive, got %d", maxWidth)
	}
	if maxHeight <= 0 {
		return nil, fmt.Errorf("maxHeight must be positive, got %d", maxHeight)
	}
	return &FitParams{MaxWidth: maxWidth, MaxHeight: maxHeight}, nil
}

// FitCommand downscales images to fit a bounding box, preserving the aspect ratio
type FitCommand struct {
	name   string
	params *FitParams
}

// NewFitCommand creates a new fit command from configuration parameters
func NewFitCommand(params map[string]any) (Command, error) {
	typedParams, err := NewFitParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &FitCommand{name: "FitCommand", params: typedParams}, nil
}

// NewFitCommandWithParams creates a new fit command from concrete typed parameters
func NewFitCommandWithParams(maxWidth, maxHeight int) (*FitCommand, error) {
	typedParams, err := newFitParams(maxWidth, maxHeight)
	if err != nil {
		return nil, err
	}
	return &FitCommand{name: "FitCommand", params: typedParams}, nil
}

// Name returns the command name
func (c *FitCommand) Name() string {
	return c.name
}

// Execute resizes the frame when it exceeds the bounding box
func (c *FitCommand) Execute(frame *Frame) (*Frame, error) {
	bounds := frame.Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("cannot fit empty image %dx%d", width, height)
	}

	newWidth, newHeight := FitWithin(width, height, c.params.MaxWidth, c.params.MaxHeight)
	slog.Debug("FitCommand: calculated dimensions",
		"original_width", width,
		"original_height", height,
		"max_width", c.params.MaxWidth,
		"max_height", c.params.MaxHeight,
		"new_width", newWidth,
		"new_height", newHeight)

	if newWidth == width && newHeight == height {
		return frame, nil
	}
	return &Frame{Image: scale(frame.Image, newWidth, newHeight), Orientation: frame.Orientation}, nil
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("FitCommand", NewFitCommand); err != nil {
		panic(fmt.Sprintf("failed to register FitCommand: %v", err))
	}
}
