package imageprocessing

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"
)

// RotateParams represents typed parameters for the rotate command
type RotateParams struct {
	// Degrees is the clockwise rotation applied when no EXIF orientation is used
	Degrees int
	// UseExif applies the source's EXIF orientation instead of Degrees when one is present
	UseExif bool
}

// NewRotateParamsFromMap creates RotateParams from a generic map
func NewRotateParamsFromMap(params map[string]any) (*RotateParams, error) {
	degrees := GetIntParam(params, "degrees", 0)
	if err := validateDegrees(degrees); err != nil {
		return nil, err
	}
	return &RotateParams{
		Degrees: degrees,
		UseExif: GetBoolParam(params, "useExif", true),
	}, nil
}

func validateDegrees(degrees int) error {
	switch degrees {
	case 0, 90, 180, 270:
		return nil
	default:
		return fmt.Errorf("invalid rotation: %d (must be 0, 90, 180 or 270)", degrees)
	}
}

// RotateCommand turns captured photos upright
type RotateCommand struct {
	name   string
	params *RotateParams
}

// NewRotateCommand creates a new rotate command from configuration parameters
func NewRotateCommand(params map[string]any) (Command, error) {
	typedParams, err := NewRotateParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &RotateCommand{name: "RotateCommand", params: typedParams}, nil
}

// NewRotateCommandWithParams creates a new rotate command from concrete typed parameters
func NewRotateCommandWithParams(degrees int, useExif bool) (*RotateCommand, error) {
	if err := validateDegrees(degrees); err != nil {
		return nil, err
	}
	return &RotateCommand{
		name:   "RotateCommand",
		params: &RotateParams{Degrees: degrees, UseExif: useExif},
	}, nil
}

// Name returns the command name
func (c *RotateCommand) Name() string {
	return c.name
}

// Execute rotates the frame. The returned frame carries no orientation since it is now upright.
func (c *RotateCommand) Execute(frame *Frame) (*Frame, error) {
	if c.params.UseExif && frame.Orientation != 0 {
		slog.Debug("RotateCommand: applying EXIF orientation", "orientation", frame.Orientation)
		return &Frame{Image: applyOrientation(frame.Image, frame.Orientation)}, nil
	}

	slog.Debug("RotateCommand: rotating clockwise", "degrees", c.params.Degrees)
	return &Frame{Image: rotateClockwise(frame.Image, c.params.Degrees)}, nil
}

// applyOrientation maps an EXIF orientation (1-8) to its upright image
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return flipHorizontal(img)
	case 3:
		return rotateClockwise(img, 180)
	case 4:
		return flipHorizontal(rotateClockwise(img, 180))
	case 5:
		return flipHorizontal(rotateClockwise(img, 90))
	case 6:
		return rotateClockwise(img, 90)
	case 7:
		return flipHorizontal(rotateClockwise(img, 270))
	case 8:
		return rotateClockwise(img, 270)
	default:
		return img
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// rotateClockwise rotates by 0, 90, 180 or 270 degrees
func rotateClockwise(img image.Image, degrees int) image.Image {
	if degrees%360 == 0 {
		return img
	}
	src := toRGBA(img)
	width := src.Bounds().Dx()
	height := src.Bounds().Dy()

	var dst *image.RGBA
	switch degrees {
	case 90:
		dst = image.NewRGBA(image.Rect(0, 0, height, width))
		parallelRows(height, func(y int) {
			for x := 0; x < width; x++ {
				// 90° clockwise: (x,y) -> (height-1-y, x)
				dst.SetRGBA(height-1-y, x, src.RGBAAt(x, y))
			}
		})
	case 180:
		dst = image.NewRGBA(image.Rect(0, 0, width, height))
		parallelRows(height, func(y int) {
			for x := 0; x < width; x++ {
				dst.SetRGBA(width-1-x, height-1-y, src.RGBAAt(x, y))
			}
		})
	case 270:
		dst = image.NewRGBA(image.Rect(0, 0, height, width))
		parallelRows(height, func(y int) {
			for x := 0; x < width; x++ {
				// 90° counterclockwise: (x,y) -> (y, width-1-x)
				dst.SetRGBA(y, width-1-x, src.RGBAAt(x, y))
			}
		})
	default:
		return img
	}
	return dst
}

func flipHorizontal(img image.Image) image.Image {
	src := toRGBA(img)
	width := src.Bounds().Dx()
	height := src.Bounds().Dy()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	parallelRows(height, func(y int) {
		for x := 0; x < width; x++ {
			dst.SetRGBA(width-1-x, y, src.RGBAAt(x, y))
		}
	})
	return dst
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("RotateCommand", NewRotateCommand); err != nil {
		panic(fmt.Sprintf("failed to register RotateCommand: %v", err))
	}
}
