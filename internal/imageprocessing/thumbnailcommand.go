package imageprocessing

import (
	"fmt"
)

// ThumbnailCommand scales images down to a fixed width for garden listings
type ThumbnailCommand struct {
	name  string
	width int
}

// NewThumbnailCommand creates a new thumbnail command from configuration parameters
func NewThumbnailCommand(params map[string]any) (Command, error) {
	if err := ValidateRequiredParams(params, []string{"width"}); err != nil {
		return nil, err
	}
	width := GetIntParam(params, "width", 0)
	if width <= 0 {
		return nil, fmt.Errorf("width must be positive, got %d", width)
	}
	return &ThumbnailCommand{name: "ThumbnailCommand", width: width}, nil
}

// Name returns the command name
func (c *ThumbnailCommand) Name() string {
	return c.name
}

// Execute scales the frame to the configured width. Narrower images are left untouched.
func (c *ThumbnailCommand) Execute(frame *Frame) (*Frame, error) {
	bounds := frame.Image.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= c.width {
		return frame, nil
	}
	newHeight := max(int(float64(height)*float64(c.width)/float64(width)), 1)
	return &Frame{Image: scale(frame.Image, c.width, newHeight)}, nil
}

func init() {
	// Register the command in the default registry
	if err := DefaultRegistry.Register("ThumbnailCommand", NewThumbnailCommand); err != nil {
		panic(fmt.Sprintf("failed to register ThumbnailCommand: %v", err))
	}
}
