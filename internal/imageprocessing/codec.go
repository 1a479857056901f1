package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"

	_ "image/gif"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// JPEGQuality is used for every JPEG this package writes
const JPEGQuality = 90

// Decode decodes any registered image format and reads the EXIF orientation when present
func Decode(data []byte) (*Frame, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return &Frame{Image: img, Orientation: readOrientation(data)}, format, nil
}

// DecodeConfig reads the format and dimensions without decoding the pixels
func DecodeConfig(data []byte) (image.Config, string, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("failed to decode image config: %w", err)
	}
	return config, format, nil
}

// EncodeJPEG encodes the image as JPEG at JPEGQuality
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG image: %w", err)
	}
	return buf.Bytes(), nil
}

// readOrientation returns the EXIF orientation tag, or 0 when absent or unreadable
func readOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0
	}
	orientation, err := tag.Int(0)
	if err != nil || orientation < 1 || orientation > 8 {
		slog.Debug("ignoring invalid EXIF orientation", "value", orientation, "error", err)
		return 0
	}
	return orientation
}
