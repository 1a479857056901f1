package imageprocessing

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"testing"
)

func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writeJPEG(t *testing.T, path string, width, height int) {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solidImage(width, height, color.RGBA{40, 160, 60, 255}), nil); err != nil {
		t.Fatalf("failed to encode test JPEG: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write test JPEG: %v", err)
	}
}

func imageSize(t *testing.T, path string) (int, int) {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer func() {
		_ = file.Close()
	}()
	config, _, err := image.DecodeConfig(file)
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return config.Width, config.Height
}
