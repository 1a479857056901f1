package imageprocessing

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestPreprocessor(t *testing.T, dir string, rotate Command) *Preprocessor {
	t.Helper()
	fit, err := NewFitCommandWithParams(600, 800)
	if err != nil {
		t.Fatalf("NewFitCommandWithParams error: %v", err)
	}
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC) }
	return NewPreprocessor(dir, rotate, NewCommandInvoker([]Command{fit})).WithClock(clock)
}

func TestPreprocessor_Preprocess(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeJPEG(t, src, 1200, 1600)

	preprocessor := newTestPreprocessor(t, dir, nil)
	output, err := preprocessor.Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}

	if filepath.Base(output) != "processed_IMG_20240501_123045.jpg" {
		t.Errorf("unexpected output name %q", filepath.Base(output))
	}
	if w, h := imageSize(t, output); w != 600 || h != 800 {
		t.Errorf("Expected 600x800, got %dx%d", w, h)
	}
	// the source is left as captured
	if w, h := imageSize(t, src); w != 1200 || h != 1600 {
		t.Errorf("Expected source to stay 1200x1600, got %dx%d", w, h)
	}
}

func TestPreprocessor_SmallImageIsRewritten(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.jpg")
	writeJPEG(t, src, 300, 200)

	preprocessor := newTestPreprocessor(t, dir, nil)
	output, err := preprocessor.Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}
	if output == src {
		t.Fatal("Expected a new file even when no resize is needed")
	}
	if w, h := imageSize(t, output); w != 300 || h != 200 {
		t.Errorf("Expected 300x200, got %dx%d", w, h)
	}
}

func TestPreprocessor_NameCollision(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeJPEG(t, src, 100, 100)

	preprocessor := newTestPreprocessor(t, dir, nil)
	first, err := preprocessor.Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess #1 error: %v", err)
	}
	second, err := preprocessor.Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess #2 error: %v", err)
	}
	if first == second {
		t.Fatalf("Expected distinct outputs, both were %s", first)
	}
	if !strings.HasSuffix(second, "_1.jpg") {
		t.Errorf("Expected suffixed second output, got %s", second)
	}
}

func TestPreprocessor_AcceptsPNG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "leaf.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, solidImage(1000, 500, marker().RGBAAt(1, 1))); err != nil {
		t.Fatalf("png.Encode error: %v", err)
	}
	if err := os.WriteFile(src, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	output, err := newTestPreprocessor(t, dir, nil).Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}
	file, err := os.Open(output)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer func() {
		_ = file.Close()
	}()
	config, format, err := image.DecodeConfig(file)
	if err != nil {
		t.Fatalf("DecodeConfig error: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("Expected jpeg output, got %s", format)
	}
	if config.Width != 600 || config.Height != 300 {
		t.Errorf("Expected 600x300, got %dx%d", config.Width, config.Height)
	}
}

func TestPreprocessor_InvalidSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	preprocessor := newTestPreprocessor(t, dir, nil)
	if _, err := preprocessor.Preprocess(src); err == nil {
		t.Error("Expected error for invalid image data")
	}
	if _, err := preprocessor.Preprocess(filepath.Join(dir, "missing.jpg")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestPreprocessor_Rotate(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "capture.jpg")
	writeJPEG(t, src, 1600, 1200)

	rotate, err := NewRotateCommandWithParams(90, true)
	if err != nil {
		t.Fatalf("NewRotateCommandWithParams error: %v", err)
	}
	preprocessor := newTestPreprocessor(t, dir, rotate)
	if err := preprocessor.Rotate(src); err != nil {
		t.Fatalf("Rotate error: %v", err)
	}
	if w, h := imageSize(t, src); w != 1200 || h != 1600 {
		t.Errorf("Expected rotated 1200x1600, got %dx%d", w, h)
	}

	// without a rotate command the file is untouched
	if err := newTestPreprocessor(t, dir, nil).Rotate(src); err != nil {
		t.Fatalf("Rotate without command error: %v", err)
	}
	if w, h := imageSize(t, src); w != 1200 || h != 1600 {
		t.Errorf("Expected unchanged 1200x1600, got %dx%d", w, h)
	}
}

func TestThumbnail(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")
	writeJPEG(t, src, 1200, 1600)
	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}

	thumbnail, err := Thumbnail(data, 240)
	if err != nil {
		t.Fatalf("Thumbnail error: %v", err)
	}
	config, _, err := image.DecodeConfig(bytes.NewReader(thumbnail))
	if err != nil {
		t.Fatalf("DecodeConfig error: %v", err)
	}
	if config.Width != 240 || config.Height != 320 {
		t.Errorf("Expected 240x320 thumbnail, got %dx%d", config.Width, config.Height)
	}

	if _, err := Thumbnail([]byte("garbage"), 240); err == nil {
		t.Error("Expected error for invalid image data")
	}
	if _, err := Thumbnail(data, 0); err == nil {
		t.Error("Expected error for zero width")
	}
}

func TestPlaceholder(t *testing.T) {
	data, err := Placeholder(120, 160)
	if err != nil {
		t.Fatalf("Placeholder error: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 160 {
		t.Errorf("Expected 120x160, got %dx%d", b.Dx(), b.Dy())
	}
	if _, err := Placeholder(0, 10); err == nil {
		t.Error("Expected error for invalid size")
	}
	if len(PlaceholderSVG()) == 0 {
		t.Error("Expected embedded placeholder SVG")
	}
}

func TestDecode_NoExif(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, marker()); err != nil {
		t.Fatalf("png.Encode error: %v", err)
	}
	frame, format, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if format != "png" {
		t.Errorf("Expected png, got %s", format)
	}
	if frame.Orientation != 0 {
		t.Errorf("Expected no orientation, got %d", frame.Orientation)
	}
}
