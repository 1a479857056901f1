package imageprocessing

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

const processedPrefix = "processed_"

// Preprocessor turns captured photos into upload-ready JPEGs
type Preprocessor struct {
	outputDir string
	rotate    Command
	invoker   *CommandInvoker
	now       func() time.Time
}

// NewPreprocessor creates a preprocessor writing into outputDir. rotate may be nil to skip
// the upright step.
func NewPreprocessor(outputDir string, rotate Command, invoker *CommandInvoker) *Preprocessor {
	if invoker == nil {
		invoker = NewCommandInvoker(nil)
	}
	return &Preprocessor{
		outputDir: outputDir,
		rotate:    rotate,
		invoker:   invoker,
		now:       time.Now,
	}
}

// WithClock replaces the clock used for output file names
func (p *Preprocessor) WithClock(now func() time.Time) *Preprocessor {
	p.now = now
	return p
}

// Rotate turns the captured file upright and rewrites it in place as JPEG
func (p *Preprocessor) Rotate(path string) error {
	if p.rotate == nil {
		return nil
	}
	frame, err := decodeFile(path)
	if err != nil {
		return err
	}
	rotated, err := p.rotate.Execute(frame)
	if err != nil {
		return fmt.Errorf("failed to rotate %s: %w", path, err)
	}
	data, err := EncodeJPEG(rotated.Image)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	slog.Debug("captured image rotated", "path", path)
	return nil
}

// Preprocess runs the configured commands on srcPath and writes the result as a new
// JPEG in the output directory. Images already inside the bounds are still re-encoded.
func (p *Preprocessor) Preprocess(srcPath string) (string, error) {
	frame, err := decodeFile(srcPath)
	if err != nil {
		return "", err
	}

	processed, err := p.invoker.Execute(frame)
	if err != nil {
		return "", err
	}

	data, err := EncodeJPEG(processed.Image)
	if err != nil {
		return "", err
	}

	outputPath, err := p.nextOutputPath()
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(outputPath, data); err != nil {
		return "", err
	}

	slog.Info("image preprocessed",
		"source", srcPath,
		"output", outputPath,
		"width", processed.Image.Bounds().Dx(),
		"height", processed.Image.Bounds().Dy(),
		"size_bytes", len(data))
	return outputPath, nil
}

// nextOutputPath returns processed_IMG_<yyyyMMdd_HHmmss>.jpg, suffixed when the name is taken
func (p *Preprocessor) nextOutputPath() (string, error) {
	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", p.outputDir, err)
	}
	base := processedPrefix + "IMG_" + p.now().Format("20060102_150405")
	candidate := filepath.Join(p.outputDir, base+".jpg")
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return filepath.Abs(candidate)
		}
		candidate = filepath.Join(p.outputDir, fmt.Sprintf("%s_%d.jpg", base, i))
	}
}

// Thumbnail scales encoded image data to width and returns it as JPEG
func Thumbnail(data []byte, width int) ([]byte, error) {
	command, err := NewThumbnailCommand(map[string]any{"width": width})
	if err != nil {
		return nil, fmt.Errorf("failed to create thumbnail command: %w", err)
	}
	frame, _, err := Decode(data)
	if err != nil {
		return nil, err
	}
	// thumbnails are shown upright even when the stored file was never rotated
	frame = &Frame{Image: applyOrientation(frame.Image, frame.Orientation)}
	thumbnail, err := command.Execute(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail: %w", err)
	}
	return EncodeJPEG(thumbnail.Image)
}

func decodeFile(path string) (*Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	frame, _, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return frame, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
