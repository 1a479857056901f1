// Package capture brings photos into the capture directory and runs capture jobs
// on a single background worker.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jo-hoe/plantaid/internal/imageprocessing"
)

// FileNameLayout names captured photos after their capture time
const FileNameLayout = "2006-01-02-15-04-05"

var (
	// ErrInvalidImage is returned when the captured data is not a decodable image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrWorkerClosed is returned for jobs submitted after Shutdown.
	ErrWorkerClosed = errors.New("capture worker closed")
)

// Capturer stores photos from a capture source under a timestamped name
type Capturer struct {
	dir string
	now func() time.Time
}

func NewCapturer(dir string) *Capturer {
	return &Capturer{dir: dir, now: time.Now}
}

// WithClock replaces the clock used for file names
func (c *Capturer) WithClock(now func() time.Time) *Capturer {
	c.now = now
	return c
}

// Capture reads an image from src and saves it as <yyyy-MM-dd-HH-mm-ss>.jpg in the
// capture directory. The absolute path of the new file is returned.
func (c *Capturer) Capture(ctx context.Context, src io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("failed to read capture source: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty capture", ErrInvalidImage)
	}
	config, format, err := imageprocessing.DecodeConfig(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	slog.Debug("capture source decoded", "format", format, "width", config.Width, "height", config.Height)

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create capture directory %s: %w", c.dir, err)
	}
	path, err := c.claimPath()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write captured image %s: %w", path, err)
	}

	slog.Info("image captured", "path", path, "size_bytes", len(data))
	return path, nil
}

// CaptureFile imports the photo at srcPath
func (c *Capturer) CaptureFile(ctx context.Context, srcPath string) (string, error) {
	file, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer func() {
		_ = file.Close()
	}()
	return c.Capture(ctx, file)
}

// claimPath creates the next free file name so that concurrent captures within the
// same second never share a file
func (c *Capturer) claimPath() (string, error) {
	base := c.now().Format(FileNameLayout)
	for i := 0; ; i++ {
		name := base + ".jpg"
		if i > 0 {
			name = fmt.Sprintf("%s-%d.jpg", base, i)
		}
		path, err := filepath.Abs(filepath.Join(c.dir, name))
		if err != nil {
			return "", err
		}
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		_ = file.Close()
		return path, nil
	}
}
