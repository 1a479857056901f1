// Package results stores the plain-text analysis result of each image in its own file.
package results

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	filePrefix = "analysis_"
	fileSuffix = ".txt"

	// maxLineSize bounds a single line of a result file
	maxLineSize = 16 << 20
)

// FileName returns the result file name for an image: analysis_<base name>.txt
func FileName(imagePath string) string {
	return filePrefix + filepath.Base(imagePath) + fileSuffix
}

// Path returns the absolute result file path for an image inside dir
func Path(dir, imagePath string) (string, error) {
	return filepath.Abs(filepath.Join(dir, FileName(imagePath)))
}

// Write stores text as the result of imagePath, replacing any earlier result.
// The file is written to a temporary name and renamed into place.
func Write(dir, imagePath, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory %s: %w", dir, err)
	}
	path, err := Path(dir, imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve result path: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName(imagePath)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary result file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op once renamed
	}()

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write result file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to sync result file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close result file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to move result file into place: %w", err)
	}

	slog.Debug("analysis result written", "image_path", imagePath, "result_path", path, "size_bytes", len(text))
	return path, nil
}

// Read returns the content of a result file with its lines joined without
// separators, so multi-line results come back as a single line.
// A missing or unreadable file reads as the empty string.
func Read(path string) string {
	if path == "" {
		return ""
	}
	file, err := os.Open(path)
	if err != nil {
		slog.Warn("failed to open analysis result", "result_path", path, "error", err)
		return ""
	}
	defer func() {
		_ = file.Close()
	}()

	var b strings.Builder
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	scanner.Split(scanLines)
	for scanner.Scan() {
		b.Write(scanner.Bytes())
	}
	if err := scanner.Err(); err != nil {
		slog.Warn("failed to read analysis result", "result_path", path, "error", err)
	}
	return b.String()
}

// scanLines is a bufio.SplitFunc ending lines at "\n", "\r\n" or a lone "\r"
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// a trailing \r may still be followed by \n
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Remove deletes a result file; a file that is already gone is not an error
func Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove result file %s: %w", path, err)
	}
	return nil
}
