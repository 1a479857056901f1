//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_analyzer.go -package=mocks github.com/jo-hoe/plantaid/internal/upload Analyzer

// Package upload sends preprocessed images to the remote analysis endpoint.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultURL       = "http://localhost:3000/analysePlantImage"
	DefaultFieldName = "image"
	DefaultTimeout   = 30 * time.Second

	// NotSuccessfulResult is stored when the endpoint answers with a non-2xx status
	NotSuccessfulResult = "Response was not successful."

	placeholderSuffix = "This is a test result"
	// javaDateLayout mirrors the format of java.util.Date#toString
	javaDateLayout = "Mon Jan 02 15:04:05 MST 2006"
)

// Analyzer returns the analysis text for an image file.
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string) (string, error)
}

// Client posts images as multipart/form-data.
type Client struct {
	url        string
	fieldName  string
	httpClient *http.Client
}

func NewClient(url, fieldName string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if fieldName == "" {
		fieldName = DefaultFieldName
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:        url,
		fieldName:  fieldName,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Analyze uploads the file at imagePath and returns the response body of a 2xx answer.
// Non-2xx answers yield a *StatusError, transport failures wrap ErrNetwork.
func (c *Client) Analyze(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read %s: %v", ErrInvalidInput, imagePath, err)
	}

	body, contentType, err := c.multipartBody(filepath.Base(imagePath), data)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", fmt.Errorf("failed to create analysis request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("analysis request failed", "url", c.url, "image", imagePath, "error", err)
		return "", fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResponseBody, err)
	}

	slog.Info("analysis response received",
		"url", c.url,
		"image", imagePath,
		"status", resp.StatusCode,
		"size_bytes", len(responseBody),
		"duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(responseBody)}
	}
	return string(responseBody), nil
}

func (c *Client) multipartBody(fileName string, data []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, c.fieldName, fileName))
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write multipart part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// PlaceholderResult is stored instead of an analysis when the endpoint is unreachable
func PlaceholderResult(now time.Time) string {
	return now.Format(javaDateLayout) + " " + placeholderSuffix
}

// IsNetworkError reports whether err came from an unreachable endpoint
func IsNetworkError(err error) bool {
	return errors.Is(err, ErrNetwork)
}
