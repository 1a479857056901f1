package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "processed_IMG_20240501_120000.jpg")
	if err := os.WriteFile(path, []byte("\xff\xd8\xff fake jpeg"), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
	return path
}

func TestClient_Analyze_Success(t *testing.T) {
	var gotFile, gotFileName, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			t.Errorf("expected multipart field 'image': %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer func() {
			_ = file.Close()
		}()
		data, _ := io.ReadAll(file)
		gotFile = string(data)
		gotFileName = header.Filename
		gotContentType = header.Header.Get("Content-Type")
		_, _ = w.Write([]byte("Healthy leaf"))
	}))
	defer server.Close()

	path := writeImage(t)
	client := NewClient(server.URL, "", time.Second)
	result, err := client.Analyze(context.Background(), path)
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if result != "Healthy leaf" {
		t.Errorf("expected verbatim body, got %q", result)
	}
	if gotFile != "\xff\xd8\xff fake jpeg" {
		t.Errorf("server received unexpected file content %q", gotFile)
	}
	if gotFileName != filepath.Base(path) {
		t.Errorf("expected file name %s, got %s", filepath.Base(path), gotFileName)
	}
	if gotContentType != "image/jpeg" {
		t.Errorf("expected image/jpeg part, got %s", gotContentType)
	}
}

func TestClient_Analyze_CustomFieldName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	result, err := NewClient(server.URL, "file", time.Second).Analyze(context.Background(), writeImage(t))
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if result != "ok" {
		t.Errorf("expected ok, got %q", result)
	}
}

func TestClient_Analyze_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", time.Second).Analyze(context.Background(), writeImage(t))
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", statusErr.StatusCode)
	}
	if !strings.Contains(statusErr.Body, "boom") {
		t.Errorf("expected body to be kept, got %q", statusErr.Body)
	}
	if IsNetworkError(err) {
		t.Error("status errors must not be reported as network errors")
	}
}

func TestClient_Analyze_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, "", time.Second).Analyze(context.Background(), writeImage(t))
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestClient_Analyze_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	_, err := NewClient(server.URL, "", 50*time.Millisecond).Analyze(context.Background(), writeImage(t))
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("expected ErrNetwork on timeout, got %v", err)
	}
}

func TestClient_Analyze_MissingFile(t *testing.T) {
	_, err := NewClient("http://127.0.0.1:1", "", time.Second).Analyze(context.Background(), "/does/not/exist.jpg")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("", "", 0)
	if client.url != DefaultURL {
		t.Errorf("expected default url, got %s", client.url)
	}
	if client.fieldName != DefaultFieldName {
		t.Errorf("expected default field name, got %s", client.fieldName)
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("expected default timeout, got %s", client.httpClient.Timeout)
	}
}

func TestPlaceholderResult(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 5, 3, 0, time.UTC)
	got := PlaceholderResult(now)
	if got != "Wed May 01 09:05:03 UTC 2024 This is a test result" {
		t.Errorf("unexpected placeholder %q", got)
	}
}
