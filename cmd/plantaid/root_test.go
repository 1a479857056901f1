package main

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jo-hoe/plantaid/internal/imageprocessing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs a fresh root command and captures its output
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestJPEG(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y += 5 {
		img.SetRGBA(y%width, y, color.RGBA{40, 160, 60, 255})
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func analysisServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("image"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

// isolate keeps the commands away from config files of the working directory
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("CONFIG_PATH", "")
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	return t.TempDir()
}

func imageLine(t *testing.T, stdout string) string {
	t.Helper()
	for _, line := range strings.Split(stdout, "\n") {
		if path, ok := strings.CutPrefix(line, "image: "); ok {
			return path
		}
	}
	t.Fatalf("no image line in output %q", stdout)
	return ""
}

func TestRootHelp(t *testing.T) {
	stdout, _, err := executeCommand(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "plantaid [command]")
	for _, name := range []string{"capture", "garden", "show", "serve"} {
		assert.Contains(t, stdout, name)
	}
}

func TestCaptureGardenShowDelete(t *testing.T) {
	dataDir := isolate(t)
	server := analysisServer(t, http.StatusOK, "Healthy leaf")
	photo := filepath.Join(t.TempDir(), "leaf.jpg")
	writeTestJPEG(t, photo, 1200, 1600)

	common := []string{"--data-dir", dataDir, "--analysis-url", server.URL}

	stdout, stderr, err := executeCommand(t, append([]string{"capture", photo}, common...)...)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stderr, "Image captured successfully and sent to backend!")
	assert.Contains(t, stdout, "Healthy leaf")
	imagePath := imageLine(t, stdout)
	assert.True(t, strings.HasPrefix(imagePath, dataDir), "image %s outside of data dir %s", imagePath, dataDir)
	assert.Contains(t, filepath.Base(imagePath), "processed_")
	data, err := os.ReadFile(imagePath)
	require.NoError(t, err)
	processed, _, err := imageprocessing.DecodeConfig(data)
	require.NoError(t, err)
	assert.Equal(t, 600, processed.Width)
	assert.Equal(t, 800, processed.Height)

	stdout, _, err = executeCommand(t, append([]string{"garden"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, imagePath)
	assert.Contains(t, stdout, "Healthy leaf")

	stdout, _, err = executeCommand(t, append([]string{"show", imagePath}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "result: ")
	assert.Contains(t, stdout, "Healthy leaf")

	stdout, _, err = executeCommand(t, append([]string{"garden", "--delete", imagePath}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "removed "+imagePath)

	stdout, _, err = executeCommand(t, append([]string{"garden"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Your garden is empty.")

	_, _, err = executeCommand(t, append([]string{"show", imagePath}, common...)...)
	assert.Error(t, err)
}

func TestCapture_StatusErrorIsRecorded(t *testing.T) {
	dataDir := isolate(t)
	server := analysisServer(t, http.StatusServiceUnavailable, "down")
	photo := filepath.Join(t.TempDir(), "leaf.jpg")
	writeTestJPEG(t, photo, 300, 400)

	stdout, stderr, err := executeCommand(t, "capture", photo,
		"--data-dir", dataDir,
		"--analysis-url", server.URL,
		"--preferences-type", "sqlite",
		"--preferences-connection", filepath.Join(dataDir, "prefs.sqlite"),
	)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stderr, "Error: 503")
	assert.Contains(t, stdout, "Response was not successful.")
}

func TestCapture_MissingFile(t *testing.T) {
	dataDir := isolate(t)
	_, stderr, err := executeCommand(t, "capture", filepath.Join(dataDir, "missing.jpg"), "--data-dir", dataDir)
	require.Error(t, err)
	assert.Contains(t, stderr, "Image capture failed!")
}

func TestShow_AnalysisResultOverride(t *testing.T) {
	dataDir := isolate(t)
	resultFile := filepath.Join(dataDir, "analysis.txt")
	require.NoError(t, os.WriteFile(resultFile, []byte("Needs more light\n"), 0o644))

	stdout, _, err := executeCommand(t, "show", "/photos/unknown.jpg", "--analysis-result", resultFile, "--data-dir", dataDir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "image: /photos/unknown.jpg")
	assert.Contains(t, stdout, "Needs more light")
}

func TestEnvironmentOverrides(t *testing.T) {
	dataDir := isolate(t)
	t.Setenv("PLANTAID_DATA_DIR", dataDir)
	t.Setenv("PLANTAID_LOG_LEVEL", "debug")

	stdout, _, err := executeCommand(t, "garden")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Your garden is empty.")
	assert.FileExists(t, filepath.Join(dataDir, "MyGardenPrefs.db"))
}

func TestConfigFile(t *testing.T) {
	dataDir := isolate(t)
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "dataDir: " + dataDir + "\npreferences:\n  type: sqlite\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	_, _, err := executeCommand(t, "garden", "--config", configPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dataDir, "MyGardenPrefs.db"))

	require.NoError(t, os.WriteFile(configPath, []byte("capture:\n  rotationDegrees: 45\n"), 0o644))
	_, _, err = executeCommand(t, "garden", "--config", configPath)
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "first", summary("  first\nsecond"))
	assert.Equal(t, "", summary(""))
	long := strings.Repeat("a", 100)
	assert.Equal(t, strings.Repeat("a", summaryLength-3)+"...", summary(long))
}
