package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Success(t *testing.T) {
	// Create a temporary directory for test files
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `port: 9090
dataDir: /var/lib/plantaid
preferences:
  type: sqlite
  connectionString: ":memory:"
analysis:
  url: http://10.0.2.2:3000/analysePlantImage
  fieldName: file
  timeout: 5s
capture:
  rotationDegrees: 0
  useExif: false
commands:
  - name: FitCommand
    maxWidth: 800
    maxHeight: 600
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port to be 9090, got %d", config.Port)
	}
	if config.Preferences.Type != "sqlite" {
		t.Errorf("Expected preferences type sqlite, got %q", config.Preferences.Type)
	}
	if config.Analysis.URL != "http://10.0.2.2:3000/analysePlantImage" {
		t.Errorf("unexpected analysis url %q", config.Analysis.URL)
	}
	if config.Analysis.FieldName != "file" {
		t.Errorf("Expected field name 'file', got %q", config.Analysis.FieldName)
	}
	if config.Analysis.Timeout != 5*time.Second {
		t.Errorf("Expected timeout 5s, got %s", config.Analysis.Timeout)
	}
	if config.Capture.RotationDegrees != 0 || config.Capture.UseExif {
		t.Errorf("Expected capture overrides to be kept, got %+v", config.Capture)
	}
	if config.CaptureDir != filepath.Join("/var/lib/plantaid", "PlantAid") {
		t.Errorf("Expected capture dir derived from data dir, got %q", config.CaptureDir)
	}
	if len(config.Commands) != 1 || config.Commands[0].Params["maxWidth"] != 800 {
		t.Errorf("Expected one FitCommand with maxWidth 800, got %+v", config.Commands)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	config, err := LoadConfig("/path/that/does/not/exist/config.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}

func TestParseConfig_Defaults(t *testing.T) {
	config, err := ParseConfig([]byte("{}"))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	if config.Port != DefaultPort {
		t.Errorf("Expected default port, got %d", config.Port)
	}
	if config.Analysis.URL != DefaultAnalysisURL {
		t.Errorf("Expected default url, got %q", config.Analysis.URL)
	}
	if config.Analysis.Timeout != DefaultAnalysisTimeout {
		t.Errorf("Expected default timeout, got %s", config.Analysis.Timeout)
	}
	if config.Capture.RotationDegrees != DefaultRotationDegrees || !config.Capture.UseExif {
		t.Errorf("Expected default capture settings, got %+v", config.Capture)
	}
	if config.Preferences.Type != DefaultPreferencesType {
		t.Errorf("Expected default preferences type, got %q", config.Preferences.Type)
	}
	if config.Preferences.ConnectionString != filepath.Join("data", DefaultPreferencesFile) {
		t.Errorf("unexpected default connection string %q", config.Preferences.ConnectionString)
	}
	if len(config.Commands) != 1 || config.Commands[0].Name != "FitCommand" {
		t.Errorf("Expected default FitCommand, got %+v", config.Commands)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"Invalid yaml", "port: [1"},
		{"Invalid rotation", "capture:\n  rotationDegrees: 45"},
		{"Invalid port", "port: 70000"},
		{"Empty command name", "commands:\n  - maxWidth: 10"},
		{"Duplicate command", "commands:\n  - name: FitCommand\n  - name: FitCommand"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseConfig([]byte(tt.content)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestRedisHasNoDefaultConnectionString(t *testing.T) {
	config, err := ParseConfig([]byte("preferences:\n  type: redis"))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if config.Preferences.ConnectionString != "" {
		t.Errorf("Expected empty connection string for redis, got %q", config.Preferences.ConnectionString)
	}
}

func TestEnsureDirectories(t *testing.T) {
	config := Default()
	config.DataDir = t.TempDir()
	config.CaptureDir = filepath.Join(config.DataDir, "capture")
	config.ResultsDir = filepath.Join(config.DataDir, "results")

	if err := config.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{config.CaptureDir, config.ResultsDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("Expected directory %s to exist", dir)
		}
	}
}

func TestSetDataDir(t *testing.T) {
	config := Default()
	config.ResultsDir = "/srv/results"
	config.SetDataDir("/var/lib/plantaid")

	if config.DataDir != "/var/lib/plantaid" {
		t.Errorf("unexpected data dir %q", config.DataDir)
	}
	if config.CaptureDir != filepath.Join("/var/lib/plantaid", "PlantAid") {
		t.Errorf("expected capture dir to follow the data dir, got %q", config.CaptureDir)
	}
	if config.ResultsDir != "/srv/results" {
		t.Errorf("expected explicit results dir to be kept, got %q", config.ResultsDir)
	}
	if config.Preferences.ConnectionString != filepath.Join("/var/lib/plantaid", DefaultPreferencesFile) {
		t.Errorf("expected preferences file to follow the data dir, got %q", config.Preferences.ConnectionString)
	}
}
