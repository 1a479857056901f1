package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort              = 8080
	DefaultAnalysisURL       = "http://localhost:3000/analysePlantImage"
	DefaultAnalysisFieldName = "image"
	DefaultAnalysisTimeout   = 30 * time.Second
	DefaultMaxWidth          = 600
	DefaultMaxHeight         = 800
	DefaultRotationDegrees   = 0
	DefaultThumbnailWidth    = 240
	DefaultPreferencesType   = "bolt"
	DefaultPreferencesFile   = "MyGardenPrefs.db"
)

// CommandConfig represents a generic preprocessing command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Preferences struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

type Analysis struct {
	URL       string        `yaml:"url"`
	FieldName string        `yaml:"fieldName"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Capture struct {
	// RotationDegrees is applied to photos without an EXIF orientation (or to every
	// photo when UseExif is off). 90 suits raw sensor output of a back camera.
	RotationDegrees int  `yaml:"rotationDegrees"`
	UseExif         bool `yaml:"useExif"`
}

type ServiceConfig struct {
	Port           int             `yaml:"port"`
	LogLevel       string          `yaml:"logLevel"`
	DataDir        string          `yaml:"dataDir"`
	CaptureDir     string          `yaml:"captureDir"`
	ResultsDir     string          `yaml:"resultsDir"`
	ThumbnailWidth int             `yaml:"thumbnailWidth"`
	Preferences    Preferences     `yaml:"preferences"`
	Analysis       Analysis        `yaml:"analysis"`
	Capture        Capture         `yaml:"capture"`
	Commands       []CommandConfig `yaml:"commands"`
}

// LoadConfig loads configuration from the specified YAML file
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	return ParseConfig(data)
}

// ParseConfig parses YAML configuration data and applies defaults
func ParseConfig(data []byte) (*ServiceConfig, error) {
	config := ServiceConfig{
		Capture: Capture{RotationDegrees: DefaultRotationDegrees, UseExif: true},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Default returns a configuration with every default applied
func Default() *ServiceConfig {
	config := &ServiceConfig{
		Capture: Capture{RotationDegrees: DefaultRotationDegrees, UseExif: true},
	}
	config.ApplyDefaults()
	return config
}

// ApplyDefaults fills every unset field. Directory defaults are derived from DataDir.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.CaptureDir == "" {
		c.CaptureDir = filepath.Join(c.DataDir, "PlantAid")
	}
	if c.ResultsDir == "" {
		c.ResultsDir = filepath.Join(c.DataDir, "files")
	}
	if c.ThumbnailWidth == 0 {
		c.ThumbnailWidth = DefaultThumbnailWidth
	}
	if c.Preferences.Type == "" {
		c.Preferences.Type = DefaultPreferencesType
	}
	if c.Preferences.ConnectionString == "" && c.Preferences.Type != "redis" {
		c.Preferences.ConnectionString = filepath.Join(c.DataDir, DefaultPreferencesFile)
	}
	if c.Analysis.URL == "" {
		c.Analysis.URL = DefaultAnalysisURL
	}
	if c.Analysis.FieldName == "" {
		c.Analysis.FieldName = DefaultAnalysisFieldName
	}
	if c.Analysis.Timeout == 0 {
		c.Analysis.Timeout = DefaultAnalysisTimeout
	}
	if len(c.Commands) == 0 {
		c.Commands = []CommandConfig{
			{
				Name:   "FitCommand",
				Params: map[string]any{"maxWidth": DefaultMaxWidth, "maxHeight": DefaultMaxHeight},
			},
		}
	}
}

// Validate checks field values and the command list
func (c *ServiceConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	switch c.Capture.RotationDegrees {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("invalid rotationDegrees: %d (must be 0, 90, 180 or 270)", c.Capture.RotationDegrees)
	}
	if c.ThumbnailWidth < 0 {
		return fmt.Errorf("thumbnailWidth must be positive, got %d", c.ThumbnailWidth)
	}
	if c.Analysis.Timeout < 0 {
		return fmt.Errorf("analysis timeout must not be negative, got %s", c.Analysis.Timeout)
	}
	if err := validateCommands(c.Commands); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *ServiceConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDataDir moves DataDir and every path still derived from the previous DataDir
func (c *ServiceConfig) SetDataDir(dir string) {
	if dir == "" || dir == c.DataDir {
		return
	}
	previous := c.DataDir
	rebase := func(path string) string {
		rel, err := filepath.Rel(previous, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return path
		}
		return filepath.Join(dir, rel)
	}
	c.CaptureDir = rebase(c.CaptureDir)
	c.ResultsDir = rebase(c.ResultsDir)
	if c.Preferences.Type != "redis" && c.Preferences.ConnectionString != ":memory:" {
		c.Preferences.ConnectionString = rebase(c.Preferences.ConnectionString)
	}
	c.DataDir = dir
}

// EnsureDirectories creates the data, capture and results directories
func (c *ServiceConfig) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.CaptureDir, c.ResultsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		// Validate name is not empty
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}

		// Validate name is unique
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}

	return nil
}
