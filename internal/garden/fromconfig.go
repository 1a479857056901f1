package garden

import (
	"fmt"
	"log/slog"

	"github.com/jo-hoe/plantaid/internal/capture"
	"github.com/jo-hoe/plantaid/internal/config"
	"github.com/jo-hoe/plantaid/internal/imageprocessing"
	"github.com/jo-hoe/plantaid/internal/preferences"
	"github.com/jo-hoe/plantaid/internal/upload"
)

// captureQueueSize bounds how many captures may wait for the worker
const captureQueueSize = 16

// NewServiceFromConfig wires the store, capture worker, preprocessing pipeline and
// upload client described by cfg
func NewServiceFromConfig(cfg *config.ServiceConfig) (*Service, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	invoker, err := imageprocessing.NewCommandInvokerFromConfigs(toCommandConfigs(cfg.Commands))
	if err != nil {
		return nil, fmt.Errorf("failed to build preprocessing pipeline: %w", err)
	}

	var rotate imageprocessing.Command
	if cfg.Capture.RotationDegrees != 0 || cfg.Capture.UseExif {
		rotate, err = imageprocessing.NewRotateCommandWithParams(cfg.Capture.RotationDegrees, cfg.Capture.UseExif)
		if err != nil {
			return nil, err
		}
	}

	store, err := preferences.NewStore(cfg.Preferences.Type, cfg.Preferences.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize preferences store: %w", err)
	}

	service, err := NewService(Dependencies{
		Store:        store,
		Capturer:     capture.NewCapturer(cfg.CaptureDir),
		Worker:       capture.NewWorker(captureQueueSize),
		Preprocessor: imageprocessing.NewPreprocessor(cfg.CaptureDir, rotate, invoker),
		Analyzer:     upload.NewClient(cfg.Analysis.URL, cfg.Analysis.FieldName, cfg.Analysis.Timeout),
		ResultsDir:   cfg.ResultsDir,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	slog.Info("garden service initialized",
		"preferences", cfg.Preferences.Type,
		"capture_dir", cfg.CaptureDir,
		"results_dir", cfg.ResultsDir,
		"analysis_url", cfg.Analysis.URL,
		"commands", len(cfg.Commands))
	return service, nil
}

func toCommandConfigs(commands []config.CommandConfig) []imageprocessing.CommandConfig {
	configs := make([]imageprocessing.CommandConfig, 0, len(commands))
	for _, command := range commands {
		configs = append(configs, imageprocessing.CommandConfig{
			Name:   command.Name,
			Params: command.Params,
		})
	}
	return configs
}
