package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jo-hoe/plantaid/internal/config"
	frontend "github.com/jo-hoe/plantaid/internal/frontend"
	"github.com/jo-hoe/plantaid/internal/garden"
)

func getConfigPath() string {
	// First check if config path is provided via environment variable
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath
	}

	// Default to config.yaml in current working directory
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	return filepath.Join(cwd, "config.yaml")
}

func main() {
	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("failed to load config from %s: %v", configPath, err)
		panic(err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	gardenService, err := garden.NewServiceFromConfig(cfg)
	if err != nil {
		slog.Error("failed to initialize garden service", "error", err)
		panic(err)
	}

	server := frontend.DefineServer()
	frontendService := frontend.NewFrontendService(cfg, gardenService)
	frontendService.SetRoutes(server)

	// Wait for interrupt signal to gracefully shutdown the server
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := frontend.Serve(ctx, server, cfg.Port); err != nil {
		log.Printf("%v", err)
	}

	if err := gardenService.Close(); err != nil {
		log.Printf("garden service close error: %v", err)
	}
}
