package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jo-hoe/plantaid/internal/config"
	"github.com/jo-hoe/plantaid/internal/garden"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "PLANTAID"

// cli holds the state shared by the commands of one root command
type cli struct {
	v   *viper.Viper
	cfg *config.ServiceConfig
}

func newRootCmd() *cobra.Command {
	app := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "plantaid",
		Short:         "Plant Aid - capture plant photos and keep their analysis in your garden",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to the config file (default $CONFIG_PATH or ./config.yaml)")
	flags.String("data-dir", "", "directory for captured images, result files and preferences")
	flags.String("analysis-url", "", "endpoint of the analysis backend")
	flags.String("preferences-type", "", "preferences backend: bolt, sqlite or redis")
	flags.String("preferences-connection", "", "connection string of the preferences backend")
	flags.String("log-level", "", "log level: debug, info, warn or error")

	app.v.SetEnvPrefix(envPrefix)
	app.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	app.v.AutomaticEnv()
	_ = app.v.BindPFlags(flags)

	rootCmd.AddCommand(
		newCaptureCmd(app),
		newGardenCmd(app),
		newShowCmd(app),
		newServeCmd(app),
	)
	return rootCmd
}

// load reads .env, the config file and the flag and environment overrides
func (app *cli) load(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := loadConfig(app.v.GetString("config"))
	if err != nil {
		return err
	}

	cfg.SetDataDir(app.v.GetString("data-dir"))
	if url := app.v.GetString("analysis-url"); url != "" {
		cfg.Analysis.URL = url
	}
	if storeType := app.v.GetString("preferences-type"); storeType != "" && storeType != cfg.Preferences.Type {
		cfg.Preferences.Type = storeType
		cfg.Preferences.ConnectionString = ""
		cfg.ApplyDefaults()
	}
	if connection := app.v.GetString("preferences-connection"); connection != "" {
		cfg.Preferences.ConnectionString = connection
	}
	if level := app.v.GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	app.cfg = cfg
	return nil
}

func loadConfig(path string) (*config.ServiceConfig, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		return config.LoadConfig(path)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path = filepath.Join(cwd, "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return config.Default(), nil
	}
	return config.LoadConfig(path)
}

// withService opens the garden service for the duration of run
func (app *cli) withService(ctx context.Context, run func(ctx context.Context, svc *garden.Service) error) (err error) {
	svc, err := garden.NewServiceFromConfig(app.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return run(ctx, svc)
}
