package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jo-hoe/plantaid/internal/frontend"
	"github.com/jo-hoe/plantaid/internal/garden"
	"github.com/spf13/cobra"
)

func newServeCmd(app *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Plant Aid web interface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port := app.v.GetInt("port"); port != 0 {
				app.cfg.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.withService(ctx, func(ctx context.Context, svc *garden.Service) error {
				server := frontend.DefineServer()
				frontend.NewFrontendService(app.cfg, svc).SetRoutes(server)

				slog.Info("serving plant aid", "port", app.cfg.Port, "data_dir", app.cfg.DataDir)
				return frontend.Serve(ctx, server, app.cfg.Port)
			})
		},
	}
	cmd.Flags().Int("port", 0, "port to listen on (default from config)")
	_ = app.v.BindPFlag("port", cmd.Flags().Lookup("port"))
	return cmd
}
