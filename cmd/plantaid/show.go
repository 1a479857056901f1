package main

import (
	"context"

	"github.com/jo-hoe/plantaid/internal/garden"
	"github.com/spf13/cobra"
)

func newShowCmd(app *cli) *cobra.Command {
	var analysisResult string

	cmd := &cobra.Command{
		Use:   "show <image>",
		Short: "Show the analysis result of a garden photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withService(cmd.Context(), func(ctx context.Context, svc *garden.Service) error {
				if analysisResult != "" {
					printView(cmd, svc.View(args[0], analysisResult))
					return nil
				}
				view, err := svc.Open(ctx, args[0])
				if err != nil {
					return err
				}
				printView(cmd, view)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&analysisResult, "analysis-result", "", "result file to show instead of the recorded one")
	return cmd
}
