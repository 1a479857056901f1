package main

import (
	"context"
	"fmt"

	"github.com/jo-hoe/plantaid/internal/garden"
	"github.com/spf13/cobra"
)

func newCaptureCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "capture <image>",
		Short: "Capture a photo, send it for analysis and add it to the garden",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toasts := garden.NotifierFunc(func(_ context.Context, message string) {
				fmt.Fprintln(cmd.ErrOrStderr(), message)
			})
			return app.withService(cmd.Context(), func(ctx context.Context, svc *garden.Service) error {
				view, err := svc.CaptureFile(ctx, args[0], toasts)
				if err != nil {
					return err
				}
				printView(cmd, view)
				return nil
			})
		},
	}
}

func printView(cmd *cobra.Command, view garden.ResultView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "image: %s\n", view.ImagePath)
	fmt.Fprintf(out, "result: %s\n", view.AnalysisResult)
	fmt.Fprintln(out)
	fmt.Fprintln(out, view.Text)
}
