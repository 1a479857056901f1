package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/jo-hoe/plantaid/internal/garden"
	"github.com/spf13/cobra"
)

const summaryLength = 60

func newGardenCmd(app *cli) *cobra.Command {
	var deletePath string

	cmd := &cobra.Command{
		Use:   "garden",
		Short: "List the photos of your garden",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withService(cmd.Context(), func(ctx context.Context, svc *garden.Service) error {
				if deletePath != "" {
					if err := svc.Delete(ctx, deletePath); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", deletePath)
					return nil
				}

				entries, err := svc.List(ctx)
				if err != nil {
					return err
				}
				return printEntries(cmd, entries)
			})
		},
	}
	cmd.Flags().StringVar(&deletePath, "delete", "", "remove the image at this path from the garden")
	return cmd
}

func printEntries(cmd *cobra.Command, entries []garden.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Your garden is empty.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CAPTURED\tIMAGE\tRESULT")
	for _, entry := range entries {
		captured := "-"
		if !entry.CapturedAt.IsZero() {
			captured = entry.CapturedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", captured, entry.ImagePath, summary(entry.Text))
	}
	return w.Flush()
}

// summary returns the first line of text, shortened to summaryLength runes
func summary(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	runes := []rune(line)
	if len(runes) > summaryLength {
		return string(runes[:summaryLength-3]) + "..."
	}
	return line
}
