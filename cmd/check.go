package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rvdploeg/boekwinst/internal/pipeline"
	"github.com/rvdploeg/boekwinst/internal/results"
)

func newCheckCmd(configPath *string) *cobra.Command {
	var (
		imagePath     string
		purchasePrice float64
		outputPath    string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Analyze a shelf photo from the command line",
		Long: `Runs the full analysis on one shelf photo and prints a report.

Progress is logged as it happens; the final report lists the profitable
books sorted by profit and by margin.`,
		Example: `  # Analyze a photo with the default 1 euro purchase price
  boekwinst check --image shelf.jpg

  # Kringloop run at 2.50 per book, results to a file
  boekwinst check --image shelf.jpg --price 2.50 --output run.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			p, client := buildPipeline(cfg)

			result, err := p.Run(cmd.Context(), imagePath, purchasePrice, consoleSink)
			if err != nil {
				return err
			}

			results.PrintSummary(result.Summary, result.Books)
			slog.Info("Buy-back requests made", "count", client.Limiter().Total())

			if outputPath != "" {
				if err := results.Save(outputPath, result.Books); err != nil {
					return err
				}
				slog.Info("Results saved", "path", outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Path to shelf photo (required)")
	cmd.Flags().Float64VarP(&purchasePrice, "price", "", 1.0, "Purchase price per book in euros")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write results to file (.json, .csv or .parquet)")
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

// consoleSink renders pipeline events as terminal progress lines.
func consoleSink(event pipeline.Event) {
	switch e := event.(type) {
	case pipeline.StatusEvent:
		fmt.Printf("\n[%d/%d] %s\n", e.Step, e.Total, e.Message)
	case pipeline.DetectedEvent:
		fmt.Printf("  %s\n", e.Message)
	case pipeline.LookupProgressEvent:
		fmt.Printf("  (%d/%d) %s...", e.Index, e.Total, e.Title)
	case pipeline.LookupFoundEvent:
		fmt.Printf(" %s (%d edities)\n", e.ISBN, e.EditionCount)
	case pipeline.LookupMissingEvent:
		fmt.Println(" geen ISBN gevonden")
	case pipeline.PriceProgressEvent:
		fmt.Printf("  (%d/%d) %s...", e.Index, e.Total, e.Title)
	case pipeline.BookSkipEvent:
		fmt.Println(" geen interesse")
	case pipeline.BookResultEvent:
		fmt.Printf(" %.2f euro winst\n", e.Book.Profit)
	case pipeline.ErrorEvent:
		fmt.Printf("\nFout: %s\n", e.Message)
	}
}
