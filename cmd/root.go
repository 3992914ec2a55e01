package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rvdploeg/boekwinst/internal/buyback"
	"github.com/rvdploeg/boekwinst/internal/catalog"
	"github.com/rvdploeg/boekwinst/internal/config"
	"github.com/rvdploeg/boekwinst/internal/detector"
	"github.com/rvdploeg/boekwinst/internal/pipeline"
)

func NewRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "boekwinst",
		Short: "Book shelf resale profitability analyzer",
		Long: `Boekwinst analyzes shelf photos for resale profit.

It detects book spines with a vision model, resolves each title to physical
editions via Google Books, and checks every edition against the Boekenbalie
buy-back service to find the books worth buying.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "boekwinst.yaml", "Path to YAML config file")

	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newCheckCmd(&configPath))
	cmd.AddCommand(newScanCmd(&configPath))

	return cmd
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// buildBuyback wires the shared rate limiter into a buy-back client.
func buildBuyback(cfg config.Config) *buyback.Client {
	limiter := buyback.NewLimiter(cfg.Buyback.RequestDelay.Std(), cfg.Buyback.MaxRequestsPerMinute)
	return buyback.NewClient(cfg.Buyback.BaseURL, cfg.Buyback.Token, limiter)
}

func buildPipeline(cfg config.Config) (*pipeline.Pipeline, *buyback.Client) {
	client := buildBuyback(cfg)
	p := pipeline.New(
		detector.New(cfg.Detector.Model),
		catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.PreferredLanguage, cfg.Catalog.MaxResults, cfg.Catalog.RequestDelay.Std()),
		buyback.NewProber(client),
		cfg.Pipeline.LookupDelay.Std(),
		cfg.Pipeline.ProbeDelay.Std(),
	)
	return p, client
}
