package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rvdploeg/boekwinst/internal/booklist"
	"github.com/rvdploeg/boekwinst/internal/buyback"
	"github.com/rvdploeg/boekwinst/internal/models"
	"github.com/rvdploeg/boekwinst/internal/pipeline"
	"github.com/rvdploeg/boekwinst/internal/results"
	"github.com/rvdploeg/boekwinst/internal/scrape"
)

func newScanCmd(configPath *string) *cobra.Command {
	var (
		query        string
		inputPath    string
		defaultPrice float64
		minPrice     float64
		maxPrice     float64
		minProfit    float64
		startPage    int
		pages        int
		outputPath   string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan book listings for profitable buys",
		Long: `Checks a batch of books against the buy-back service. Books come either
from a boekwinkeltjes.nl marketplace search (--query) or from a booklist
file (--input, JSON or CSV with isbn/title/author/price columns).

A book is profitable when the buy-back quote exceeds its price by at
least the profit floor. Books without an ISBN cannot be checked and are
skipped.`,
		Example: `  # Scan the first two pages of cheap thrillers
  boekwinst scan --query thriller --max-price 3 --pages 2

  # Resume a scan further in, results to CSV
  boekwinst scan --query thriller --start-page 5 --pages 3 --output scan.csv

  # Check a booklist file, 1.50 per book unless the row has a price
  boekwinst scan --input books.csv --price 1.50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (query == "") == (inputPath == "") {
				return fmt.Errorf("exactly one of --query and --input is required")
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			client := buildBuyback(cfg)
			prober := buyback.NewProber(client)
			if err := prober.Ready(); err != nil {
				return err
			}

			var listings []scrape.Listing
			if inputPath != "" {
				items, err := booklist.Load(inputPath)
				if err != nil {
					return err
				}
				listings = booklistListings(items, defaultPrice)
			} else {
				scraper := scrape.NewClient("", cfg.Catalog.RequestDelay.Std())
				listings, err = scraper.Search(cmd.Context(), scrape.Query{
					Term:     query,
					MinPrice: minPrice,
					MaxPrice: maxPrice,
				}, startPage, pages)
				if err != nil {
					return err
				}
			}
			slog.Info("Books to check", "count", len(listings))

			var books []models.BookEntry
			checked := 0
			for _, listing := range listings {
				if listing.ISBN == "" || listing.Price == nil {
					continue
				}
				checked++

				entry, ok, err := checkListing(cmd.Context(), prober, listing, minProfit)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}

				fmt.Printf("  %-40s %.2f -> %.2f euro (winst %.2f)\n",
					entry.Title, entry.PurchasePrice, entry.SellPrice, entry.Profit)
				books = append(books, entry)
			}

			sort.SliceStable(books, func(i, j int) bool {
				return books[i].Profit > books[j].Profit
			})

			summary := models.Summary{
				Detected:   len(listings),
				WithISBN:   checked,
				Profitable: len(books),
			}
			results.PrintSummary(summary, books)
			slog.Info("Buy-back requests made", "count", client.Limiter().Total())

			if outputPath != "" {
				if err := results.Save(outputPath, books); err != nil {
					return err
				}
				slog.Info("Results saved", "path", outputPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Marketplace search term")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Booklist file (.json or .csv)")
	cmd.Flags().Float64Var(&defaultPrice, "price", 1.0, "Price for booklist rows without one, in euros")
	cmd.Flags().Float64Var(&minPrice, "min-price", 0, "Minimum asking price in euros")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "Maximum asking price in euros")
	cmd.Flags().Float64Var(&minProfit, "min-profit", 2.0, "Minimum profit in euros to report a book")
	cmd.Flags().IntVar(&startPage, "start-page", 1, "First results page to scan")
	cmd.Flags().IntVar(&pages, "pages", 1, "Number of results pages to scan")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write results to file (.json, .csv or .parquet)")

	return cmd
}

// booklistListings converts booklist items to the listing shape the check
// loop works on, filling in the default price where a row has none.
func booklistListings(items []booklist.Item, defaultPrice float64) []scrape.Listing {
	listings := make([]scrape.Listing, 0, len(items))
	for _, item := range items {
		price := item.Price
		if price == nil {
			p := defaultPrice
			price = &p
		}
		listings = append(listings, scrape.Listing{
			Title:  item.Title,
			Author: item.Author,
			ISBN:   item.ISBN,
			Price:  price,
		})
	}
	return listings
}

// checkListing probes one listing's ISBN and keeps it when the quote beats
// the asking price by at least minProfit.
func checkListing(ctx context.Context, prober *buyback.Prober, listing scrape.Listing, minProfit float64) (models.BookEntry, bool, error) {
	askingPrice := *listing.Price

	edition := models.Edition{
		ISBN:      listing.ISBN,
		Title:     listing.Title,
		Publisher: listing.Publisher,
		Language:  listing.Language,
	}
	result, err := prober.Probe(ctx, edition, askingPrice)
	if err != nil {
		return models.BookEntry{}, false, err
	}

	book := pipeline.ResolvedBook{
		Detection: models.Detection{Title: listing.Title, Shelf: 1},
		Title:     listing.Title,
		Author:    listing.Author,
		Editions:  []models.Edition{edition},
	}
	entry, ok := pipeline.Aggregate(book, []models.EditionProbeResult{result}, askingPrice)
	if !ok || entry.Profit < minProfit {
		return models.BookEntry{}, false, nil
	}
	return entry, true, nil
}
