package results

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/rvdploeg/boekwinst/internal/models"
)

// Save writes the run's books to path, picking the format from the
// extension. Supported: .json, .csv, .parquet.
func Save(path string, books []models.BookEntry) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return SaveJSON(path, books)
	case ".csv":
		return SaveCSV(path, books)
	case ".parquet":
		return SaveParquet(path, books)
	default:
		return fmt.Errorf("unsupported output format: %s (supported: .json, .csv, .parquet)", ext)
	}
}

func SaveJSON(path string, books []models.BookEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(books); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

func SaveCSV(path string, books []models.BookEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{
		"isbn", "title", "author",
		"purchase_price", "sell_price", "profit", "margin_percent",
		"editions_checked", "editions_bought", "chance_percent",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, book := range books {
		row := []string{
			book.ISBN,
			book.Title,
			book.Author,
			formatFloat(book.PurchasePrice),
			formatFloat(book.SellPrice),
			formatFloat(book.Profit),
			formatFloat(book.MarginPercent),
			strconv.Itoa(book.EditionsChecked),
			strconv.Itoa(book.EditionsBought),
			formatFloat(book.ChancePercent),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// parquetRow is the flat schema for parquet export. The nested edition list
// stays in the JSON export only.
type parquetRow struct {
	ISBN            string  `parquet:"isbn"`
	Title           string  `parquet:"title"`
	Author          string  `parquet:"author"`
	PurchasePrice   float64 `parquet:"purchase_price"`
	SellPrice       float64 `parquet:"sell_price"`
	Profit          float64 `parquet:"profit"`
	MarginPercent   float64 `parquet:"margin_percent"`
	EditionsChecked int32   `parquet:"editions_checked"`
	EditionsBought  int32   `parquet:"editions_bought"`
	ChancePercent   float64 `parquet:"chance_percent"`
}

func SaveParquet(path string, books []models.BookEntry) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	rows := make([]parquetRow, 0, len(books))
	for _, book := range books {
		rows = append(rows, parquetRow{
			ISBN:            book.ISBN,
			Title:           book.Title,
			Author:          book.Author,
			PurchasePrice:   book.PurchasePrice,
			SellPrice:       book.SellPrice,
			Profit:          book.Profit,
			MarginPercent:   book.MarginPercent,
			EditionsChecked: int32(book.EditionsChecked),
			EditionsBought:  int32(book.EditionsBought),
			ChancePercent:   book.ChancePercent,
		})
	}

	writer := parquet.NewGenericWriter[parquetRow](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// PrintSummary writes a run report to stdout: the tally plus the top books
// by profit and by margin.
func PrintSummary(summary models.Summary, books []models.BookEntry) {
	fmt.Println()
	fmt.Println("=== Resultaat ===")
	fmt.Printf("Herkend:     %d\n", summary.Detected)
	fmt.Printf("Met ISBN:    %d\n", summary.WithISBN)
	fmt.Printf("Winstgevend: %d\n", summary.Profitable)
	fmt.Printf("Inkoopprijs: %.2f euro\n", summary.PurchasePrice)

	if len(books) == 0 {
		return
	}

	byProfit := make([]models.BookEntry, len(books))
	copy(byProfit, books)
	sort.SliceStable(byProfit, func(i, j int) bool {
		return byProfit[i].Profit > byProfit[j].Profit
	})
	printTop("Top winst", byProfit, func(b models.BookEntry) string {
		return fmt.Sprintf("%.2f euro", b.Profit)
	})

	byMargin := make([]models.BookEntry, len(books))
	copy(byMargin, books)
	sort.SliceStable(byMargin, func(i, j int) bool {
		return byMargin[i].MarginPercent > byMargin[j].MarginPercent
	})
	printTop("Top marge", byMargin, func(b models.BookEntry) string {
		return fmt.Sprintf("%.0f%%", b.MarginPercent)
	})
}

func printTop(label string, books []models.BookEntry, metric func(models.BookEntry) string) {
	fmt.Println()
	fmt.Printf("--- %s ---\n", label)
	limit := len(books)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		book := books[i]
		fmt.Printf("%2d. %-40s %-25s %s\n", i+1, truncate(book.Title, 40), truncate(book.Author, 25), metric(book))
	}
}

// truncate shortens by rune so multi-byte characters never get cut in half.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
