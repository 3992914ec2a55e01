package booklist

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Item is one book from a user-supplied list. Price is the asking or
// purchase price in euros; nil means the caller's default applies.
type Item struct {
	Title  string   `json:"title"`
	Author string   `json:"author,omitempty"`
	ISBN   string   `json:"isbn"`
	Price  *float64 `json:"price,omitempty"`
}

// Load reads a booklist file, picking the format from the extension.
// Supported: .json (array of items), .csv (header row with an isbn column).
func Load(path string) ([]Item, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return loadJSON(path)
	case ".csv":
		return loadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported booklist format: %s (supported: .json, .csv)", ext)
	}
}

func loadJSON(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var items []Item
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return items, nil
}

func loadCSV(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["isbn"]; !ok {
		return nil, fmt.Errorf("%s has no isbn column", path)
	}

	items := make([]Item, 0, len(rows)-1)
	for n, row := range rows[1:] {
		item := Item{
			ISBN:   field(row, columns, "isbn"),
			Title:  field(row, columns, "title"),
			Author: field(row, columns, "author"),
		}
		if raw := field(row, columns, "price"); raw != "" {
			price, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid price %q on row %d of %s", raw, n+2, path)
			}
			item.Price = &price
		}
		items = append(items, item)
	}
	return items, nil
}

func field(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
