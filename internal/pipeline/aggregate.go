package pipeline

import (
	"github.com/rvdploeg/boekwinst/internal/models"
)

// ResolvedBook couples a detection with the editions the catalog found for it.
type ResolvedBook struct {
	Detection models.Detection
	Title     string
	Author    string
	Editions  []models.Edition
}

// Aggregate folds one book's probe results into a BookEntry. The best edition
// is the priced one with the highest sell price; on a tie the earlier result
// wins, so the resolver's preferred-language ordering decides. Returns false
// when no edition drew a priced offer.
func Aggregate(book ResolvedBook, results []models.EditionProbeResult, purchasePrice float64) (models.BookEntry, bool) {
	var best *models.EditionProbeResult
	bought := 0
	for i := range results {
		r := &results[i]
		if !r.Interested || r.SellPrice == nil {
			continue
		}
		bought++
		if best == nil || *r.SellPrice > *best.SellPrice {
			best = r
		}
	}
	if best == nil {
		return models.BookEntry{}, false
	}

	sellPrice := *best.SellPrice
	profit := sellPrice - purchasePrice

	margin := 0.0
	if purchasePrice > 0 {
		margin = profit / purchasePrice * 100
	}

	chance := 0.0
	if len(results) > 0 {
		chance = float64(bought) / float64(len(results)) * 100
	}

	return models.BookEntry{
		Title:           book.Title,
		Author:          book.Author,
		ISBN:            best.ISBN,
		DetectedTitle:   book.Detection.Title,
		Confidence:      book.Detection.Confidence,
		Shelf:           book.Detection.Shelf,
		Position:        book.Detection.Position,
		PurchasePrice:   purchasePrice,
		SellPrice:       sellPrice,
		Profit:          profit,
		MarginPercent:   margin,
		EditionsChecked: len(results),
		EditionsBought:  bought,
		ChancePercent:   chance,
		AllEditions:     results,
	}, true
}
