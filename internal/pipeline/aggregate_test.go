package pipeline

import (
	"testing"

	"github.com/rvdploeg/boekwinst/internal/models"
)

func priced(isbn, language string, sellPrice, purchasePrice float64) models.EditionProbeResult {
	profit := sellPrice - purchasePrice
	return models.EditionProbeResult{
		ISBN:       isbn,
		Language:   language,
		Interested: true,
		SellPrice:  &sellPrice,
		Profit:     &profit,
		State:      models.StatePriced,
	}
}

func declined(isbn, language string) models.EditionProbeResult {
	return models.EditionProbeResult{
		ISBN:     isbn,
		Language: language,
		State:    models.StateNotInterested,
	}
}

func testBook() ResolvedBook {
	return ResolvedBook{
		Detection: models.Detection{Title: "harry potter steen", Confidence: 0.85, Shelf: 1, Position: 4},
		Title:     "Harry Potter en de Steen der Wijzen",
		Author:    "J.K. Rowling",
	}
}

func TestAggregate(t *testing.T) {
	results := []models.EditionProbeResult{
		declined("9789076174082", "nl"),
		priced("9780747532699", "en", 10.00, 2.00),
	}

	entry, ok := Aggregate(testBook(), results, 2.00)
	if !ok {
		t.Fatal("Aggregate() ok = false, want true")
	}

	if entry.ISBN != "9780747532699" {
		t.Errorf("ISBN = %q, want the priced edition", entry.ISBN)
	}
	if entry.SellPrice != 10.00 {
		t.Errorf("SellPrice = %v, want 10.00", entry.SellPrice)
	}
	if entry.Profit != 8.00 {
		t.Errorf("Profit = %v, want 8.00", entry.Profit)
	}
	if entry.MarginPercent != 400.0 {
		t.Errorf("MarginPercent = %v, want 400.0", entry.MarginPercent)
	}
	if entry.EditionsChecked != 2 {
		t.Errorf("EditionsChecked = %d, want 2", entry.EditionsChecked)
	}
	if entry.EditionsBought != 1 {
		t.Errorf("EditionsBought = %d, want 1", entry.EditionsBought)
	}
	if entry.ChancePercent != 50.0 {
		t.Errorf("ChancePercent = %v, want 50.0", entry.ChancePercent)
	}
	if entry.DetectedTitle != "harry potter steen" {
		t.Errorf("DetectedTitle = %q", entry.DetectedTitle)
	}
	if len(entry.AllEditions) != 2 {
		t.Errorf("AllEditions has %d entries, want 2", len(entry.AllEditions))
	}
}

func TestAggregateNoOffers(t *testing.T) {
	results := []models.EditionProbeResult{
		declined("9789076174082", "nl"),
		declined("9780747532699", "en"),
	}

	if _, ok := Aggregate(testBook(), results, 2.00); ok {
		t.Error("Aggregate() ok = true, want false without offers")
	}
}

func TestAggregateTieKeepsFirst(t *testing.T) {
	// Equal sell prices: the earlier result wins, so preferred-language
	// ordering from the resolver decides.
	results := []models.EditionProbeResult{
		priced("9789076174082", "nl", 5.00, 1.00),
		priced("9780747532699", "en", 5.00, 1.00),
	}

	entry, ok := Aggregate(testBook(), results, 1.00)
	if !ok {
		t.Fatal("Aggregate() ok = false")
	}
	if entry.ISBN != "9789076174082" {
		t.Errorf("ISBN = %q, want the first (Dutch) edition on a tie", entry.ISBN)
	}
}

func TestAggregateHigherPriceWins(t *testing.T) {
	results := []models.EditionProbeResult{
		priced("9789076174082", "nl", 4.00, 1.00),
		priced("9780747532699", "en", 6.50, 1.00),
	}

	entry, ok := Aggregate(testBook(), results, 1.00)
	if !ok {
		t.Fatal("Aggregate() ok = false")
	}
	if entry.ISBN != "9780747532699" {
		t.Errorf("ISBN = %q, want the higher offer", entry.ISBN)
	}
	if entry.EditionsBought != 2 {
		t.Errorf("EditionsBought = %d, want 2", entry.EditionsBought)
	}
	if entry.ChancePercent != 100.0 {
		t.Errorf("ChancePercent = %v, want 100.0", entry.ChancePercent)
	}
}

func TestAggregateZeroPurchasePrice(t *testing.T) {
	results := []models.EditionProbeResult{priced("9789076174082", "nl", 5.00, 0)}

	entry, ok := Aggregate(testBook(), results, 0)
	if !ok {
		t.Fatal("Aggregate() ok = false")
	}
	if entry.MarginPercent != 0 {
		t.Errorf("MarginPercent = %v, want 0 for free books", entry.MarginPercent)
	}
	if entry.Profit != 5.00 {
		t.Errorf("Profit = %v, want 5.00", entry.Profit)
	}
}
