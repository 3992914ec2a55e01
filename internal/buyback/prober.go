package buyback

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rvdploeg/boekwinst/internal/models"
)

// Prober runs the two-call buy-back protocol for a single edition and folds
// the outcome into an EditionProbeResult.
type Prober struct {
	client *Client
}

func NewProber(client *Client) *Prober {
	return &Prober{client: client}
}

// Ready reports whether the buy-back service can be called at all. Without a
// token every request 401s, which the soft-failing client reads as "not
// interested" across the board; catching it up front turns a misleading
// empty run into an error.
func (p *Prober) Ready() error {
	if p.client.token == "" {
		return errors.New("BOEKENBALIE_API_TOKEN niet ingesteld")
	}
	return nil
}

// Probe checks interest and, when the service wants the book, fetches its
// price. An edition counts as interested only once both calls succeed;
// interest without a price is the named StateInterestChecked partial
// outcome, which reads as not interested in the result. The only errors
// returned are context cancellations.
func (p *Prober) Probe(ctx context.Context, edition models.Edition, purchasePrice float64) (models.EditionProbeResult, error) {
	result := models.EditionProbeResult{
		ISBN:          edition.ISBN,
		Publisher:     edition.Publisher,
		PublishedDate: edition.PublishedDate,
		Language:      edition.Language,
		State:         models.StateUnprobed,
	}

	interest, err := p.client.CheckInterest(ctx, edition.ISBN)
	if err != nil {
		return result, err
	}
	if interest == nil || !interest.Interested || interest.BookID == "" {
		result.State = models.StateNotInterested
		return result, nil
	}

	result.State = models.StateInterestChecked

	price, err := p.client.GetPrice(ctx, interest.BookID)
	if err != nil {
		return result, err
	}
	if price == nil {
		slog.Warn("Interest confirmed but no price quoted", "isbn", edition.ISBN, "book_id", interest.BookID)
		return result, nil
	}

	profit := *price - purchasePrice
	result.State = models.StatePriced
	result.Interested = true
	result.SellPrice = price
	result.Profit = &profit
	return result, nil
}
