package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rvdploeg/boekwinst/internal/models"
)

// Detector reads book spines from a shelf photo.
type Detector interface {
	DetectBooks(ctx context.Context, imagePath string) ([]models.Detection, error)
}

// Resolver turns a detected title into physical editions.
type Resolver interface {
	FindEditions(ctx context.Context, title, author string) []models.Edition
}

// Prober runs the buy-back protocol for one edition. Ready reports whether
// the service is reachable at all; it is checked once before probing starts.
type Prober interface {
	Ready() error
	Probe(ctx context.Context, edition models.Edition, purchasePrice float64) (models.EditionProbeResult, error)
}

// Result is the final outcome of a full analysis run.
type Result struct {
	Books   []models.BookEntry
	Summary models.Summary
}

// Pipeline runs the three analysis steps in order: detect spines, resolve
// editions, probe buy-back prices. Progress goes to the sink as it happens.
type Pipeline struct {
	detector Detector
	resolver Resolver
	prober   Prober

	lookupDelay time.Duration
	probeDelay  time.Duration
}

func New(detector Detector, resolver Resolver, prober Prober, lookupDelay, probeDelay time.Duration) *Pipeline {
	return &Pipeline{
		detector:    detector,
		resolver:    resolver,
		prober:      prober,
		lookupDelay: lookupDelay,
		probeDelay:  probeDelay,
	}
}

// Run analyzes one shelf photo. Every emitted sequence ends in exactly one
// done or error event. The returned error is non-nil iff an error event was
// emitted.
func (p *Pipeline) Run(ctx context.Context, imagePath string, purchasePrice float64, emit Sink) (*Result, error) {
	emit(NewStatus(1, 3, "Boeken herkennen met AI..."))

	detections, err := p.detector.DetectBooks(ctx, imagePath)
	if err != nil {
		emit(NewError(err.Error()))
		return nil, fmt.Errorf("detection failed: %w", err)
	}

	emit(NewDetected(len(detections)))

	if len(detections) == 0 {
		result := &Result{
			Books:   []models.BookEntry{},
			Summary: models.Summary{PurchasePrice: purchasePrice},
		}
		emit(NewDone(result.Summary, result.Books))
		return result, nil
	}

	emit(NewStatus(2, 3, fmt.Sprintf("ISBN nummers zoeken voor %d boeken...", len(detections))))

	books, err := p.resolveAll(ctx, detections, emit)
	if err != nil {
		emit(NewError(err.Error()))
		return nil, err
	}

	if err := p.prober.Ready(); err != nil {
		emit(NewError(err.Error()))
		return nil, err
	}

	emit(NewStatus(3, 3, fmt.Sprintf("Prijzen checken bij Boekenbalie (%d boeken)...", len(books))))

	entries, err := p.probeAll(ctx, books, purchasePrice, emit)
	if err != nil {
		emit(NewError(err.Error()))
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Profit > entries[j].Profit
	})

	result := &Result{
		Books: entries,
		Summary: models.Summary{
			Detected:      len(detections),
			WithISBN:      len(books),
			Profitable:    len(entries),
			PurchasePrice: purchasePrice,
		},
	}
	emit(NewDone(result.Summary, result.Books))
	return result, nil
}

// resolveAll looks up editions for every detection, keeping only books the
// catalog could resolve.
func (p *Pipeline) resolveAll(ctx context.Context, detections []models.Detection, emit Sink) ([]ResolvedBook, error) {
	var books []ResolvedBook
	for i, detection := range detections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		title := displayTitle(detection)
		emit(NewLookupProgress(i+1, len(detections), title))

		editions := p.resolver.FindEditions(ctx, detection.Title, detection.Author)
		if len(editions) == 0 {
			slog.Debug("No editions found", "title", detection.Title)
			emit(NewLookupMissing(i+1, title))
		} else {
			emit(NewLookupFound(i+1, title, editions[0].ISBN, len(editions)))
			books = append(books, ResolvedBook{
				Detection: detection,
				Title:     displayEditionTitle(detection, editions[0]),
				Author:    displayAuthor(detection, editions[0]),
				Editions:  editions,
			})
		}

		if i < len(detections)-1 {
			if err := pause(ctx, p.lookupDelay); err != nil {
				return nil, err
			}
		}
	}
	return books, nil
}

// probeAll runs the buy-back protocol over every edition of every resolved
// book and aggregates the outcomes.
func (p *Pipeline) probeAll(ctx context.Context, books []ResolvedBook, purchasePrice float64, emit Sink) ([]models.BookEntry, error) {
	entries := make([]models.BookEntry, 0, len(books))
	for i, book := range books {
		emit(NewPriceProgress(i+1, len(books), book.Title))

		results := make([]models.EditionProbeResult, 0, len(book.Editions))
		for j, edition := range book.Editions {
			result, err := p.prober.Probe(ctx, edition, purchasePrice)
			if err != nil {
				return nil, err
			}
			results = append(results, result)

			if j < len(book.Editions)-1 {
				if err := pause(ctx, p.probeDelay); err != nil {
					return nil, err
				}
			}
		}

		entry, ok := Aggregate(book, results, purchasePrice)
		if !ok {
			emit(NewBookSkip(i+1, book.Title))
			continue
		}
		emit(NewBookResult(entry))
		entries = append(entries, entry)
	}
	return entries, nil
}

// displayTitle is the progress label for a detection before resolution.
func displayTitle(d models.Detection) string {
	if d.Title != "" {
		return d.Title
	}
	return "Onbekend"
}

// displayEditionTitle prefers the catalog's title over the detector's read.
func displayEditionTitle(d models.Detection, e models.Edition) string {
	if e.Title != "" {
		return e.Title
	}
	return displayTitle(d)
}

func displayAuthor(d models.Detection, e models.Edition) string {
	if len(e.Authors) > 0 {
		return e.Authors[0]
	}
	if d.Author != "" {
		return d.Author
	}
	return "Onbekend"
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
