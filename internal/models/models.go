package models

import (
	"fmt"
	"strings"
)

// MinConfidence is the detector confidence floor. Detections below it never
// enter the pipeline.
const MinConfidence = 0.5

// Detection is one book spine observation from the vision detector.
// Shelves are numbered 1-based top to bottom, positions left to right.
type Detection struct {
	Title      string  `json:"title"`
	Author     string  `json:"author,omitempty"`
	Confidence float64 `json:"confidence"`
	Shelf      int     `json:"shelf"`
	Position   int     `json:"position"`
}

func (d Detection) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("detection has no title")
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.2f out of range [0,1]", d.Confidence)
	}
	if d.Shelf < 1 {
		return fmt.Errorf("shelf %d must be >= 1", d.Shelf)
	}
	if d.Position < 0 {
		return fmt.Errorf("position %d must be >= 0", d.Position)
	}
	return nil
}

// Edition is one physical catalog record for a book, keyed by ISBN. A
// resolved edition list never contains the same ISBN twice.
type Edition struct {
	ISBN          string   `json:"isbn"`
	ISBN13        string   `json:"isbn_13,omitempty"`
	ISBN10        string   `json:"isbn_10,omitempty"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedDate string   `json:"published_date,omitempty"`
	Language      string   `json:"language,omitempty"`
}

// ProbeState names where the buy-back mini-protocol ended for one edition.
type ProbeState int

const (
	StateUnprobed ProbeState = iota
	// StateNotInterested: the service declined the ISBN or did not know it.
	StateNotInterested
	// StateInterestChecked: interest confirmed but no price could be fetched.
	StateInterestChecked
	// StatePriced: interest confirmed and a price quoted.
	StatePriced
)

func (s ProbeState) String() string {
	switch s {
	case StateNotInterested:
		return "not_interested"
	case StateInterestChecked:
		return "interest_checked"
	case StatePriced:
		return "priced"
	default:
		return "unprobed"
	}
}

// EditionProbeResult is the outcome of probing one edition against the
// buy-back service. SellPrice and Profit are non-nil iff Interested is true.
type EditionProbeResult struct {
	ISBN          string     `json:"isbn"`
	Publisher     string     `json:"publisher"`
	PublishedDate string     `json:"published_date"`
	Language      string     `json:"language"`
	Interested    bool       `json:"interested"`
	SellPrice     *float64   `json:"sell_price"`
	Profit        *float64   `json:"profit"`
	State         ProbeState `json:"-"`
}

// BookEntry is the final aggregated record for one profitable book. ISBN is
// the chosen best edition; AllEditions keeps every probe outcome for
// transparency.
type BookEntry struct {
	Title           string               `json:"title"`
	Author          string               `json:"author"`
	ISBN            string               `json:"isbn"`
	DetectedTitle   string               `json:"detected_title"`
	Confidence      float64              `json:"confidence"`
	Shelf           int                  `json:"shelf"`
	Position        int                  `json:"position"`
	PurchasePrice   float64              `json:"purchase_price"`
	SellPrice       float64              `json:"sell_price"`
	Profit          float64              `json:"profit"`
	MarginPercent   float64              `json:"margin_percent"`
	EditionsChecked int                  `json:"editions_checked"`
	EditionsBought  int                  `json:"editions_bought"`
	ChancePercent   float64              `json:"chance_percent"`
	AllEditions     []EditionProbeResult `json:"all_editions"`
}

// Summary is the run-level tally sent with the terminal done event.
type Summary struct {
	Detected      int     `json:"detected"`
	WithISBN      int     `json:"with_isbn"`
	Profitable    int     `json:"profitable"`
	PurchasePrice float64 `json:"purchase_price"`
}
