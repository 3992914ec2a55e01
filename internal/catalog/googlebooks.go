package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/rvdploeg/boekwinst/internal/models"
)

const defaultBaseURL = "https://www.googleapis.com/books/v1/volumes"

// Client resolves detected titles to physical editions via the Google Books
// volumes API.
type Client struct {
	BaseURL           string
	PreferredLanguage string
	MaxResults        int

	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a catalog client. Zero values fall back to the public
// Google Books endpoint, Dutch as preferred language, 10 results per query
// and a 500ms delay between queries.
func NewClient(baseURL, preferredLanguage string, maxResults int, requestDelay time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if preferredLanguage == "" {
		preferredLanguage = "nl"
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	if requestDelay <= 0 {
		requestDelay = 500 * time.Millisecond
	}
	return &Client{
		BaseURL:           baseURL,
		PreferredLanguage: preferredLanguage,
		MaxResults:        maxResults,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(requestDelay), 1),
	}
}

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID       string `json:"id"`
	SaleInfo struct {
		IsEbook bool `json:"isEbook"`
	} `json:"saleInfo"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		Publisher           string   `json:"publisher"`
		PublishedDate       string   `json:"publishedDate"`
		Language            string   `json:"language"`
		PrintType           string   `json:"printType"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
	} `json:"volumeInfo"`
}

// FindEditions returns all physical editions for a detected title, preferred
// language first. Two query passes run: one restricted to the preferred
// language, one unrestricted. A failed pass is logged and swallowed so the
// other still contributes; a book nobody can resolve comes back as an empty
// slice, not an error.
func (c *Client) FindEditions(ctx context.Context, title, author string) []models.Edition {
	if title == "" {
		return nil
	}

	query := "intitle:" + title
	if author != "" {
		query += "+inauthor:" + author
	}

	seen := make(map[string]bool)
	var editions []models.Edition

	for _, language := range []string{c.PreferredLanguage, ""} {
		items, err := c.search(ctx, query, language)
		if err != nil {
			slog.Warn("Catalog query failed", "title", title, "language", language, "err", err)
			continue
		}
		for _, item := range items {
			edition, ok := physicalEdition(item)
			if !ok || seen[edition.ISBN] {
				continue
			}
			seen[edition.ISBN] = true
			editions = append(editions, edition)
		}
	}

	return preferredFirst(editions, c.PreferredLanguage)
}

func (c *Client) search(ctx context.Context, query, language string) ([]volume, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(c.MaxResults))
	params.Set("printType", "books")
	if language != "" {
		params.Set("langRestrict", language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var decoded volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return decoded.Items, nil
}

// physicalEdition converts one raw volume, rejecting digital formats and
// records without an ISBN. ISBN-13 is preferred, ISBN-10 is the fallback.
func physicalEdition(v volume) (models.Edition, bool) {
	if v.SaleInfo.IsEbook {
		return models.Edition{}, false
	}
	// A missing printType counts as a physical book.
	if v.VolumeInfo.PrintType != "" && v.VolumeInfo.PrintType != "BOOK" {
		return models.Edition{}, false
	}

	var isbn13, isbn10 string
	for _, id := range v.VolumeInfo.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			isbn13 = id.Identifier
		case "ISBN_10":
			isbn10 = id.Identifier
		}
	}

	isbn := isbn13
	if isbn == "" {
		isbn = isbn10
	}
	if isbn == "" {
		return models.Edition{}, false
	}

	return models.Edition{
		ISBN:          isbn,
		ISBN13:        isbn13,
		ISBN10:        isbn10,
		Title:         v.VolumeInfo.Title,
		Authors:       v.VolumeInfo.Authors,
		Publisher:     v.VolumeInfo.Publisher,
		PublishedDate: v.VolumeInfo.PublishedDate,
		Language:      v.VolumeInfo.Language,
	}, true
}

// preferredFirst stably moves preferred-language editions to the front. The
// aggregator relies on this order to break sell-price ties.
func preferredFirst(editions []models.Edition, language string) []models.Edition {
	if len(editions) == 0 {
		return editions
	}

	ordered := make([]models.Edition, 0, len(editions))
	for _, edition := range editions {
		if edition.Language == language {
			ordered = append(ordered, edition)
		}
	}
	for _, edition := range editions {
		if edition.Language != language {
			ordered = append(ordered, edition)
		}
	}
	return ordered
}
