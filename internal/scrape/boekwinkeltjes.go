package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://www.boekwinkeltjes.nl"

	// A browser user agent; the site serves an interstitial to obvious bots.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Listing is one second-hand book offer scraped from a marketplace page.
type Listing struct {
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Author    string   `json:"author,omitempty"`
	ISBN      string   `json:"isbn,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	Language  string   `json:"language,omitempty"`
	Condition string   `json:"condition,omitempty"`
	Price     *float64 `json:"price"`
}

// Query narrows a marketplace search.
type Query struct {
	Term     string
	MinPrice float64
	MaxPrice float64
}

// Client scrapes book listings from boekwinkeltjes.nl.
type Client struct {
	BaseURL string

	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL string, requestDelay time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if requestDelay <= 0 {
		requestDelay = time.Second
	}
	return &Client{
		BaseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(requestDelay), 1),
	}
}

// SearchPage fetches one page of search results and returns the listing URLs
// it links to. Pages are numbered from 1.
func (c *Client) SearchPage(ctx context.Context, query Query, page int) ([]string, error) {
	params := url.Values{}
	params.Set("q", query.Term)
	params.Set("t", "1")
	params.Set("sort", "titel")
	if query.MinPrice > 0 {
		params.Set("prijsvan", strconv.FormatFloat(query.MinPrice, 'f', -1, 64))
	}
	if query.MaxPrice > 0 {
		params.Set("prijstot", strconv.FormatFloat(query.MaxPrice, 'f', -1, 64))
	}
	if page > 1 {
		params.Set("p", strconv.Itoa(page))
	}

	doc, err := c.fetch(ctx, c.BaseURL+"/s/?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("tr.clickable-row").Each(func(_ int, row *goquery.Selection) {
		href, ok := row.Attr("data-href")
		if !ok || href == "" {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = c.BaseURL + href
		}
		links = append(links, href)
	})
	return links, nil
}

// FetchListing retrieves one listing page and extracts the offer details
// from its JSON-LD product block.
func (c *Client) FetchListing(ctx context.Context, listingURL string) (Listing, error) {
	doc, err := c.fetch(ctx, listingURL)
	if err != nil {
		return Listing{}, err
	}

	block := doc.Find(`script[type="application/ld+json"]`).First()
	if block.Length() == 0 {
		return Listing{}, fmt.Errorf("no product metadata on %s", listingURL)
	}

	listing, err := parseListing(block.Text())
	if err != nil {
		return Listing{}, fmt.Errorf("failed to parse listing %s: %w", listingURL, err)
	}
	listing.URL = listingURL
	return listing, nil
}

// Search walks result pages startPage..startPage+pages-1 and fetches every
// listing found. A listing that fails to fetch or parse is logged and
// skipped.
func (c *Client) Search(ctx context.Context, query Query, startPage, pages int) ([]Listing, error) {
	if startPage < 1 {
		startPage = 1
	}
	if pages < 1 {
		pages = 1
	}

	var listings []Listing
	for page := startPage; page < startPage+pages; page++ {
		links, err := c.SearchPage(ctx, query, page)
		if err != nil {
			return listings, fmt.Errorf("failed to fetch results page %d: %w", page, err)
		}
		if len(links) == 0 {
			break
		}

		for _, link := range links {
			listing, err := c.FetchListing(ctx, link)
			if err != nil {
				if ctx.Err() != nil {
					return listings, ctx.Err()
				}
				slog.Warn("Skipping listing", "url", link, "err", err)
				continue
			}
			listings = append(listings, listing)
		}
	}
	return listings, nil
}

func (c *Client) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// jsonLD mirrors the subset of the schema.org Product block the site embeds.
// Author appears both as a plain string and as a Person object; price as a
// number and as a string.
type jsonLD struct {
	Name       string     `json:"name"`
	Author     jsonLDName `json:"author"`
	ISBN       string     `json:"isbn"`
	Publisher  jsonLDName `json:"publisher"`
	InLanguage string     `json:"inLanguage"`
	Offers     struct {
		Price         jsonLDPrice `json:"price"`
		ItemCondition string      `json:"itemCondition"`
	} `json:"offers"`
}

type jsonLDName struct {
	Value string
}

func (n *jsonLDName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n.Value = s
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	n.Value = obj.Name
	return nil
}

type jsonLDPrice struct {
	Value *float64
}

func (p *jsonLDPrice) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		p.Value = &f
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", s, err)
	}
	p.Value = &f
	return nil
}

func parseListing(raw string) (Listing, error) {
	var decoded jsonLD
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return Listing{}, err
	}
	if decoded.Name == "" {
		return Listing{}, fmt.Errorf("product block has no name")
	}
	return Listing{
		Title:     decoded.Name,
		Author:    decoded.Author.Value,
		ISBN:      decoded.ISBN,
		Publisher: decoded.Publisher.Value,
		Language:  decoded.InLanguage,
		Condition: decoded.Offers.ItemCondition,
		Price:     decoded.Offers.Price.Value,
	}, nil
}
