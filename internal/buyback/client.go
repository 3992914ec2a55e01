package buyback

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultBaseURL = "https://api.boekenbalie.nl"

// Client talks to the Boekenbalie buy-back API. Every call carries the
// bearer token and a fresh Request_id header, and passes through the shared
// rate limiter. The API is treated as flaky by contract: transport errors
// and unexpected statuses degrade to "no result" instead of failing a run.
type Client struct {
	BaseURL string

	token      string
	httpClient *http.Client
	limiter    *Limiter
}

// NewClient creates a buy-back client. A nil limiter gets the defaults.
func NewClient(baseURL, token string, limiter *Limiter) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if limiter == nil {
		limiter = NewLimiter(0, 0)
	}
	return &Client{
		BaseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: limiter,
	}
}

// Limiter exposes the client's rate limiter for run statistics.
func (c *Client) Limiter() *Limiter { return c.limiter }

// Interest is the service's answer to an interest check.
type Interest struct {
	Interested bool   `json:"interested"`
	BookID     string `json:"book_id"`
	Title      string `json:"title"`
	Authors    string `json:"authors"`
	Segment    string `json:"segment"`
}

// NormalizeISBN strips hyphens and spaces before the ISBN hits the API.
func NormalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	return strings.ReplaceAll(isbn, " ", "")
}

// CheckInterest asks whether the service wants to buy this ISBN. Not-found
// and error responses both come back as (nil, nil): an uninterested service
// and a flaky one look the same to the pipeline.
func (c *Client) CheckInterest(ctx context.Context, isbn string) (*Interest, error) {
	requestURL := fmt.Sprintf("%s/api/v2/books/%s", c.BaseURL, NormalizeISBN(isbn))

	body, status, err := c.get(ctx, requestURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("Interest check failed", "isbn", isbn, "err", err)
		return nil, nil
	}

	switch status {
	case http.StatusOK:
		var interest Interest
		if err := json.Unmarshal(body, &interest); err != nil {
			slog.Warn("Failed to decode interest response", "isbn", isbn, "err", err)
			return nil, nil
		}
		return &interest, nil
	case http.StatusNotFound:
		return nil, nil
	default:
		slog.Warn("Interest check returned error status", "isbn", isbn, "status", status)
		return nil, nil
	}
}

// GetPrice fetches the quoted buy-back price in euros for the service's
// internal book id. The wire format is integer cents under either "price"
// or "offer_price"; nil means no usable quote.
func (c *Client) GetPrice(ctx context.Context, bookID string) (*float64, error) {
	requestURL := fmt.Sprintf("%s/api/v2/books/%s/price", c.BaseURL, bookID)

	body, status, err := c.get(ctx, requestURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("Price lookup failed", "book_id", bookID, "err", err)
		return nil, nil
	}
	if status != http.StatusOK {
		slog.Warn("Price lookup returned error status", "book_id", bookID, "status", status)
		return nil, nil
	}

	var decoded struct {
		Price      *float64 `json:"price"`
		OfferPrice *float64 `json:"offer_price"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		slog.Warn("Failed to decode price response", "book_id", bookID, "err", err)
		return nil, nil
	}

	cents := decoded.Price
	if cents == nil {
		cents = decoded.OfferPrice
	}
	if cents == nil {
		return nil, nil
	}

	euros := *cents / 100
	return &euros, nil
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Request_id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
