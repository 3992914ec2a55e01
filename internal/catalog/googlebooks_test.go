package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func volumeJSON(isbn13, isbn10, language, printType string, isEbook bool) map[string]any {
	var identifiers []map[string]string
	if isbn13 != "" {
		identifiers = append(identifiers, map[string]string{"type": "ISBN_13", "identifier": isbn13})
	}
	if isbn10 != "" {
		identifiers = append(identifiers, map[string]string{"type": "ISBN_10", "identifier": isbn10})
	}
	return map[string]any{
		"saleInfo": map[string]any{"isEbook": isEbook},
		"volumeInfo": map[string]any{
			"title":               "De Aanslag",
			"authors":             []string{"Harry Mulisch"},
			"language":            language,
			"printType":           printType,
			"industryIdentifiers": identifiers,
		},
	}
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, "nl", 10, time.Millisecond)
}

func TestFindEditionsDutchFirst(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var items []map[string]any
		if r.URL.Query().Get("langRestrict") == "nl" {
			items = []map[string]any{volumeJSON("9789023466345", "", "nl", "BOOK", false)}
		} else {
			items = []map[string]any{
				volumeJSON("9780394553979", "", "en", "BOOK", false),
				volumeJSON("9789023466345", "", "nl", "BOOK", false), // duplicate
			}
		}
		if err := json.NewEncoder(w).Encode(map[string]any{"totalItems": len(items), "items": items}); err != nil {
			t.Fatal(err)
		}
	})

	editions := newTestClient(server.URL).FindEditions(context.Background(), "De Aanslag", "Harry Mulisch")

	if len(editions) != 2 {
		t.Fatalf("got %d editions, want 2 (duplicate ISBN deduped)", len(editions))
	}
	if editions[0].Language != "nl" {
		t.Errorf("first edition language = %q, want nl", editions[0].Language)
	}
	if editions[0].ISBN != "9789023466345" {
		t.Errorf("first edition ISBN = %q, want 9789023466345", editions[0].ISBN)
	}
	if editions[1].ISBN != "9780394553979" {
		t.Errorf("second edition ISBN = %q, want 9780394553979", editions[1].ISBN)
	}
}

func TestFindEditionsFiltersDigital(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]any{
			volumeJSON("9781111111111", "", "nl", "BOOK", true),      // ebook
			volumeJSON("9782222222222", "", "nl", "MAGAZINE", false), // wrong print type
			volumeJSON("", "", "nl", "BOOK", false),                  // no ISBN
			volumeJSON("9783333333333", "", "nl", "BOOK", false),
		}
		if err := json.NewEncoder(w).Encode(map[string]any{"totalItems": len(items), "items": items}); err != nil {
			t.Fatal(err)
		}
	})

	editions := newTestClient(server.URL).FindEditions(context.Background(), "De Aanslag", "")

	if len(editions) != 1 {
		t.Fatalf("got %d editions, want 1", len(editions))
	}
	if editions[0].ISBN != "9783333333333" {
		t.Errorf("ISBN = %q, want 9783333333333", editions[0].ISBN)
	}
}

func TestFindEditionsISBN10Fallback(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]any{volumeJSON("", "9023466349", "nl", "BOOK", false)}
		if err := json.NewEncoder(w).Encode(map[string]any{"totalItems": 1, "items": items}); err != nil {
			t.Fatal(err)
		}
	})

	editions := newTestClient(server.URL).FindEditions(context.Background(), "De Aanslag", "")

	if len(editions) != 1 {
		t.Fatalf("got %d editions, want 1", len(editions))
	}
	if editions[0].ISBN != "9023466349" {
		t.Errorf("ISBN = %q, want ISBN-10 fallback", editions[0].ISBN)
	}
}

func TestFindEditionsOnePassFails(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("langRestrict") == "nl" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		items := []map[string]any{volumeJSON("9780394553979", "", "en", "BOOK", false)}
		if err := json.NewEncoder(w).Encode(map[string]any{"totalItems": 1, "items": items}); err != nil {
			t.Fatal(err)
		}
	})

	editions := newTestClient(server.URL).FindEditions(context.Background(), "De Aanslag", "")

	if len(editions) != 1 {
		t.Fatalf("got %d editions, want 1 (failed pass swallowed)", len(editions))
	}
}

func TestFindEditionsEmptyTitle(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1") // must never be hit
	if editions := client.FindEditions(context.Background(), "", "Harry Mulisch"); editions != nil {
		t.Errorf("got %v, want nil for empty title", editions)
	}
}

func TestSearchQueryParameters(t *testing.T) {
	var got map[string]string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{
			"q":            r.URL.Query().Get("q"),
			"maxResults":   r.URL.Query().Get("maxResults"),
			"printType":    r.URL.Query().Get("printType"),
			"langRestrict": r.URL.Query().Get("langRestrict"),
		}
		if err := json.NewEncoder(w).Encode(map[string]any{"totalItems": 0}); err != nil {
			t.Fatal(err)
		}
	})

	client := NewClient(server.URL, "nl", 5, time.Millisecond)
	if _, err := client.search(context.Background(), "intitle:De Aanslag+inauthor:Harry Mulisch", "nl"); err != nil {
		t.Fatalf("search() error = %v", err)
	}

	if got["q"] != "intitle:De Aanslag+inauthor:Harry Mulisch" {
		t.Errorf("q = %q", got["q"])
	}
	if got["maxResults"] != "5" {
		t.Errorf("maxResults = %q, want 5", got["maxResults"])
	}
	if got["printType"] != "books" {
		t.Errorf("printType = %q, want books", got["printType"])
	}
	if got["langRestrict"] != "nl" {
		t.Errorf("langRestrict = %q, want nl", got["langRestrict"])
	}
}
