package pipeline

import (
	"fmt"

	"github.com/rvdploeg/boekwinst/internal/models"
)

// Event is one progress notification on the analysis stream. The concrete
// types below are the wire contract: the transport layer encodes each one
// as a single JSON object whose "type" field discriminates.
type Event interface {
	Kind() string
}

// Sink receives events in emission order.
type Sink func(Event)

// StatusEvent announces a new pipeline step.
type StatusEvent struct {
	Type    string `json:"type"`
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// DetectedEvent reports how many spines the detector read.
type DetectedEvent struct {
	Type    string `json:"type"`
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// LookupProgressEvent marks the start of edition resolution for one book.
type LookupProgressEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	Title string `json:"title"`
}

// LookupFoundEvent reports a successful edition resolution.
type LookupFoundEvent struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	Title        string `json:"title"`
	ISBN         string `json:"isbn"`
	EditionCount int    `json:"edition_count"`
}

// LookupMissingEvent reports a book no catalog query could resolve.
type LookupMissingEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Title string `json:"title"`
}

// PriceProgressEvent marks the start of buy-back probing for one book.
type PriceProgressEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	Title string `json:"title"`
}

// BookSkipEvent reports a book none of whose editions drew interest.
type BookSkipEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Title string `json:"title"`
}

// BookResultEvent carries one finished profitability record.
type BookResultEvent struct {
	Type string           `json:"type"`
	Book models.BookEntry `json:"book"`
}

// DoneEvent closes a successful run with the summary and the sorted books.
type DoneEvent struct {
	Type    string             `json:"type"`
	Summary models.Summary     `json:"summary"`
	Books   []models.BookEntry `json:"books"`
}

// ErrorEvent is the single terminal notification for a hard failure.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e StatusEvent) Kind() string         { return e.Type }
func (e DetectedEvent) Kind() string       { return e.Type }
func (e LookupProgressEvent) Kind() string { return e.Type }
func (e LookupFoundEvent) Kind() string    { return e.Type }
func (e LookupMissingEvent) Kind() string  { return e.Type }
func (e PriceProgressEvent) Kind() string  { return e.Type }
func (e BookSkipEvent) Kind() string       { return e.Type }
func (e BookResultEvent) Kind() string     { return e.Type }
func (e DoneEvent) Kind() string           { return e.Type }
func (e ErrorEvent) Kind() string          { return e.Type }

func NewStatus(step, total int, message string) StatusEvent {
	return StatusEvent{Type: "status", Step: step, Total: total, Message: message}
}

func NewDetected(count int) DetectedEvent {
	return DetectedEvent{Type: "detected", Count: count, Message: fmt.Sprintf("%d boeken herkend", count)}
}

func NewLookupProgress(index, total int, title string) LookupProgressEvent {
	return LookupProgressEvent{Type: "isbn_progress", Index: index, Total: total, Title: title}
}

func NewLookupFound(index int, title, isbn string, editionCount int) LookupFoundEvent {
	return LookupFoundEvent{Type: "isbn_found", Index: index, Title: title, ISBN: isbn, EditionCount: editionCount}
}

func NewLookupMissing(index int, title string) LookupMissingEvent {
	return LookupMissingEvent{Type: "isbn_missing", Index: index, Title: title}
}

func NewPriceProgress(index, total int, title string) PriceProgressEvent {
	return PriceProgressEvent{Type: "price_progress", Index: index, Total: total, Title: title}
}

func NewBookSkip(index int, title string) BookSkipEvent {
	return BookSkipEvent{Type: "book_skip", Index: index, Title: title}
}

func NewBookResult(book models.BookEntry) BookResultEvent {
	return BookResultEvent{Type: "book_result", Book: book}
}

func NewDone(summary models.Summary, books []models.BookEntry) DoneEvent {
	return DoneEvent{Type: "done", Summary: summary, Books: books}
}

func NewError(message string) ErrorEvent {
	return ErrorEvent{Type: "error", Message: message}
}
