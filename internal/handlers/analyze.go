package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rvdploeg/boekwinst/internal/pipeline"
)

// Shelf photos straight off a phone run large.
const maxUploadBytes = 20 * 1024 * 1024

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
	".heif": true,
}

// HandleAnalyze accepts a shelf photo and streams analysis progress back as
// server-sent events. The stream always ends with one done or error event;
// input problems surface as error events on the stream, not HTTP statuses,
// so the client has a single protocol to follow.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stream, ok := newEventStream(w)
	if !ok {
		h.writeError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	imagePath, purchasePrice, err := h.readAnalyzeRequest(r)
	if err != nil {
		stream.send(pipeline.NewError(err.Error()))
		return
	}
	defer func() {
		if err := os.Remove(imagePath); err != nil {
			slog.Warn("Failed to remove upload", "path", imagePath, "err", err)
		}
	}()

	if _, err := h.pipeline.Run(r.Context(), imagePath, purchasePrice, stream.send); err != nil {
		// Run already emitted the error event.
		slog.Error("Analysis failed", "err", err)
	}
}

// readAnalyzeRequest validates the multipart form and saves the image to the
// upload directory. Error messages are user-facing.
func (h *Handler) readAnalyzeRequest(r *http.Request) (string, float64, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		return "", 0, fmt.Errorf("Geen afbeelding meegestuurd")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return "", 0, fmt.Errorf("Ongeldig bestandstype")
	}

	purchasePrice := 1.0
	if raw := r.FormValue("purchase_price"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			return "", 0, fmt.Errorf("Ongeldige inkoopprijs: %s", raw)
		}
		purchasePrice = parsed
	}

	imagePath, err := h.saveUpload(file, ext)
	if err != nil {
		return "", 0, err
	}
	return imagePath, purchasePrice, nil
}

func (h *Handler) saveUpload(file io.Reader, ext string) (string, error) {
	if err := h.ensureUploadDir(); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	// Read one byte past the cap so an exactly-full file stays valid.
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > maxUploadBytes {
		return "", fmt.Errorf("Afbeelding te groot (max 20MB)")
	}

	path := filepath.Join(h.uploadDir, fmt.Sprintf("shelf_%d%s", time.Now().UnixNano(), ext))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

// eventStream frames pipeline events as server-sent events.
type eventStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventStream(w http.ResponseWriter) (*eventStream, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	return &eventStream{w: w, flusher: flusher}, true
}

func (s *eventStream) send(event pipeline.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Unable to encode event", "type", event.Kind(), "err", err)
		return
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		slog.Warn("Client went away", "err", err)
		return
	}
	s.flusher.Flush()
}
