package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	"github.com/rvdploeg/boekwinst/internal/pipeline"
)

// Runner is the analysis entry point the HTTP layer drives.
type Runner interface {
	Run(ctx context.Context, imagePath string, purchasePrice float64, emit pipeline.Sink) (*pipeline.Result, error)
}

type Handler struct {
	pipeline  Runner
	uploadDir string
}

func New(runner Runner) *Handler {
	return &Handler{
		pipeline:  runner,
		uploadDir: "uploads",
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

func (h *Handler) ensureUploadDir() error {
	return os.MkdirAll(h.uploadDir, 0755)
}
