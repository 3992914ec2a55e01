package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/rvdploeg/boekwinst/internal/models"
)

// Anti-hallucination prompt: the model must only report spines it can
// genuinely read, with a calibrated confidence per book.
const detectionPrompt = `You are analyzing a bookshelf photograph to identify visible books.

CRITICAL RULES:
1. ONLY return books you can ACTUALLY SEE in the image
2. DO NOT hallucinate or invent book titles
3. If text is unclear or partially visible, mark lower confidence
4. If you cannot read a spine clearly, skip it
5. Return ONLY what is genuinely visible

For each clearly visible book spine, extract:
- title: The exact title as written (keep original language/capitalization)
- author: Author name if visible, or null if not readable
- confidence: 0.0-1.0 based on text clarity
  * 0.9-1.0: Text is crystal clear
  * 0.7-0.9: Text is readable but some uncertainty
  * 0.5-0.7: Text is partially obscured or unclear
  * Below 0.5: Don't include the book
- shelf: Shelf number, 1 = top shelf, counting downwards
- position: Position on the shelf counting from the left, starting at 1

Return as JSON array with this exact structure:
[
  {
    "title": "Exact Title As Written",
    "author": "Author Name" or null,
    "confidence": 0.95,
    "shelf": 1,
    "position": 3
  }
]

Be conservative. Quality over quantity. Only return books you can genuinely read.`

// Gemini detects book spines on shelf photographs using Google Gemini.
type Gemini struct {
	model string
}

// New returns a Gemini detector for the given model name.
func New(model string) *Gemini {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{model: model}
}

// DetectBooks sends the photograph to Gemini and returns the detections that
// clear the confidence floor. A malformed model response is a fatal error
// for the run; there is no sensible degraded result without detections.
func (g *Gemini) DetectBooks(ctx context.Context, imagePath string) ([]models.Detection, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetTemperature(0.1)
	model.SetTopP(0.8)
	model.SetMaxOutputTokens(8192)

	resp, err := model.GenerateContent(ctx,
		genai.Text(detectionPrompt),
		genai.ImageData(imageFormat(imagePath), imageData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini")
	}

	txt, ok := candidate.Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}

	detections, err := ParseDetections(string(txt))
	if err != nil {
		return nil, err
	}

	slog.Info("Detected books", "count", len(detections), "model", g.model)
	return detections, nil
}

// ParseDetections parses the model's JSON array into validated detections.
// Entries without a readable title or below the confidence floor are
// dropped; a response that is not a JSON array at all is an error.
func ParseDetections(response string) ([]models.Detection, error) {
	cleaned := stripCodeFences(response)

	var raw []models.Detection
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON response from Gemini: %w", err)
	}

	detections := make([]models.Detection, 0, len(raw))
	for _, d := range raw {
		// The model occasionally omits layout fields.
		if d.Shelf < 1 {
			d.Shelf = 1
		}
		if d.Position < 0 {
			d.Position = 0
		}

		if err := d.Validate(); err != nil {
			slog.Warn("Dropping malformed detection", "title", d.Title, "err", err)
			continue
		}
		if d.Confidence < models.MinConfidence {
			slog.Debug("Dropping low-confidence detection", "title", d.Title, "confidence", d.Confidence)
			continue
		}
		detections = append(detections, d)
	}

	return detections, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func imageFormat(path string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "", "jpg":
		return "jpeg"
	default:
		return ext
	}
}
