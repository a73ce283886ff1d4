// Package vision checks that an uploaded accident photo matches what the
// driver says it shows, and reads the car plate when it can.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strings"
)

// ReasonMismatch is the verdict reason when a photo contradicts its description.
const ReasonMismatch = "Image does not match description"

// Verdict is the result of checking one image.
type Verdict struct {
	Valid      bool    `json:"valid"`
	Reason     string  `json:"reason,omitempty"`
	CarPlate   string  `json:"car_plate,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Verifier checks an image against its description.
type Verifier interface {
	Verify(ctx context.Context, imageB64, description string) (*Verdict, error)
}

// Mock is the offline Verifier used when no Gemini key is configured.
// Any description containing "fail" is rejected; everything else passes
// with a random plate of the form W####X.
type Mock struct{}

// Verify implements Verifier.
func (Mock) Verify(ctx context.Context, imageB64, description string) (*Verdict, error) {
	if strings.Contains(strings.ToLower(description), "fail") {
		return &Verdict{Valid: false, Reason: ReasonMismatch}, nil
	}

	return &Verdict{
		Valid:      true,
		CarPlate:   fmt.Sprintf("W%dX", 1000+rand.IntN(9000)),
		Confidence: 0.98,
	}, nil
}

// DecodeImage accepts raw base64 or a data URI and returns the image bytes
// with their MIME type. Without a data URI prefix the type is sniffed.
func DecodeImage(encoded string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, "", fmt.Errorf("image is empty")
	}

	mimeType := ""
	if strings.HasPrefix(encoded, "data:") {
		header, payload, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("unsupported data URI: expected base64 payload")
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("invalid base64 image: %w", err)
	}

	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("unsupported content type %q", mimeType)
	}

	return data, mimeType, nil
}

// parseVerdict reads the model's JSON answer, tolerating a fenced code block.
func parseVerdict(text string) (*Verdict, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var verdict Verdict
	if err := json.Unmarshal([]byte(text), &verdict); err != nil {
		return nil, fmt.Errorf("model returned malformed verdict: %w", err)
	}
	if !verdict.Valid && verdict.Reason == "" {
		verdict.Reason = ReasonMismatch
	}
	return &verdict, nil
}
