package vision

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is used when GeminiConfig.Model is empty.
const DefaultModel = "gemini-2.5-flash"

const verifyPrompt = `You verify photos uploaded to a road accident report.
The driver describes the photo as: %q

Answer with a single JSON object and nothing else:
{"valid": bool, "reason": string, "car_plate": string, "confidence": number}

- valid is true only if the photo plausibly shows what the description says.
- reason explains a false verdict in one short sentence; empty when valid.
- car_plate is the most legible Malaysian number plate, uppercase without spaces, or "".
- confidence is between 0 and 1.`

// GeminiConfig configures the Gemini verifier.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string // Optional API endpoint override
}

// Gemini verifies images with a Gemini multimodal model.
type Gemini struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGemini creates a Gemini verifier.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  cfg.Model,
		logger: logger,
	}, nil
}

// Verify implements Verifier.
func (g *Gemini) Verify(ctx context.Context, imageB64, description string) (*Verdict, error) {
	data, mimeType, err := DecodeImage(imageB64)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(data, mimeType),
			genai.NewPartFromText(fmt.Sprintf(verifyPrompt, description)),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini verification failed: %w", err)
	}

	verdict, err := parseVerdict(resp.Text())
	if err != nil {
		return nil, err
	}

	g.logger.Debug("Image verified",
		zap.String("model", g.model),
		zap.String("mime_type", mimeType),
		zap.Bool("valid", verdict.Valid),
		zap.Float64("confidence", verdict.Confidence))

	return verdict, nil
}
