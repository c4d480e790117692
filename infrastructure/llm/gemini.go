// Package llm provides the Gemini-backed implementation of the model client
// port, plus a circuit breaker wrapper for it.
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	apperrors "treeviz-backend/pkg/errors"
)

// GeminiClient calls the Gemini API through the official GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// Generate sends the system instruction and user payload and returns the
// model's raw text.
func (c *GeminiClient) Generate(ctx context.Context, systemInstruction, userPayload string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(userPayload, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
		ResponseMIMEType:  "application/json",
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		c.logger.Warn("Gemini call failed",
			zap.String("model", c.model),
			zap.Error(err))
		return "", apperrors.NewExternalError("Gemini generation failed", err)
	}

	text := result.Text()
	if text == "" {
		return "", apperrors.NewExternalError("Gemini returned an empty response", nil)
	}
	return text, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}
