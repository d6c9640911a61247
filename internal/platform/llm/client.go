// Package llm wraps the Gemini API behind the narrow call surface the
// extraction pipeline needs: one prompt in, one JSON string out.
package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Client talks to the Gemini API.
type Client struct {
	c     *genai.Client
	model string
}

// NewClient creates a Gemini client. The model name is configurable so
// deployments can trade cost against extraction quality.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not set")
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Client{c: c, model: model}, nil
}

// Extract sends the prompt and returns the model's raw JSON response text.
// Callers own parsing and validation of the payload.
func (c *Client) Extract(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	result, err := c.c.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini GenerateContent: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini returned empty response")
	}
	return text, nil
}
