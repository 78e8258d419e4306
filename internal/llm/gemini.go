package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiBackend implements Backend for Google Gemini. Primary and fallback
// backends are typically two GeminiBackend instances sharing one client but
// pointing at different model identifiers.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates the shared provider client.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiBackend binds a model identifier to a shared client.
func NewGeminiBackend(client *genai.Client, model string) *GeminiBackend {
	return &GeminiBackend{client: client, model: model}
}

// Model returns the bound model identifier.
func (b *GeminiBackend) Model() string { return b.model }

// Complete runs one generation call against the bound model. Provider
// failures come back classified as *BackendError.
func (b *GeminiBackend) Complete(ctx context.Context, prompt, systemPrompt string, maxTokens int) (*Completion, error) {
	model := b.client.GenerativeModel(b.model)
	model.SetTemperature(0.1) // Low temperature for consistent output
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, Classify(err, b.model)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, &BackendError{Kind: ErrKindRejected, Model: b.model, Cause: err}
	}

	return &Completion{Text: text, TokenCount: tokenCount(resp, text)}, nil
}

// extractText flattens the first candidate's text parts.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// tokenCount reads the provider's usage metadata, estimating from the text
// length when the provider omits it.
func tokenCount(resp *genai.GenerateContentResponse, text string) int {
	if resp.UsageMetadata != nil && resp.UsageMetadata.TotalTokenCount > 0 {
		return int(resp.UsageMetadata.TotalTokenCount)
	}
	return len(text) / 4
}
