package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dpage/maildroid/internal/model"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"

	// anthropicMaxTokens caps the response length; the Messages API
	// requires an explicit limit.
	anthropicMaxTokens = 1024
)

func (g *Gateway) sendAnthropic(
	ctx context.Context,
	cfg model.ProviderConfig,
	systemPrompt string,
	userContent string,
) (string, error) {
	endpoint := baseURL(cfg, defaultAnthropicBaseURL) + "/v1/messages"

	reqBody := anthropicRequest{
		Model:     cfg.Model,
		MaxTokens: anthropicMaxTokens,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userContent},
		},
	}
	headers := map[string]string{
		"x-api-key":         cfg.Credential,
		"anthropic-version": anthropicAPIVersion,
	}

	status, body, err := g.postJSON(ctx, cfg.Kind, endpoint, headers, reqBody)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", newProviderError(cfg.Kind, status, body)
	}

	var result anthropicResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", invalidResponse(cfg.Kind, fmt.Sprintf("decoding response: %v", err))
	}

	for _, block := range result.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", invalidResponse(cfg.Kind, "no text block in response")
}

// --- Anthropic API types ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}
