package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dpage/maildroid/internal/model"
)

const defaultOllamaBaseURL = "http://localhost:11434"

func (g *Gateway) sendOllama(
	ctx context.Context,
	cfg model.ProviderConfig,
	systemPrompt string,
	userContent string,
) (string, error) {
	endpoint := baseURL(cfg, defaultOllamaBaseURL) + "/api/chat"

	reqBody := ollamaRequest{
		Model: cfg.Model,
		Messages: []ollamaMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Stream: false,
	}

	status, body, err := g.postJSON(ctx, cfg.Kind, endpoint, nil, reqBody)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", newProviderError(cfg.Kind, status, body)
	}

	var result ollamaResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", invalidResponse(cfg.Kind, fmt.Sprintf("decoding response: %v", err))
	}
	if result.Message.Content == "" {
		return "", invalidResponse(cfg.Kind, "no message content in response")
	}

	return result.Message.Content, nil
}

// --- Ollama API types ---

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
