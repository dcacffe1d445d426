package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dpage/maildroid/internal/model"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

func (g *Gateway) sendOpenAI(
	ctx context.Context,
	cfg model.ProviderConfig,
	systemPrompt string,
	userContent string,
) (string, error) {
	endpoint := baseURL(cfg, defaultOpenAIBaseURL) + "/v1/chat/completions"

	reqBody := openaiRequest{
		Model: cfg.Model,
		Messages: []openaiMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
	}
	headers := map[string]string{
		"Authorization": "Bearer " + cfg.Credential,
	}

	status, body, err := g.postJSON(ctx, cfg.Kind, endpoint, headers, reqBody)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", newProviderError(cfg.Kind, status, body)
	}

	var result openaiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", invalidResponse(cfg.Kind, fmt.Sprintf("decoding response: %v", err))
	}
	if len(result.Choices) == 0 {
		return "", invalidResponse(cfg.Kind, "no choices in response")
	}

	return result.Choices[0].Message.Content, nil
}

// --- OpenAI API types ---

type openaiRequest struct {
	Model    string          `json:"model"`
	Messages []openaiMessage `json:"messages"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []struct {
		Message openaiMessage `json:"message"`
	} `json:"choices"`
}
