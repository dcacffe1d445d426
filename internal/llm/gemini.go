package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/dpage/maildroid/internal/model"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

func (g *Gateway) sendGemini(
	ctx context.Context,
	cfg model.ProviderConfig,
	systemPrompt string,
	userContent string,
) (string, error) {
	// Gemini authenticates with a query-string key instead of a
	// header.
	endpoint := fmt.Sprintf(
		"%s/v1beta/models/%s:generateContent?key=%s",
		baseURL(cfg, defaultGeminiBaseURL),
		url.PathEscape(cfg.Model),
		url.QueryEscape(cfg.Credential),
	)

	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: systemPrompt}},
		},
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: userContent}}},
		},
	}

	status, body, err := g.postJSON(ctx, cfg.Kind, endpoint, nil, reqBody)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", newProviderError(cfg.Kind, status, body)
	}

	var result geminiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", invalidResponse(cfg.Kind, fmt.Sprintf("decoding response: %v", err))
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", invalidResponse(cfg.Kind, "no candidates in response")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}

// --- Gemini API types ---

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}
