package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dpage/maildroid/internal/model"
)

// knownModels lists current model identifiers for providers that have
// no reliable discovery endpoint. Maintained by hand; update as
// providers ship new models.
var knownModels = map[model.ProviderKind][]string{
	model.ProviderOpenAI: {
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4.1",
		"gpt-4.1-mini",
		"o3-mini",
	},
	model.ProviderAnthropic: {
		"claude-sonnet-4-5-20250929",
		"claude-opus-4-1-20250805",
		"claude-3-5-haiku-20241022",
	},
	model.ProviderGemini: {
		"gemini-2.0-flash",
		"gemini-2.0-flash-lite",
		"gemini-1.5-pro",
	},
}

// FetchAvailableModels returns the model identifiers selectable for
// the provider. Ollama is asked live since its catalog is whatever
// the user has pulled; the hosted providers use the maintained lists.
func (g *Gateway) FetchAvailableModels(
	ctx context.Context,
	cfg model.ProviderConfig,
) ([]string, error) {
	if cfg.Kind == model.ProviderOllama {
		return g.fetchOllamaModels(ctx, cfg)
	}

	models, ok := knownModels[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Kind)
	}
	return append([]string(nil), models...), nil
}

// fetchOllamaModels queries the local Ollama instance for its
// installed models.
func (g *Gateway) fetchOllamaModels(
	ctx context.Context,
	cfg model.ProviderConfig,
) ([]string, error) {
	endpoint := baseURL(cfg, defaultOllamaBaseURL) + "/api/tags"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{
			Provider: cfg.Kind,
			Message:  fmt.Sprintf("calling ollama API: %v", err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{
			Provider:   cfg.Kind,
			StatusCode: resp.StatusCode,
			Message:    "listing models failed",
		}
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, invalidResponse(cfg.Kind, fmt.Sprintf("decoding tags: %v", err))
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
