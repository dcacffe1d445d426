// Package llm sends analysis prompts to the configured LLM backend.
// Each supported provider has its own request shape, authentication
// placement, and response schema; the gateway hides those behind a
// single SendPrompt call.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dpage/maildroid/internal/model"
)

var (
	// ErrNotConfigured indicates that no usable provider selection
	// exists (no kind or no model).
	ErrNotConfigured = errors.New("llm provider not configured")

	// ErrMissingCredential indicates the selected provider needs an
	// API key and none is stored. Callers can prompt for one.
	ErrMissingCredential = errors.New("llm credential not configured")

	// ErrRateLimited indicates the provider answered 429.
	ErrRateLimited = errors.New("llm provider rate limited")

	// ErrModelNotFound indicates the provider answered 404 for the
	// configured model.
	ErrModelNotFound = errors.New("llm model not found")

	// ErrInvalidResponse indicates the provider answered with a body
	// that does not match its documented schema.
	ErrInvalidResponse = errors.New("invalid llm response")
)

// ProviderError carries the provider, HTTP status, and extracted
// message of a failed exchange. It unwraps to one of the sentinel
// errors above when the status has a specific meaning.
type ProviderError struct {
	Provider   model.ProviderKind
	StatusCode int
	Message    string

	err error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.err
}

// newProviderError maps a non-2xx exchange to a ProviderError,
// attaching the rate-limited or model-not-found sentinel when the
// status calls for one.
func newProviderError(kind model.ProviderKind, status int, body []byte) *ProviderError {
	e := &ProviderError{
		Provider:   kind,
		StatusCode: status,
		Message:    extractErrorMessage(body),
	}
	switch status {
	case http.StatusTooManyRequests:
		e.err = ErrRateLimited
	case http.StatusNotFound:
		e.err = ErrModelNotFound
	}
	return e
}

// invalidResponse wraps a schema mismatch as a ProviderError that
// unwraps to ErrInvalidResponse.
func invalidResponse(kind model.ProviderKind, message string) *ProviderError {
	return &ProviderError{
		Provider: kind,
		Message:  message,
		err:      ErrInvalidResponse,
	}
}

// extractErrorMessage pulls a human-readable message out of a
// provider error body. Providers disagree on the shape, so it tries
// a nested error.message, then a top-level string error, then a
// nested error.status.
func extractErrorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var plain struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &plain) == nil && plain.Error != "" {
		return plain.Error
	}

	if nested.Error.Status != "" {
		return nested.Error.Status
	}

	return "Unknown error"
}

// ValidateConfig reports whether the configuration is complete enough
// to attempt an exchange. Callers use it to fail fast before doing
// any other work.
func ValidateConfig(cfg model.ProviderConfig) error {
	if cfg.Kind == "" || cfg.Model == "" {
		return ErrNotConfigured
	}
	if requiresCredential(cfg.Kind) && cfg.Credential == "" {
		return ErrMissingCredential
	}
	return nil
}

// Gateway performs prompt exchanges with whichever provider the
// configuration selects.
type Gateway struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewGateway creates a provider gateway. The generous timeout covers
// slow local models.
func NewGateway(logger *zap.Logger) *Gateway {
	return &Gateway{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

// SendPrompt sends one system-plus-user exchange to the configured
// provider and returns the assistant's text. Configuration problems
// are reported before any network traffic.
func (g *Gateway) SendPrompt(
	ctx context.Context,
	cfg model.ProviderConfig,
	systemPrompt string,
	userContent string,
) (string, error) {
	if err := ValidateConfig(cfg); err != nil {
		return "", err
	}

	g.logger.Debug("sending prompt",
		zap.String("provider", string(cfg.Kind)),
		zap.String("model", cfg.Model))

	switch cfg.Kind {
	case model.ProviderOpenAI:
		return g.sendOpenAI(ctx, cfg, systemPrompt, userContent)
	case model.ProviderAnthropic:
		return g.sendAnthropic(ctx, cfg, systemPrompt, userContent)
	case model.ProviderGemini:
		return g.sendGemini(ctx, cfg, systemPrompt, userContent)
	case model.ProviderOllama:
		return g.sendOllama(ctx, cfg, systemPrompt, userContent)
	default:
		return "", fmt.Errorf("%w: unknown provider %q", ErrNotConfigured, cfg.Kind)
	}
}

// requiresCredential reports whether the provider needs an API key.
// Ollama runs locally and authenticates nothing.
func requiresCredential(kind model.ProviderKind) bool {
	return kind != model.ProviderOllama
}

// baseURL returns the configured base URL, or the provider default.
func baseURL(cfg model.ProviderConfig, fallback string) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	return fallback
}

// postJSON performs one JSON POST exchange and returns the status
// code and raw response body. Failing to complete the exchange at all
// yields a ProviderError with a zero status.
func (g *Gateway) postJSON(
	ctx context.Context,
	kind model.ProviderKind,
	endpoint string,
	headers map[string]string,
	payload interface{},
) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, bytes.NewReader(body),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, nil, &ProviderError{
			Provider: kind,
			Message:  fmt.Sprintf("calling %s API: %v", kind, err),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &ProviderError{
			Provider: kind,
			Message:  fmt.Sprintf("reading response: %v", err),
		}
	}

	return resp.StatusCode, respBody, nil
}
