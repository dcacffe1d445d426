package model

// ProviderKind identifies an LLM backend integration.
type ProviderKind string

const (
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderGemini    ProviderKind = "gemini"
	ProviderOllama    ProviderKind = "ollama"
)

// ProviderConfig selects the LLM backend used for analysis.
type ProviderConfig struct {
	// Kind selects the backend variant (use Provider* constants).
	Kind ProviderKind `mapstructure:"kind" yaml:"kind" json:"kind"`

	// Credential is the API key or token for the backend. It is held
	// in memory only; persistence belongs to the system keyring.
	// Ollama requires none.
	Credential string `mapstructure:"-" yaml:"-" json:"-"`

	// BaseURL overrides the backend's default endpoint, mainly for
	// self-hosted or proxied deployments.
	BaseURL string `mapstructure:"base_url" yaml:"base_url" json:"base_url,omitempty"`

	// Model is the backend model identifier to use.
	Model string `mapstructure:"model" yaml:"model" json:"model"`
}
