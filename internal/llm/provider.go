package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mcpask/internal/config"
)

// GeminiOpenAIBaseURL is Gemini's OpenAI-compatible endpoint.
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// ErrMissingAPIKey is returned by NewProvider when no API key is configured.
var ErrMissingAPIKey = errors.New("API key is not set")

// Provider is a model API backend.
type Provider interface {
	// Name returns the provider name, e.g. "gemini".
	Name() string
	// Generate makes one model call.
	Generate(ctx context.Context, req Request) (*Response, error)
}

// NewProvider creates the provider for kind using creds.
func NewProvider(kind config.Provider, creds config.Credentials) (Provider, error) {
	if creds.APIKey == "" {
		return nil, fmt.Errorf("%s: %w (set %s_API_KEY)", kind, ErrMissingAPIKey, strings.ToUpper(string(kind)))
	}

	switch kind {
	case config.ProviderGemini:
		baseURL := creds.BaseURL
		if baseURL == "" {
			baseURL = GeminiOpenAIBaseURL
		}
		return NewOpenAIProvider(string(kind), creds.APIKey, baseURL), nil
	case config.ProviderOpenAI:
		return NewOpenAIProvider(string(kind), creds.APIKey, creds.BaseURL), nil
	case config.ProviderAnthropic:
		return NewAnthropicProvider(creds.APIKey, creds.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", kind)
	}
}

// RemoteCallError reports a failed model call. It is not retried.
type RemoteCallError struct {
	Provider string
	Err      error
}

func (e *RemoteCallError) Error() string {
	return fmt.Sprintf("%s model call failed: %v", e.Provider, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}
