package config

import (
	"time"
)

// Provider names a model backend.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderGemini, ProviderOpenAI, ProviderAnthropic}

// Settings is the application configuration for mcpask. It is assembled from
// built-in defaults, the user and project settings files, and the environment.
type Settings struct {
	Provider    Provider `yaml:"provider,omitempty"`    // gemini, openai or anthropic
	Model       string   `yaml:"model,omitempty"`       // Model name; defaults per provider
	Temperature *float64 `yaml:"temperature,omitempty"` // Sampling temperature
	MaxTokens   int      `yaml:"maxTokens,omitempty"`   // Output token limit per model call

	// MaxToolRounds bounds how many times the model may call tools before
	// the last answer is returned as is.
	MaxToolRounds int `yaml:"maxToolRounds,omitempty"`

	HandshakeTimeout time.Duration `yaml:"handshakeTimeout,omitempty"` // Per-server initialize bound
	ShutdownGrace    time.Duration `yaml:"shutdownGrace,omitempty"`    // Wait between teardown signals
	Parallelism      int           `yaml:"parallelism,omitempty"`      // Servers attempted at once

	MCPConfig        string `yaml:"mcpConfig,omitempty"`        // Path to the MCP server configuration
	UpdateRepository string `yaml:"updateRepository,omitempty"` // owner/repo used by self-update
}

// Credentials holds what is needed to reach a provider's API.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// TemperatureValue returns the configured temperature, 0 when unset.
func (s Settings) TemperatureValue() float64 {
	if s.Temperature == nil {
		return 0
	}
	return *s.Temperature
}
