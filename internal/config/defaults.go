package config

import (
	"time"
)

const (
	DefaultMCPConfig        = "mcp.json"
	DefaultUpdateRepository = "mcpask/mcpask"
)

// defaultModels maps each provider to the model used when none is set.
var defaultModels = map[Provider]string{
	ProviderGemini:    "gemini-2.0-flash",
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-3-5-haiku-latest",
}

// DefaultModel returns the model used for provider when none is configured.
func DefaultModel(provider Provider) string {
	return defaultModels[provider]
}

// GetDefaultSettings returns the built-in settings layer.
func GetDefaultSettings() Settings {
	temperature := 0.0
	return Settings{
		Provider:         ProviderGemini,
		Temperature:      &temperature,
		MaxTokens:        4096,
		MaxToolRounds:    10,
		HandshakeTimeout: 30 * time.Second,
		ShutdownGrace:    2 * time.Second,
		Parallelism:      1,
		MCPConfig:        DefaultMCPConfig,
		UpdateRepository: DefaultUpdateRepository,
	}
}
