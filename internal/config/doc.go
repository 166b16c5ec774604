// Package config provides settings management for mcpask.
//
// Settings are layered. Each layer only overrides the values it sets:
//
//  1. Default settings (built into the binary)
//  2. User settings (~/.config/mcpask/config.yaml)
//  3. Project settings (./.mcpask/config.yaml)
//  4. Environment (MCPASK_PROVIDER, MCPASK_MODEL)
//  5. Command line flags, applied by the cmd package before Finalize
//
// A settings file looks like this:
//
//	provider: anthropic
//	model: claude-3-5-haiku-latest
//	temperature: 0.2
//	maxTokens: 2048
//	maxToolRounds: 5
//	handshakeTimeout: 10s
//	shutdownGrace: 1s
//	parallelism: 4
//	mcpConfig: ~/mcp.json
//
// Unknown keys are rejected so typos do not go unnoticed.
//
// # Secrets
//
// API keys never live in settings files. They are read from the environment
// by CredentialsFor, using <PROVIDER>_API_KEY and <PROVIDER>_BASE_URL.
// LoadDotEnv fills the environment from the nearest .env file without
// overriding variables that are already set:
//
//	if _, err := config.LoadDotEnv("."); err != nil {
//	    return err
//	}
//	settings, err := config.LoadSettings()
//	if err != nil {
//	    return err
//	}
//	creds := config.CredentialsFor(settings.Provider)
package config
