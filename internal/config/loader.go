package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"mcpask/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd
var osLookupEnv = os.LookupEnv

const (
	userConfigDir    = ".config/mcpask"
	projectConfigDir = ".mcpask"
	configFileName   = "config.yaml"
)

const (
	envProvider = "MCPASK_PROVIDER"
	envModel    = "MCPASK_MODEL"
)

// LoadSettings loads the mcpask settings by layering default, user, project
// and environment settings. Flags are applied by the caller on top.
func LoadSettings() (Settings, error) {
	// 1. Start with the default settings
	settings := GetDefaultSettings()

	// 2. User settings
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User settings are optional
		logging.Warn("Config", "Could not determine user config path: %v", err)
	} else if overlay, ok, err := loadSettingsFile(userConfigPath); err != nil {
		return Settings{}, err
	} else if ok {
		settings = mergeSettings(settings, overlay)
	}

	// 3. Project settings
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn("Config", "Could not determine project config path: %v", err)
	} else if overlay, ok, err := loadSettingsFile(projectConfigPath); err != nil {
		return Settings{}, err
	} else if ok {
		settings = mergeSettings(settings, overlay)
	}

	// 4. Environment
	settings = applyEnv(settings)

	return Finalize(settings)
}

// Finalize fills in derived values and validates the result. Call it again
// after applying flag overrides.
func Finalize(settings Settings) (Settings, error) {
	settings.Provider = Provider(strings.ToLower(strings.TrimSpace(string(settings.Provider))))
	if settings.Model == "" {
		settings.Model = DefaultModel(settings.Provider)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, &LoadError{Err: err}
	}
	return settings, nil
}

// Validate checks that every value is usable.
func (s Settings) Validate() error {
	var errs []error
	if !slices.Contains(Providers, s.Provider) {
		errs = append(errs, fmt.Errorf("unknown provider %q (want one of %v)", s.Provider, Providers))
	}
	if t := s.TemperatureValue(); t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("temperature %g out of range [0, 2]", t))
	}
	if s.MaxTokens < 1 {
		errs = append(errs, fmt.Errorf("maxTokens must be positive, got %d", s.MaxTokens))
	}
	if s.MaxToolRounds < 1 {
		errs = append(errs, fmt.Errorf("maxToolRounds must be positive, got %d", s.MaxToolRounds))
	}
	if s.HandshakeTimeout < 0 {
		errs = append(errs, fmt.Errorf("handshakeTimeout must not be negative, got %s", s.HandshakeTimeout))
	}
	if s.ShutdownGrace < 0 {
		errs = append(errs, fmt.Errorf("shutdownGrace must not be negative, got %s", s.ShutdownGrace))
	}
	if s.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("parallelism must be at least 1, got %d", s.Parallelism))
	}
	if s.MCPConfig == "" {
		errs = append(errs, errors.New("mcpConfig must not be empty"))
	}
	return errors.Join(errs...)
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadSettingsFile reads one settings layer. A missing file is not an error.
func loadSettingsFile(path string) (Settings, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Settings{}, false, nil
	}
	if err != nil {
		return Settings{}, false, &LoadError{Path: path, Err: err}
	}

	var settings Settings
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&settings); err != nil {
		if errors.Is(err, io.EOF) {
			return Settings{}, true, nil
		}
		return Settings{}, false, &LoadError{Path: path, Err: err}
	}
	logging.Debug("Config", "Loaded settings from %s", path)
	return settings, true, nil
}

// mergeSettings merges overlay into base. Zero values in overlay leave base
// untouched.
func mergeSettings(base, overlay Settings) Settings {
	merged := base

	if overlay.Provider != "" {
		merged.Provider = overlay.Provider
		// A provider switch without a model falls back to that provider's default.
		if overlay.Model == "" && overlay.Provider != base.Provider {
			merged.Model = ""
		}
	}
	if overlay.Model != "" {
		merged.Model = overlay.Model
	}
	if overlay.Temperature != nil {
		t := *overlay.Temperature
		merged.Temperature = &t
	}
	if overlay.MaxTokens != 0 {
		merged.MaxTokens = overlay.MaxTokens
	}
	if overlay.MaxToolRounds != 0 {
		merged.MaxToolRounds = overlay.MaxToolRounds
	}
	if overlay.HandshakeTimeout != 0 {
		merged.HandshakeTimeout = overlay.HandshakeTimeout
	}
	if overlay.ShutdownGrace != 0 {
		merged.ShutdownGrace = overlay.ShutdownGrace
	}
	if overlay.Parallelism != 0 {
		merged.Parallelism = overlay.Parallelism
	}
	if overlay.MCPConfig != "" {
		merged.MCPConfig = overlay.MCPConfig
	}
	if overlay.UpdateRepository != "" {
		merged.UpdateRepository = overlay.UpdateRepository
	}

	return merged
}

func applyEnv(settings Settings) Settings {
	overlay := Settings{}
	if v, ok := osLookupEnv(envProvider); ok && v != "" {
		overlay.Provider = Provider(v)
	}
	if v, ok := osLookupEnv(envModel); ok && v != "" {
		overlay.Model = v
	}
	return mergeSettings(settings, overlay)
}

// CredentialsFor returns the API key and base URL for provider from the
// environment, e.g. GEMINI_API_KEY and GEMINI_BASE_URL.
func CredentialsFor(provider Provider) Credentials {
	prefix := strings.ToUpper(string(provider))
	key, _ := osLookupEnv(prefix + "_API_KEY")
	baseURL, _ := osLookupEnv(prefix + "_BASE_URL")
	return Credentials{APIKey: key, BaseURL: baseURL}
}
