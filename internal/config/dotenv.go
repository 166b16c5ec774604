package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/subosito/gotenv"

	"mcpask/pkg/logging"
)

const dotEnvFile = ".env"

// LoadDotEnv looks for a .env file in dir and then in each parent directory
// and loads the first one found into the process environment. Variables that
// are already set keep their value. It returns the loaded path, or "" when
// there is no .env file.
func LoadDotEnv(dir string) (string, error) {
	path, err := findDotEnv(dir)
	if err != nil || path == "" {
		return "", err
	}
	if err := gotenv.Load(path); err != nil {
		return "", &LoadError{Path: path, Err: err}
	}
	logging.Debug("Config", "Loaded environment from %s", path)
	return path, nil
}

func findDotEnv(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(dir, dotEnvFile)
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, nil
		case err != nil && !errors.Is(err, os.ErrNotExist):
			return "", &LoadError{Path: candidate, Err: err}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
