package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv_FromParentDirectory(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	writeFile(t, filepath.Join(root, ".env"), "MCPASK_TEST_NEW=from-file\nMCPASK_TEST_KEEP=from-file\n")

	t.Setenv("MCPASK_TEST_KEEP", "from-env")
	t.Setenv("MCPASK_TEST_NEW", "")
	require.NoError(t, os.Unsetenv("MCPASK_TEST_NEW"))

	path, err := LoadDotEnv(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".env"), path)

	assert.Equal(t, "from-file", os.Getenv("MCPASK_TEST_NEW"))
	assert.Equal(t, "from-env", os.Getenv("MCPASK_TEST_KEEP"))
}

func TestLoadDotEnv_NearestWins(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "sub")
	writeFile(t, filepath.Join(root, ".env"), "MCPASK_TEST_NEAREST=root\n")
	writeFile(t, filepath.Join(nested, ".env"), "MCPASK_TEST_NEAREST=nested\n")

	t.Setenv("MCPASK_TEST_NEAREST", "")
	require.NoError(t, os.Unsetenv("MCPASK_TEST_NEAREST"))

	path, err := LoadDotEnv(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(nested, ".env"), path)
	assert.Equal(t, "nested", os.Getenv("MCPASK_TEST_NEAREST"))
}

func TestFindDotEnv_IgnoresDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".env"), 0755))

	path, err := findDotEnv(root)
	require.NoError(t, err)
	// Parents of a temp dir may hold a real .env; it must not be the directory.
	assert.NotEqual(t, filepath.Join(root, ".env"), path)
}
