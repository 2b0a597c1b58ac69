package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tverho/mailchat-go/internal/addr"
)

// mustAddr parses an address, failing the test on error.
func mustAddr(t *testing.T, raw string) addr.Addr {
	t.Helper()

	a, err := addr.Parse(raw)
	require.NoError(t, err)

	return a
}

func TestWriteDefault_CreatesTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mailchat configuration")

	// The template must itself load cleanly (everything commented out).
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("log_level = \"warn\"\n"), 0o644))

	err := WriteDefault(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// Existing content untouched.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log_level = \"warn\"\n", string(data))
}

func TestDefaultPaths_DeriveFromDataDir(t *testing.T) {
	a := mustAddr(t, "alice@example.org")

	assert.Equal(t, filepath.Join("/d", "alice@example.org.db"), DBPath("/d", a))
	assert.Equal(t, filepath.Join("/d", "alice@example.org.pid"), PIDPath("/d", a))
}
