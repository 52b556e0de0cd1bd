package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FIELDAUDIT_SOT_KEY=from_dotenv\nFIELDAUDIT_WORKERS=2\n"), 0o600))

	// t.Setenv restores both variables after the test.
	t.Setenv("FIELDAUDIT_SOT_KEY", "")
	require.NoError(t, os.Unsetenv("FIELDAUDIT_SOT_KEY"))
	t.Setenv("FIELDAUDIT_WORKERS", "8")

	require.NoError(t, loadEnv(path))
	assert.Equal(t, "from_dotenv", os.Getenv("FIELDAUDIT_SOT_KEY"))
	assert.Equal(t, "8", os.Getenv("FIELDAUDIT_WORKERS"), "existing variables win")
}

func TestLoadEnv_Missing(t *testing.T) {
	assert.NoError(t, loadEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadEnv_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FIELDAUDIT_SOT_KEY=\"unterminated\n"), 0o600))
	assert.Error(t, loadEnv(path))
}
