package config_test

import (
	"babelchat/backend/internal/config"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithRequiredEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.TranslationTimeout)
	assert.Equal(t, 15*time.Minute, cfg.TranslationCacheTTL)
	assert.Equal(t, 3*time.Second, cfg.TypingWindow)
	assert.Equal(t, 100, cfg.HistoryLimit)
	assert.Equal(t, "https://engine.lingo.dev", cfg.LingoAPIURL)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	assert.ErrorContains(t, err, "jwtSecret is required")
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("httpAddr: \":9090\"\njwtSecret: from-file\ntranslationTimeout: 3s\nhistoryLimit: 50\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TRANSLATION_TIMEOUT", "7s")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 7*time.Second, cfg.TranslationTimeout, "env must win over file")
	assert.Equal(t, 50, cfg.HistoryLimit)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", "s")
	t.Setenv("TYPING_WINDOW", "soon")

	_, err := config.Load()
	assert.ErrorContains(t, err, "TYPING_WINDOW")
}

func TestValidate_HistoryLimitBounds(t *testing.T) {
	cfg := config.Default()
	cfg.JWTSecret = "s"
	cfg.HistoryLimit = 500

	assert.Error(t, cfg.Validate())

	cfg.HistoryLimit = 100
	assert.NoError(t, cfg.Validate())
}
