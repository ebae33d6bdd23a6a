package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Env:      EnvDevelopment,
		LogLevel: "info",
		Sheet:    "prices.csv",
	}
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())

	cfg.Sheet = ""
	cfg.LogLevel = "loud"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price sheet source is required")
	assert.Contains(t, err.Error(), "invalid log level")

	cfg = validConfig()
	cfg.Env = EnvProduction
	assert.ErrorContains(t, cfg.Validate(), "session key is required")

	cfg.SessionKey = strings.Repeat("ab", 32)
	assert.NoError(t, cfg.Validate())

	cfg.SessionKey = "zz"
	assert.ErrorContains(t, cfg.Validate(), "not hex")

	cfg = validConfig()
	cfg.ClientID = "id"
	assert.ErrorContains(t, cfg.Validate(), "token URL")
}

func TestSessionKeyPair(t *testing.T) {
	cfg := validConfig()
	key, err := cfg.SessionKeyPair()
	require.NoError(t, err)
	assert.Len(t, key, 32)

	cfg.SessionKey = strings.Repeat("01", 64)
	key, err = cfg.SessionKeyPair()
	require.NoError(t, err)
	assert.Len(t, key, 64)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BASKET_TEST_VALUE=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("BASKET_TEST_VALUE") })

	require.NoError(t, LoadEnvFile(EnvProduction, path))
	assert.Empty(t, os.Getenv("BASKET_TEST_VALUE"))

	require.NoError(t, LoadEnvFile(EnvDevelopment, path))
	assert.Equal(t, "from-file", os.Getenv("BASKET_TEST_VALUE"))

	assert.NoError(t, LoadEnvFile(EnvDevelopment, filepath.Join(t.TempDir(), "missing.env")))
}

func TestSetupLogging(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	SetupLogging(EnvProduction, "warn", &buf)
	log.Info().Msg("hidden")
	log.Warn().Str("source", "prices.csv").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"source":"prices.csv"`)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}
