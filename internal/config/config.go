// Package config holds the runtime settings shared by the server commands.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the settings for one run
type Config struct {
	Env      string
	LogLevel string

	Addr   string
	Sheet  string
	Format string
	DBPath string

	// SessionKey is a hex encoded signing key for the session cookie
	SessionKey      string
	SessionMaxAge   time.Duration
	CleanupInterval time.Duration
	SecureCookies   bool

	// Remote sheet credentials
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	FetchTimeout time.Duration
}

// LoadEnvFile reads a .env file outside production. A missing file is not
// an error.
func LoadEnvFile(env string, files ...string) error {
	if env == EnvProduction {
		return nil
	}
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate checks the settings a server needs
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Sheet) == "" {
		errs = append(errs, errors.New("price sheet source is required"))
	}
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Env))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	if c.SessionKey != "" {
		if _, err := c.decodeSessionKey(); err != nil {
			errs = append(errs, err)
		}
	} else if c.Env == EnvProduction {
		errs = append(errs, errors.New("session key is required in production"))
	}
	if (c.ClientID != "" || c.ClientSecret != "") && c.TokenURL == "" {
		errs = append(errs, errors.New("token URL is required with client credentials"))
	}
	if c.CleanupInterval < 0 || c.SessionMaxAge < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) decodeSessionKey() ([]byte, error) {
	key, err := hex.DecodeString(c.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("session key is not hex: %w", err)
	}
	if len(key) != 32 && len(key) != 64 {
		return nil, fmt.Errorf("session key must be 32 or 64 bytes, got %d", len(key))
	}
	return key, nil
}

// SessionKeyPair returns the cookie signing key. Without a configured key a
// random one is generated, so sessions end when the process exits.
func (c *Config) SessionKeyPair() ([]byte, error) {
	if c.SessionKey == "" {
		log.Warn().Msg("No session key configured, using a random key")
		return securecookie.GenerateRandomKey(32), nil
	}
	return c.decodeSessionKey()
}

// SetupLogging configures the global zerolog logger. Development gets
// human readable console output.
func SetupLogging(env, level string, out io.Writer) {
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if env == EnvProduction {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
}
