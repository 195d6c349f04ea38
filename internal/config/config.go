// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr   string
	DBPath       string
	GitHubAPIURL string
	HTTPTimeout  time.Duration

	// SecretKey is the optional 32-byte AES-256 key for encrypting account
	// tokens at rest. Nil means tokens are stored unencrypted.
	SecretKey []byte
}

// Load reads configuration from environment variables and returns a validated
// Config. All variables are optional: PRDECK_LISTEN_ADDR (127.0.0.1:8080),
// PRDECK_DB_PATH (prdeck.db), PRDECK_GITHUB_API_URL (https://api.github.com,
// override for GitHub Enterprise), PRDECK_HTTP_TIMEOUT (30s), and
// PRDECK_SECRET_KEY (64 hex chars, enables token encryption at rest).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("PRDECK_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "prdeck.db"
	if v, ok := os.LookupEnv("PRDECK_DB_PATH"); ok {
		dbPath = v
	}

	apiURL := "https://api.github.com"
	if v, ok := os.LookupEnv("PRDECK_GITHUB_API_URL"); ok && v != "" {
		apiURL = v
	}

	httpTimeout := 30 * time.Second
	if v, ok := os.LookupEnv("PRDECK_HTTP_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PRDECK_HTTP_TIMEOUT has invalid duration %q: %w", v, err)
		}
		httpTimeout = parsed
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("PRDECK_SECRET_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("PRDECK_SECRET_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("PRDECK_SECRET_KEY must be 64 hex chars (32 bytes), got %d bytes", len(decoded))
		}
		secretKey = decoded
	}

	return &Config{
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		GitHubAPIURL: apiURL,
		HTTPTimeout:  httpTimeout,
		SecretKey:    secretKey,
	}, nil
}
