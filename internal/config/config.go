package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	WAPhoneNumberID string
	WAAccessToken   string
	WAVerifyToken   string
	WAAppSecret     string
	WAAPIVersion    string
	WASendRate      int

	InboundRateLimit int
	DefaultListID    string
	AdminToken       string

	Port      string
	DataDir   string
	LogLevel  string
	LogFormat string
}

func Load() (*Config, error) {
	// .env is optional, env vars may already be set (e.g. in production)
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		if fallback != "" {
			return getenv(fallback)
		}
		return ""
	}

	cfg := &Config{
		WAPhoneNumberID: env("WA_PHONE_NUMBER_ID", "PHONE_NUMBER_ID"),
		WAAccessToken:   env("WA_ACCESS_TOKEN", "META_WABA_TOKEN"),
		WAVerifyToken:   env("WA_VERIFY_TOKEN", "VERIFY_TOKEN"),
		WAAppSecret:     env("WA_APP_SECRET", ""),
		WAAPIVersion:    env("WA_API_VERSION", ""),
		DefaultListID:   env("DEFAULT_LIST_ID", ""),
		AdminToken:      env("ADMIN_TOKEN", ""),
		Port:            env("PORT", ""),
		DataDir:         env("DATA_DIR", ""),
		LogLevel:        env("LOG_LEVEL", ""),
		LogFormat:       env("LOG_FORMAT", ""),
	}

	var err error
	if cfg.WASendRate, err = parseIntEnv(getenv, "WA_SEND_RATE", 20); err != nil {
		return nil, err
	}
	if cfg.InboundRateLimit, err = parseIntEnv(getenv, "INBOUND_RATE_LIMIT", 30); err != nil {
		return nil, err
	}

	if cfg.WAAPIVersion == "" {
		cfg.WAAPIVersion = "v21.0"
	}
	if cfg.DefaultListID == "" {
		cfg.DefaultListID = "demo_list"
	}
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	if cfg.WAVerifyToken == "" {
		token, err := randomHex(16)
		if err != nil {
			return nil, fmt.Errorf("generating verify token: %w", err)
		}
		cfg.WAVerifyToken = token
	}

	return cfg, nil
}

// HasCredentials reports whether both Cloud API credentials came from the
// environment. Without them the process relies on credentials persisted
// through the admin API.
func (c *Config) HasCredentials() bool {
	return c.WAPhoneNumberID != "" && c.WAAccessToken != ""
}

// parseIntEnv reads a rate setting. 0 disables the limit; negative values
// are rejected.
func parseIntEnv(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("env var %s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("env var %s: must be 0 (unlimited) or positive, got %d", key, n)
	}
	return n, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
