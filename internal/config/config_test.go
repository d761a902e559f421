package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := fromEnv(envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, "v21.0", cfg.WAAPIVersion)
	assert.Equal(t, "demo_list", cfg.DefaultListID)
	assert.Equal(t, 20, cfg.WASendRate)
	assert.Equal(t, 30, cfg.InboundRateLimit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Len(t, cfg.WAVerifyToken, 32)
	assert.False(t, cfg.HasCredentials())
}

func TestFromEnv_LegacyFallbacks(t *testing.T) {
	cfg, err := fromEnv(envMap(map[string]string{
		"PHONE_NUMBER_ID": "111",
		"META_WABA_TOKEN": "legacy",
		"VERIFY_TOKEN":    "verify",
	}))
	require.NoError(t, err)

	assert.Equal(t, "111", cfg.WAPhoneNumberID)
	assert.Equal(t, "legacy", cfg.WAAccessToken)
	assert.Equal(t, "verify", cfg.WAVerifyToken)
	assert.True(t, cfg.HasCredentials())
}

func TestFromEnv_PrimaryNamesWin(t *testing.T) {
	cfg, err := fromEnv(envMap(map[string]string{
		"WA_PHONE_NUMBER_ID": "222",
		"PHONE_NUMBER_ID":    "111",
		"WA_SEND_RATE":       "5",
	}))
	require.NoError(t, err)

	assert.Equal(t, "222", cfg.WAPhoneNumberID)
	assert.Equal(t, 5, cfg.WASendRate)
}

func TestFromEnv_BadNumber(t *testing.T) {
	_, err := fromEnv(envMap(map[string]string{"INBOUND_RATE_LIMIT": "lots"}))
	assert.ErrorContains(t, err, "INBOUND_RATE_LIMIT")
}

func TestFromEnv_RateLimits(t *testing.T) {
	cfg, err := fromEnv(envMap(map[string]string{"WA_SEND_RATE": "0", "INBOUND_RATE_LIMIT": "0"}))
	require.NoError(t, err)
	assert.Zero(t, cfg.WASendRate)
	assert.Zero(t, cfg.InboundRateLimit)

	_, err = fromEnv(envMap(map[string]string{"WA_SEND_RATE": "-1"}))
	assert.ErrorContains(t, err, "WA_SEND_RATE")

	_, err = fromEnv(envMap(map[string]string{"INBOUND_RATE_LIMIT": "-5"}))
	assert.ErrorContains(t, err, "INBOUND_RATE_LIMIT")
}
