package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func validConfig() Config {
	return Config{
		JWTSecretKey:      "secret",
		AccessTokenTTL:    time.Minute,
		RefreshTokenTTL:   time.Hour,
		EncryptionKey:     testKey,
		CardNumberRetries: 3,
		ExpirySchedule:    "@every 1h",
		AdminUsername:     "admin",
		AdminPassword:     "admin",
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := newConfig(filepath.Join(t.TempDir(), "missing.env"), nil)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.DatabaseURI)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 3, cfg.CardNumberRetries)
	assert.Equal(t, "@every 1h", cfg.ExpirySchedule)
}

func TestNewConfig_Precedence(t *testing.T) {
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("ENCRYPTION_KEY="+testKey+"\n"), 0o600))

	t.Setenv("RUN_ADDRESS", "127.0.0.1:9000")
	t.Setenv("CARD_NUMBER_RETRIES", "5")
	// godotenv never overrides variables that are already set.
	t.Setenv("ENCRYPTION_KEY", "")
	os.Unsetenv("ENCRYPTION_KEY")

	cfg, err := newConfig(dotenv, []string{"-a", "localhost:7000", "-l", "debug"})
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5, cfg.CardNumberRetries)
	assert.Equal(t, testKey, cfg.EncryptionKey)
}

func TestNewConfig_BadFlag(t *testing.T) {
	_, err := newConfig(filepath.Join(t.TempDir(), "missing.env"), []string{"-unknown"})
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"empty key", func(c *Config) { c.EncryptionKey = "" }, ErrEncryptionKeyInvalid},
		{"short key", func(c *Config) { c.EncryptionKey = "0011" }, ErrEncryptionKeyInvalid},
		{"not hex", func(c *Config) { c.EncryptionKey = "zz" }, ErrEncryptionKeyInvalid},
		{"empty secret", func(c *Config) { c.JWTSecretKey = "" }, ErrJWTSecretKeyEmpty},
		{"zero ttl", func(c *Config) { c.AccessTokenTTL = 0 }, ErrTokenTTLInvalid},
		{"zero retries", func(c *Config) { c.CardNumberRetries = 0 }, ErrNumberRetriesInvalid},
		{"admin without password", func(c *Config) { c.AdminPassword = "" }, ErrAdminPasswordEmpty},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)

			require.ErrorIs(t, cfg.Validate(), tc.wantErr)
		})
	}

	cfg := validConfig()
	cfg.ExpirySchedule = "every hour"
	require.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.AdminUsername = ""
	cfg.AdminPassword = ""
	require.NoError(t, cfg.Validate())
}
