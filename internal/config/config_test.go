package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
app:
  name: skyfare-test
database:
  path: /tmp/test.db
api:
  http:
    port: 9999
  auth:
    enabled: true
    api_keys:
      - key: secret-key
        name: tester
        account_id: 42
        roles: ["customer", "manager"]
booking:
  cancellation_window_hours: 48
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "skyfare-test", cfg.App.Name)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 9999, cfg.API.HTTP.Port)
	assert.Equal(t, 48, cfg.Booking.CancellationWindowHours)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, int64(42), cfg.API.Auth.APIKeys[0].AccountID)
	assert.Equal(t, []string{"customer", "manager"}, cfg.API.Auth.APIKeys[0].Roles)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "skyfare", cfg.App.Name)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, 24, cfg.Booking.CancellationWindowHours)
	assert.Equal(t, 9, cfg.Booking.MaxPassengers)
	assert.Equal(t, 120, cfg.Booking.SeatHoldTTLSeconds)
	assert.Equal(t, 5, cfg.Worker.MaxRetries)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "/tmp/env.db")
	path := writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database path",
		},
		{
			name:    "kafka without brokers",
			mutate:  func(c *Config) { c.Kafka.Enabled = true },
			wantErr: "no brokers",
		},
		{
			name:    "auth without keys",
			mutate:  func(c *Config) { c.API.Auth.Enabled = true },
			wantErr: "no api keys",
		},
		{
			name: "key without account",
			mutate: func(c *Config) {
				c.API.Auth.Enabled = true
				c.API.Auth.APIKeys = []APIClientKey{{Key: "k", Name: "orphan"}}
			},
			wantErr: "account_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Database.Path = "/tmp/test.db"
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
