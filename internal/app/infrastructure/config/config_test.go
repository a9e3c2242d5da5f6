package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	m, err := New(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 10, cfg.Client.ConnectTimeoutSecs)
	assert.Equal(t, "#ircheck", cfg.Target.Channel)

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config not persisted")
}

func TestUpdateRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	m, err := New(path)
	require.NoError(t, err)

	err = m.Update(func(cfg *Config) {
		cfg.Client.SettleMillis = 60000
	})
	assert.Error(t, err)

	err = m.Update(func(cfg *Config) {
		cfg.Target.Password = "hunter2"
		cfg.Target.Capabilities = []string{"message-tags"}
	})
	assert.Error(t, err, "password without sasl capability must not validate")

	err = m.Update(func(cfg *Config) {
		cfg.Client.SettleMillis = 100
		cfg.Target.Password = "hunter2"
		cfg.Target.Capabilities = []string{"sasl"}
	})
	assert.NoError(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"app":{"log_level":"loud"}}`), 0644))

	_, err := New(path)
	assert.Error(t, err)
}
