package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/party-queue/internal/host"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Addr)
	require.Equal(t, "!参加", cfg.DefaultKeyword)
	require.Equal(t, time.Second, cfg.MinPollInterval)
	require.Equal(t, host.DefaultSettings(), cfg.DefaultSettings())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("DEFAULT_PARTY_SIZE", "8")
	t.Setenv("MIN_POLL_INTERVAL", "2s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, 8, cfg.DefaultSettings().PartySize)
	require.Equal(t, 2*time.Second, cfg.MinPollInterval)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DEFAULT_KEYWORD=!join\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("DEFAULT_KEYWORD") })

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "!join", cfg.DefaultKeyword)
}

func TestLoad_RejectsInvalidDefaults(t *testing.T) {
	t.Setenv("DEFAULT_ROTATION_WIDTH", "0")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.ErrorIs(t, err, host.ErrInvalidSettings)
}

func TestLoad_RejectsBadDuration(t *testing.T) {
	t.Setenv("PERSIST_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
}
