package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// inDir runs the test from dir so relative config paths resolve there.
func inDir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	inDir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load()

	req.NoError(err)
	req.Equal(5000, cfg.Port)
	req.Equal("release", cfg.Mode)
	req.Equal(DefaultRootIdentity, cfg.RootIdentity)
	req.Equal(54*time.Second, cfg.PingPeriod)
	req.Equal(60*time.Second, cfg.PongWait)
	req.Equal(32, cfg.SendBuffer)
	req.Equal("kick", cfg.SlowConsumer)
	req.Len(cfg.Secret, 64)
}

func TestLoad_KeepsConfiguredSecret(t *testing.T) {
	req := require.New(t)
	inDir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("CHAT_SECRET", "from-env")

	cfg, err := Load()

	req.NoError(err)
	req.Equal("from-env", cfg.Secret)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	req.NoError(os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := []byte("mode: debug\nport: 6000\nroot_identity: boss\nsend_buffer: 8\n")
	req.NoError(os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), yaml, 0o600))
	inDir(t, dir)
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("CHAT_PORT", "7000")

	cfg, err := Load()

	req.NoError(err)
	req.Equal("debug", cfg.Mode)
	req.Equal(7000, cfg.Port)
	req.Equal("boss", cfg.RootIdentity)
	req.Equal(8, cfg.SendBuffer)
}

func TestLoad_RejectsBadKeepalive(t *testing.T) {
	inDir(t, t.TempDir())
	t.Setenv("CONFIG_ENV", "missing")
	t.Setenv("CHAT_PING_PERIOD", "90s")

	_, err := Load()

	require.Error(t, err)
}
