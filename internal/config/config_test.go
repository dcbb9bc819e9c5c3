package config_test

import (
	"path/filepath"
	"testing"

	"github.com/VikingOwl91/validator-guard/internal/config"
	"github.com/VikingOwl91/validator-guard/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Valid(t *testing.T) {
	cfg, err := config.Load("../../testdata/config/valid.yaml")
	require.NoError(t, err)

	assert.True(t, cfg.SecureMode())
	assert.Equal(t, "/usr/lib/polkadot/polkadot-prepare-worker", cfg.Worker.Path)
	assert.Equal(t, "sha256:abcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789", cfg.Worker.Hash)
	assert.Equal(t, []string{"/usr/lib/polkadot"}, cfg.Worker.AllowedPaths)
	assert.Equal(t, "/var/lib/polkadot/cache", cfg.CachePath)
	assert.Equal(t, []string{"/var/log/audit/audit.log"}, cfg.Audit.LogPaths)
	assert.Equal(t, int64(1048576), cfg.Audit.MaxReadBytes)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ValidMinimal(t *testing.T) {
	cfg, err := config.Load("../../testdata/config/valid_minimal.yaml")
	require.NoError(t, err)

	assert.True(t, cfg.SecureMode())
	assert.Equal(t, "sandbox-worker", cfg.Worker.Path)
	assert.Equal(t, "/tmp/validator-guard", cfg.CachePath)
	assert.Equal(t, security.DefaultAuditLogPaths, cfg.Audit.LogPaths)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_SecureModeExplicitlyOff(t *testing.T) {
	cfg, err := config.Load("../../testdata/config/insecure.yaml")
	require.NoError(t, err)
	assert.False(t, cfg.SecureMode())
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := config.Load("nonexistent.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent.yaml")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := config.Load("../../testdata/config/invalid.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestLoad_InvalidHash(t *testing.T) {
	_, err := config.Load("../../testdata/config/invalid_hash.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker.hash")
}

func TestLoadOrDefault_Missing(t *testing.T) {
	cfg, err := config.LoadOrDefault(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.SecureMode())
	assert.Equal(t, "sandbox-worker", cfg.Worker.Path)
}

func TestLoadOrDefault_InvalidStillFails(t *testing.T) {
	_, err := config.LoadOrDefault("../../testdata/config/invalid.yaml")
	require.Error(t, err)
}

func TestValidate_Defaults(t *testing.T) {
	cfg := &config.Config{}
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.SecureValidatorMode)
	assert.True(t, *cfg.SecureValidatorMode)
	assert.Equal(t, "/var/cache/validator-guard", cfg.CachePath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidate_DefaultAuditPathsNotShared(t *testing.T) {
	cfg := &config.Config{}
	require.NoError(t, cfg.Validate())
	cfg.Audit.LogPaths[0] = "/elsewhere"

	assert.Equal(t, security.AuditLogPath, security.DefaultAuditLogPaths[0])
}

func TestValidate_NegativeMaxReadBytes(t *testing.T) {
	cfg := &config.Config{Audit: config.AuditConfig{MaxReadBytes: -1}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_read_bytes")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := &config.Config{LogLevel: "verbose"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}
