package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 0.5, cfg.Randomness.TolerancePercent)
	assert.Equal(t, 2, cfg.Randomness.MinQuorum)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Empty(t, cfg.Database.URL)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("KAFKA_BROKERS=a:9092,b:9092\nRANDOMNESS_TOLERANCE_PERCENT=1.5\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("KAFKA_BROKERS")
		os.Unsetenv("RANDOMNESS_TOLERANCE_PERCENT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 1.5, cfg.Randomness.TolerancePercent)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("RANDOMNESS_MIN_QUORUM", "0")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}
