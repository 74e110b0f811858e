package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "STORE_BACKEND", "SAFETY_CONFIG", "STT_API_KEY", "GROQ_API_KEY"} {
		t.Setenv(key, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreSQL, cfg.StoreBackend)
	assert.Equal(t, "sqlite://./siteops.db", cfg.DatabaseURL)
	assert.Equal(t, 2*time.Second, cfg.Safety.Interval)
	assert.Equal(t, 10, cfg.Safety.FeedSize)
}

func TestFromEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "safety.yaml")
	require.NoError(t, os.WriteFile(path, []byte("interval: 500ms\nfeed_size: 5\n"), 0o644))

	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("SAFETY_CONFIG", path)
	t.Setenv("STT_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "groq-key")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StoreRedis, cfg.StoreBackend)
	assert.Equal(t, 500*time.Millisecond, cfg.Safety.Interval)
	assert.Equal(t, 5, cfg.Safety.FeedSize)
	assert.Equal(t, "groq-key", cfg.STTAPIKey)
}

func TestFromEnvRejectsUnknownBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "etcd")
	t.Setenv("SAFETY_CONFIG", "")
	_, err := FromEnv()
	assert.Error(t, err)
}
