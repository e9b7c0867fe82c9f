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
	t.Setenv("API_BASE_URL", "")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("S3_ENDPOINT", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/agents", cfg.APIBaseURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, int64(100<<20), cfg.MaxFileSize)
	assert.False(t, cfg.ExportEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://backend:9000/api/agents")
	t.Setenv("POLL_INTERVAL", "500ms")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("S3_USE_SSL", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000/api/agents", cfg.APIBaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, int64(5<<20), cfg.MaxFileSize)
	assert.True(t, cfg.ExportEnabled())
	assert.True(t, cfg.S3UseSSL)
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad interval", "POLL_INTERVAL", "soon"},
		{"zero interval", "POLL_INTERVAL", "0s"},
		{"bad upload size", "MAX_UPLOAD_MB", "lots"},
		{"negative upload size", "MAX_UPLOAD_MB", "-1"},
		{"bad export ttl", "EXPORT_URL_TTL", "forever"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Setenv("S3_BUCKET_NAME", "")
	require.NoError(t, os.Unsetenv("S3_BUCKET_NAME"))

	path := filepath.Join(t.TempDir(), "brdctl.env")
	require.NoError(t, os.WriteFile(path, []byte("S3_BUCKET_NAME=from-file\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.S3BucketName)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}
