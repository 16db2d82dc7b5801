package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"CLASSIFIER_BACKEND", "BATCH_SIZE", "CACHE_TTL", "ANALYSIS_FIELDS", "HF_MAX_ATTEMPTS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendHugot, cfg.ClassifierBackend)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultCacheTTL, cfg.CacheTTL)
	assert.Equal(t, []string{"title", "description"}, cfg.AnalysisFields)
	assert.Equal(t, 1, cfg.HFMaxAttempts)
	assert.False(t, cfg.CacheEnabled())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CLASSIFIER_BACKEND", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("BATCH_SIZE", "16")
	t.Setenv("CACHE_TTL", "90m")
	t.Setenv("VALKEY_INIT_ADDRESS", "localhost:6379")
	t.Setenv("VALKEY_TLS", "true")
	t.Setenv("ANALYSIS_FIELDS", " title, content ,,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendOpenAI, cfg.ClassifierBackend)
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.ValkeyTLS)
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, []string{"title", "content"}, cfg.AnalysisFields)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("BATCH_SIZE", "many")
	t.Setenv("CACHE_TTL", "soon")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_SIZE")
	assert.Contains(t, err.Error(), "CACHE_TTL")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{ClassifierBackend: BackendVader, HFMaxAttempts: 1, BatchSize: 8, CacheTTL: time.Hour}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"vader needs nothing", func(*Config) {}, ""},
		{"huggingface needs token", func(c *Config) { c.ClassifierBackend = BackendHuggingFace }, "HF_API_TOKEN"},
		{"openai needs key", func(c *Config) { c.ClassifierBackend = BackendOpenAI }, "OPENAI_API_KEY"},
		{"unknown backend", func(c *Config) { c.ClassifierBackend = "magic" }, "unknown CLASSIFIER_BACKEND"},
		{"batch size", func(c *Config) { c.BatchSize = 0 }, "BATCH_SIZE"},
		{"attempts", func(c *Config) { c.HFMaxAttempts = 0 }, "HF_MAX_ATTEMPTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, envDir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, envDir, ".env.test"), []byte("NEWSMOOD_TEST_VALUE=from-file\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("NEWSMOOD_TEST_VALUE")
	})

	require.NoError(t, LoadEnv("test"))
	assert.Equal(t, "from-file", os.Getenv("NEWSMOOD_TEST_VALUE"))

	assert.NoError(t, LoadEnv("missing"))
}
