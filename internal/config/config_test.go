package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-stat-card/internal/common"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 400, cfg.GitHub.MaxRepos)
	assert.Equal(t, 3, cfg.GitHub.MaxEventPages)
	assert.Equal(t, 100, cfg.GitHub.PerPage)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5, cfg.Card.TopLanguages)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STATCARD_CACHE_BACKEND", "badger")
	t.Setenv("STATCARD_CACHE_BADGER_PATH", "/tmp/statcard")
	t.Setenv("STATCARD_GITHUB_LANGUAGE_CONCURRENCY", "4")
	t.Setenv("STATCARD_SERVER_REQUEST_TIMEOUT", "5s")
	t.Setenv("STATCARD_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.Cache.Backend)
	assert.Equal(t, "/tmp/statcard", cfg.Cache.BadgerPath)
	assert.Equal(t, 4, cfg.GitHub.LanguageConcurrency)
	assert.Equal(t, 5*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "statcard.yaml")
	content := `
server:
  addr: ":9090"
cache:
  backend: postgres
  postgres_dsn: "host=localhost user=postgres dbname=statcard sslmode=disable"
card:
  top_languages: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Cache.Backend)
	assert.Equal(t, 7, cfg.Card.TopLanguages)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, common.ErrCodeInvalidConfig, common.CodeOf(err))
	assert.Contains(t, err.Error(), "missing.yaml")
}

func TestLoad_RetryBackoff(t *testing.T) {
	t.Setenv("STATCARD_GITHUB_RETRY_ATTEMPTS", "2")
	t.Setenv("STATCARD_GITHUB_RETRY_MAX_DELAY", "750ms")
	t.Setenv("STATCARD_GITHUB_RETRY_MULTIPLIER", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.GitHub.RetryAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.GitHub.RetryDelay)
	assert.Equal(t, 750*time.Millisecond, cfg.GitHub.RetryMaxDelay)
	assert.Equal(t, 3.0, cfg.GitHub.RetryMultiplier)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "未知缓存后端", mutate: func(c *Config) { c.Cache.Backend = "redis" }},
		{name: "postgres 缺少 DSN", mutate: func(c *Config) { c.Cache.Backend = "postgres" }},
		{name: "每页数量超过 100", mutate: func(c *Config) { c.GitHub.PerPage = 500 }},
		{name: "TTL 为零", mutate: func(c *Config) { c.Cache.TTL = 0 }},
		{name: "非法日志级别", mutate: func(c *Config) { c.Logging.Level = "loud" }},
		{name: "退避倍数小于 1", mutate: func(c *Config) { c.GitHub.RetryMultiplier = 0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, common.ErrCodeInvalidConfig, common.CodeOf(err))
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "cache.postgres_dsn", envKey("STATCARD_CACHE_POSTGRES_DSN"))
	assert.Equal(t, "github.max_repos", envKey("STATCARD_GITHUB_MAX_REPOS"))
	assert.Equal(t, "logging.level", envKey("STATCARD_LOGGING_LEVEL"))
}
