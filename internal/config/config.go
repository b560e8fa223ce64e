// Package config 分层加载配置: 内置默认值 -> YAML 文件 -> 环境变量 (STATCARD_ 前缀)。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github-stat-card/internal/common"
)

const (
	// ConfigPathEnvVar 指定配置文件路径
	ConfigPathEnvVar = "CONFIG_PATH"
	envPrefix        = "STATCARD_"
)

// DefaultConfigPaths 依次查找的配置文件
var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	GitHub  GitHubConfig  `koanf:"github"`
	Cache   CacheConfig   `koanf:"cache"`
	Card    CardConfig    `koanf:"card"`
	Logging LoggingConfig `koanf:"logging"`
}

type ServerConfig struct {
	Addr              string        `koanf:"addr" validate:"required"`
	RequestTimeout    time.Duration `koanf:"request_timeout" validate:"gt=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

type GitHubConfig struct {
	BaseURL   string `koanf:"base_url" validate:"required,url"`
	UserAgent string `koanf:"user_agent" validate:"required"`
	PerPage   int    `koanf:"per_page" validate:"gt=0,lte=100"`
	// 合格仓库数量上限
	MaxRepos int `koanf:"max_repos" validate:"gt=0"`
	// 公开事件最多翻几页，近似统计而非完整历史
	MaxEventPages       int           `koanf:"max_event_pages" validate:"gt=0"`
	LanguageConcurrency int           `koanf:"language_concurrency" validate:"gte=1,lte=16"`
	RequestsPerSecond   float64       `koanf:"requests_per_second" validate:"gte=0"`
	BreakerFailures     uint32        `koanf:"breaker_failures"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
	RetryAttempts       int           `koanf:"retry_attempts" validate:"gte=0,lte=5"`
	RetryDelay          time.Duration `koanf:"retry_delay" validate:"gte=0"`
	RetryMaxDelay       time.Duration `koanf:"retry_max_delay" validate:"gte=0"`
	RetryMultiplier     float64       `koanf:"retry_multiplier" validate:"omitempty,gte=1"`
}

type CacheConfig struct {
	// postgres, badger 或 memory
	Backend      string        `koanf:"backend" validate:"required,oneof=postgres badger memory"`
	TTL          time.Duration `koanf:"ttl" validate:"gt=0"`
	PostgresDSN  string        `koanf:"postgres_dsn" validate:"required_if=Backend postgres"`
	BadgerPath   string        `koanf:"badger_path" validate:"required_if=Backend badger"`
	EdgeTTL      time.Duration `koanf:"edge_ttl" validate:"gt=0"`
	EdgeMaxBytes int64         `koanf:"edge_max_bytes" validate:"gt=0"`
}

type CardConfig struct {
	TopLanguages    int     `koanf:"top_languages" validate:"gt=0"`
	Radius          float64 `koanf:"radius" validate:"gt=0"`
	LegendRowHeight int     `koanf:"legend_row_height" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Default 内置默认值
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			RequestTimeout:    25 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
		GitHub: GitHubConfig{
			BaseURL:             "https://api.github.com/",
			UserAgent:           "github-stat-card",
			PerPage:             100,
			MaxRepos:            400,
			MaxEventPages:       3,
			LanguageConcurrency: 1,
			RequestsPerSecond:   0,
			BreakerFailures:     5,
			BreakerTimeout:      30 * time.Second,
			RetryAttempts:       0,
			RetryDelay:          200 * time.Millisecond,
			RetryMaxDelay:       2 * time.Second,
			RetryMultiplier:     2,
		},
		Cache: CacheConfig{
			Backend:      "memory",
			TTL:          6 * time.Hour,
			EdgeTTL:      24 * time.Hour,
			EdgeMaxBytes: 64 << 20,
		},
		Card: CardConfig{
			TopLanguages:    5,
			Radius:          40,
			LegendRowHeight: 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load 读取 .env、配置文件和环境变量并校验
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidConfig, "加载默认配置失败", err)
	}

	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, common.WrapError(common.ErrCodeInvalidConfig, fmt.Sprintf("读取配置文件 %s 失败", path), err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidConfig, "读取环境变量失败", err)
	}

	if err := splitList(k, "server.cors_origins"); err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidConfig, "解析 cors_origins 失败", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidConfig, "解析配置失败", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return common.WrapError(common.ErrCodeInvalidConfig, "配置校验失败", err)
	}
	return nil
}

// STATCARD_CACHE_POSTGRES_DSN -> cache.postgres_dsn
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// findConfigFile 显式指定的文件必须存在；未指定时按默认路径查找，找不到就只用默认值和环境变量
func findConfigFile() (string, error) {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", common.WrapError(common.ErrCodeInvalidConfig, fmt.Sprintf("配置文件 %s 不可用", p), err)
		}
		return p, nil
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// 环境变量里的列表以逗号分隔
func splitList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return k.Set(path, items)
}
