// Package cache 两级缓存: 值缓存 (postgres / badger，带 TTL) 和进程内边缘缓存 (ristretto)。
package cache

import (
	"context"
	"time"

	"github-stat-card/internal/common"
	"github-stat-card/internal/config"
	"github-stat-card/internal/logging"
	"github-stat-card/internal/port"
)

const (
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
	BackendMemory   = "memory"
)

// Store 值缓存后端
type Store interface {
	port.ValueCache
	// Maintain 周期性清理，由 RunJanitor 调用
	Maintain(ctx context.Context) error
	Close() error
}

// Open 按配置选择值缓存后端
func Open(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case BackendPostgres:
		pg, err := NewPostgresCache(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case BackendBadger, BackendMemory:
		path := cfg.BadgerPath
		if cfg.Backend == BackendMemory {
			path = ""
		}
		bc, err := NewBadgerCache(path)
		if err != nil {
			return nil, err
		}
		return bc, nil
	default:
		return nil, common.NewError(common.ErrCodeInvalidConfig, "未知的缓存后端: "+cfg.Backend)
	}
}

// RunJanitor 每隔 interval 调用一次 Maintain，直到 ctx 结束
func RunJanitor(ctx context.Context, store Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.Maintain(ctx); err != nil {
				logging.Warn().Err(err).Msg("cache maintenance failed")
			}
		}
	}
}
