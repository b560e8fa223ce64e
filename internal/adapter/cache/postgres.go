package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github-stat-card/internal/common"
	"github-stat-card/internal/domain"
)

// PostgresCache 用 cache_entries 表实现的值缓存
type PostgresCache struct {
	db      *gorm.DB
	nowFunc func() time.Time
}

// NewPostgresCache 初始化数据库连接并自动迁移表结构
func NewPostgresCache(dsn string) (*PostgresCache, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := db.AutoMigrate(&domain.CacheEntry{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return NewPostgresCacheWithDB(db), nil
}

// NewPostgresCacheWithDB 使用已有连接，不做迁移
func NewPostgresCacheWithDB(db *gorm.DB) *PostgresCache {
	return &PostgresCache{db: db, nowFunc: time.Now}
}

// Get 只返回未过期的记录
func (c *PostgresCache) Get(ctx context.Context, key string) (string, bool, error) {
	var entry domain.CacheEntry
	err := c.db.WithContext(ctx).
		Where(`"key" = ? AND expires_at > ?`, key, c.nowFunc()).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, common.WrapError(common.ErrCodeCache, "读取缓存失败", err)
	}
	return entry.Markup, true, nil
}

// Set 整体覆盖同 key 的记录
func (c *PostgresCache) Set(ctx context.Context, key, markup string, ttl time.Duration) error {
	now := c.nowFunc()
	entry := &domain.CacheEntry{
		Key:       key,
		Markup:    markup,
		ExpiresAt: now.Add(ttl),
		UpdatedAt: now,
	}
	// INSERT ... ON CONFLICT ("key") DO UPDATE
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(entry).Error
	if err != nil {
		return common.WrapError(common.ErrCodeCache, "写入缓存失败", err)
	}
	return nil
}

// Maintain 删除已过期的记录
func (c *PostgresCache) Maintain(ctx context.Context) error {
	result := c.db.WithContext(ctx).
		Where("expires_at <= ?", c.nowFunc()).
		Delete(&domain.CacheEntry{})
	if result.Error != nil {
		return common.WrapError(common.ErrCodeCache, "清理过期缓存失败", result.Error)
	}
	return nil
}

func (c *PostgresCache) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
