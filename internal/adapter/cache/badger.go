package cache

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github-stat-card/internal/common"
	"github-stat-card/internal/logging"
)

// BadgerCache 嵌入式值缓存，过期交给 badger 的 TTL
type BadgerCache struct {
	db       *badger.DB
	inMemory bool
}

// NewBadgerCache path 为空时完全在内存中运行
func NewBadgerCache(path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path)
	inMemory := path == ""
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeCache, "打开 badger 失败", err)
	}
	return &BadgerCache{db: db, inMemory: inMemory}, nil
}

func (c *BadgerCache) Get(_ context.Context, key string) (string, bool, error) {
	var markup []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		markup, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, common.WrapError(common.ErrCodeCache, "读取缓存失败", err)
	}
	return string(markup), true, nil
}

func (c *BadgerCache) Set(_ context.Context, key, markup string, ttl time.Duration) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), []byte(markup)).WithTTL(ttl))
	})
	if err != nil {
		return common.WrapError(common.ErrCodeCache, "写入缓存失败", err)
	}
	return nil
}

// Maintain 回收 value log 空间，没有可回收的内容时不算错误
func (c *BadgerCache) Maintain(_ context.Context) error {
	if c.inMemory {
		return nil
	}
	err := c.db.RunValueLogGC(0.5)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return common.WrapError(common.ErrCodeCache, "badger GC 失败", err)
	}
	return nil
}

func (c *BadgerCache) Close() error {
	return c.db.Close()
}

// badgerLogger 把 badger 的日志转到 zerolog
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Debug().Str("component", "badger").Msgf(format, args...)
}
