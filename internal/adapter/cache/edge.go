package cache

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github-stat-card/internal/common"
)

// EdgeCache 进程内响应缓存，key 为请求方法加完整 URL，按字节数计成本
type EdgeCache struct {
	cache *ristretto.Cache[string, string]
	ttl   time.Duration
}

// NewEdgeCache maxBytes 为缓存总字节上限
func NewEdgeCache(maxBytes int64, ttl time.Duration) (*EdgeCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeCache, "创建边缘缓存失败", err)
	}
	return &EdgeCache{cache: c, ttl: ttl}, nil
}

func (e *EdgeCache) Get(requestKey string) (string, bool) {
	return e.cache.Get(requestKey)
}

// Set 写入后等待缓冲区落地，之后的 Get 一定能读到 (除非被淘汰)
func (e *EdgeCache) Set(requestKey, markup string) {
	e.cache.SetWithTTL(requestKey, markup, int64(len(markup)), e.ttl)
	e.cache.Wait()
}

func (e *EdgeCache) Close() {
	e.cache.Close()
}

// RequestKey 边缘缓存的 key
func RequestKey(method, url string) string {
	return method + " " + url
}
