package port

import (
	"context"
	"time"

	"github-stat-card/internal/domain"
)

// SummaryFetcher (聚合器): 翻页读取仓库和公开事件，汇总成 AccountSummary
// 任何一页失败都返回 *common.UpstreamError，不返回部分结果
type SummaryFetcher interface {
	FetchSummary(ctx context.Context, login string) (*domain.AccountSummary, error)
}

// CardData 渲染一张统计卡片所需的全部数据
type CardData struct {
	Theme     domain.Theme
	Title     string
	AriaLabel string
	StatRows  []domain.StatRow
	Segments  []domain.LanguageSegment
}

// Renderer (渲染器): 模板数据 -> SVG 文本
type Renderer interface {
	RenderSummary(data CardData) (string, error)
	RenderError(theme domain.Theme, message string) (string, error)
}

// ValueCache (值缓存): 按规范化 key 存放渲染好的 SVG，带过期时间
// Get 未命中时返回 ("", false, nil)
type ValueCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, markup string, ttl time.Duration) error
}

// EdgeCache (边缘缓存): 以完整请求为 key 的响应缓存
type EdgeCache interface {
	Get(requestKey string) (string, bool)
	Set(requestKey, markup string)
}
