package port

import (
	"context"
	"time"

	"github-stat-card/internal/domain"
)

// 编译期检查接口定义是否能被实现
var (
	_ SummaryFetcher = (*stubFetcher)(nil)
	_ Renderer       = (*stubRenderer)(nil)
	_ ValueCache     = (*stubValueCache)(nil)
	_ EdgeCache      = (*stubEdgeCache)(nil)
)

type stubFetcher struct{}

func (stubFetcher) FetchSummary(context.Context, string) (*domain.AccountSummary, error) {
	return &domain.AccountSummary{}, nil
}

type stubRenderer struct{}

func (stubRenderer) RenderSummary(CardData) (string, error) { return "", nil }
func (stubRenderer) RenderError(domain.Theme, string) (string, error) { return "", nil }

type stubValueCache struct{}

func (stubValueCache) Get(context.Context, string) (string, bool, error) { return "", false, nil }
func (stubValueCache) Set(context.Context, string, string, time.Duration) error { return nil }

type stubEdgeCache struct{}

func (stubEdgeCache) Get(string) (string, bool) { return "", false }
func (stubEdgeCache) Set(string, string) {}
