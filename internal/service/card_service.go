package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github-stat-card/internal/common"
	"github-stat-card/internal/domain"
	"github-stat-card/internal/logging"
	"github-stat-card/internal/metrics"
	"github-stat-card/internal/port"
)

// MissingUserMessage 缺少 user 参数时错误卡片上的文字
const MissingUserMessage = "user is required"

// CardRequest 一次卡片请求
type CardRequest struct {
	Login string
	Theme domain.Theme
	// 边缘缓存 key，为空时跳过边缘缓存
	EdgeKey string
}

// CardResponse Cached 表示来自缓存，IsError 表示这是一张错误卡片 (从不缓存)
type CardResponse struct {
	Body    string
	Cached  bool
	IsError bool
}

// Settings 卡片服务参数
type Settings struct {
	ValueTTL        time.Duration
	RequestTimeout  time.Duration
	TopLanguages    int
	Radius          float64
	LegendRowHeight int
}

// DefaultSettings 6 小时 TTL，前 5 种语言
func DefaultSettings() Settings {
	return Settings{
		ValueTTL:        6 * time.Hour,
		RequestTimeout:  25 * time.Second,
		TopLanguages:    5,
		Radius:          40,
		LegendRowHeight: 20,
	}
}

// CardService 两级缓存 + 聚合 + 渲染
type CardService struct {
	fetcher  port.SummaryFetcher
	renderer port.Renderer
	values   port.ValueCache
	edge     port.EdgeCache
	settings Settings

	// 相同 key 的并发未命中只聚合一次
	group singleflight.Group
}

// NewCardService values 和 edge 可以为 nil，表示不启用对应的缓存层
func NewCardService(
	fetcher port.SummaryFetcher,
	renderer port.Renderer,
	values port.ValueCache,
	edge port.EdgeCache,
	settings Settings,
) *CardService {
	return &CardService{
		fetcher:  fetcher,
		renderer: renderer,
		values:   values,
		edge:     edge,
		settings: settings,
	}
}

// ValueKey 值缓存 key: summary:{user}:{背景色}:{文字色}
func ValueKey(login string, theme domain.Theme) string {
	return "summary:" + login + ":" + theme.BackgroundColor + ":" + theme.TextColor
}

type rendered struct {
	body    string
	isError bool
}

// Serve 依次查边缘缓存、值缓存，都未命中时聚合并渲染。
// 失败时返回错误卡片且不写任何缓存；只有错误卡片本身渲染失败才返回 error。
func (s *CardService) Serve(ctx context.Context, req CardRequest) (*CardResponse, error) {
	log := logging.Ctx(ctx)

	if s.edge != nil && req.EdgeKey != "" {
		if body, ok := s.edge.Get(req.EdgeKey); ok {
			metrics.CacheLookups.WithLabelValues("edge", "hit").Inc()
			return &CardResponse{Body: body, Cached: true}, nil
		}
		metrics.CacheLookups.WithLabelValues("edge", "miss").Inc()
	}

	login := strings.TrimSpace(req.Login)
	if login == "" {
		err := common.NewError(common.ErrCodeMissingParameter, MissingUserMessage)
		log.Debug().Str("code", common.CodeOf(err)).Msg("request without user")
		return s.errorCard(req.Theme, err)
	}

	key := ValueKey(login, req.Theme)
	if body, ok := s.lookupValue(ctx, key); ok {
		s.storeEdge(req.EdgeKey, body)
		return &CardResponse{Body: body, Cached: true}, nil
	}

	// 共享的聚合不跟随任何一个调用方取消，每个调用方只按自己的 ctx 放弃等待
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.build(context.WithoutCancel(ctx), login, req.Theme, key)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		err := common.NewTransportError("", ctx.Err())
		log.Warn().Err(err).Str("key", key).Msg("request gave up waiting for aggregation")
		return s.errorCard(req.Theme, err)
	}
	if res.Err != nil {
		return nil, res.Err
	}
	out := res.Val.(rendered)
	if res.Shared {
		log.Debug().Str("key", key).Msg("joined in-flight aggregation")
	}

	if out.isError {
		return &CardResponse{Body: out.body, IsError: true}, nil
	}
	s.storeEdge(req.EdgeKey, out.body)
	return &CardResponse{Body: out.body}, nil
}

// build 聚合并渲染，成功后写入值缓存。ctx 已与调用方的取消解绑，时限由 RequestTimeout 决定
func (s *CardService) build(ctx context.Context, login string, theme domain.Theme, key string) (rendered, error) {
	log := logging.Ctx(ctx).With().Str("user", login).Logger()

	if s.settings.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settings.RequestTimeout)
		defer cancel()
	}

	summary, err := s.fetcher.FetchSummary(ctx, login)
	if err != nil {
		log.Warn().Err(err).Str("code", common.CodeOf(err)).Msg("aggregation failed, rendering error card")
		return s.errorRendered(theme, err)
	}

	segments := domain.BuildSegments(summary.Languages, s.settings.TopLanguages, s.settings.Radius, s.settings.LegendRowHeight)
	body, err := s.renderer.RenderSummary(SummaryCardData(theme, login, summary, segments))
	if err != nil {
		log.Error().Err(err).Str("code", common.CodeOf(err)).Msg("render failed, rendering error card")
		return s.errorRendered(theme, err)
	}

	if s.values != nil {
		if err := s.values.Set(ctx, key, body, s.settings.ValueTTL); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("value cache write failed")
		}
	}
	return rendered{body: body}, nil
}

func (s *CardService) lookupValue(ctx context.Context, key string) (string, bool) {
	if s.values == nil {
		return "", false
	}
	body, ok, err := s.values.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("value", "error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("value cache read failed, treating as miss")
		return "", false
	case ok:
		metrics.CacheLookups.WithLabelValues("value", "hit").Inc()
		return body, true
	default:
		metrics.CacheLookups.WithLabelValues("value", "miss").Inc()
		return "", false
	}
}

func (s *CardService) storeEdge(edgeKey, body string) {
	if s.edge != nil && edgeKey != "" {
		s.edge.Set(edgeKey, body)
	}
}

func (s *CardService) errorCard(theme domain.Theme, cause error) (*CardResponse, error) {
	out, err := s.errorRendered(theme, cause)
	if err != nil {
		return nil, err
	}
	return &CardResponse{Body: out.body, IsError: true}, nil
}

func (s *CardService) errorRendered(theme domain.Theme, cause error) (rendered, error) {
	body, err := s.renderer.RenderError(theme, cardMessage(cause))
	if err != nil {
		return rendered{}, err
	}
	return rendered{body: body, isError: true}, nil
}

// cardMessage 错误卡片上显示的文字。参数类错误只显示说明，不带错误码前缀
func cardMessage(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.Code == common.ErrCodeMissingParameter {
		return appErr.Message
	}
	return err.Error()
}
