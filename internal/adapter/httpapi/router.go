// Package httpapi 对外的 HTTP 接口: /summary、/api/summary、/health、/metrics
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github-stat-card/internal/adapter/cache"
	"github-stat-card/internal/domain"
	"github-stat-card/internal/logging"
	"github-stat-card/internal/service"
)

const (
	// 成功的卡片允许 CDN 缓存一天
	SuccessCacheControl = "public, s-maxage=86400, stale-while-revalidate=3600"
	ErrorCacheControl   = "no-store"

	contentTypeSVG = "image/svg+xml"
	healthBody     = "github-stat-card"
)

// CardServer 由 service.CardService 实现
type CardServer interface {
	Serve(ctx context.Context, req service.CardRequest) (*service.CardResponse, error)
}

// Options 路由参数
type Options struct {
	CORSOrigins       []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter 组装路由和中间件
func NewRouter(cards CardServer, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(requestID)
	r.Use(accessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(opts.CORSOrigins))

	r.Get("/health", health)
	r.Handle("/metrics", promhttp.Handler())

	h := &summaryHandler{cards: cards}
	r.Group(func(r chi.Router) {
		r.Use(rateLimit(opts.RateLimitRequests, opts.RateLimitWindow))
		r.Get("/summary", h.ServeHTTP)
		r.Get("/api/summary", h.ServeHTTP)
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(healthBody))
}

type summaryHandler struct {
	cards CardServer
}

func (h *summaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := service.CardRequest{
		Login:   query.Get("user"),
		Theme:   domain.ThemeFromQuery(query.Get("background-color"), query.Get("text-color")),
		EdgeKey: cache.RequestKey(r.Method, fullURL(r)),
	}

	resp, err := h.cards.Serve(r.Context(), req)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("error card could not be rendered")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", ErrorCacheControl)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(http.StatusText(http.StatusInternalServerError)))
		return
	}

	w.Header().Set("Content-Type", contentTypeSVG)
	if resp.IsError {
		w.Header().Set("Cache-Control", ErrorCacheControl)
	} else {
		w.Header().Set("Cache-Control", SuccessCacheControl)
	}
	if resp.Cached {
		w.Header().Set("X-Cache", "HIT")
	} else {
		w.Header().Set("X-Cache", "MISS")
	}
	_, _ = w.Write([]byte(resp.Body))
}

// fullURL 边缘缓存按完整请求 URL 区分，包括协议、主机和查询串
func fullURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
