package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github-stat-card/internal/adapter/cache"
	"github-stat-card/internal/adapter/github"
	"github-stat-card/internal/adapter/httpapi"
	"github-stat-card/internal/adapter/render"
	"github-stat-card/internal/config"
	"github-stat-card/internal/logging"
	"github-stat-card/internal/service"
)

// 值缓存的清理间隔
const janitorInterval = 10 * time.Minute

func main() {
	configPath := flag.String("config", "", "配置文件路径 (也可用 CONFIG_PATH 环境变量)")
	flag.Parse()

	if *configPath != "" {
		_ = os.Setenv(config.ConfigPathEnvVar, *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("加载配置失败")
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("服务异常退出")
		os.Exit(1)
	}
}

// run 启动 HTTP 服务，收到 SIGINT / SIGTERM 后优雅关闭
func run(cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cache.RunJanitor(ctx, a.store, janitorInterval)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		// 整个请求的聚合有 request_timeout 兜底，写超时要留出渲染时间
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Server.Addr).Str("cache", cfg.Cache.Backend).Msg("服务已启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("收到停止信号，正在退出...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// app 组装好的组件
type app struct {
	handler http.Handler
	store   cache.Store
	edge    *cache.EdgeCache
}

func newApp(cfg *config.Config) (*app, error) {
	aggregator, err := github.NewAggregatorFromConfig(cfg.GitHub)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return nil, err
	}

	edge, err := cache.NewEdgeCache(cfg.Cache.EdgeMaxBytes, cfg.Cache.EdgeTTL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	cards := service.NewCardService(
		aggregator,
		render.NewSVGRenderer(render.DefaultLayout()),
		store,
		edge,
		service.Settings{
			ValueTTL:        cfg.Cache.TTL,
			RequestTimeout:  cfg.Server.RequestTimeout,
			TopLanguages:    cfg.Card.TopLanguages,
			Radius:          cfg.Card.Radius,
			LegendRowHeight: cfg.Card.LegendRowHeight,
		},
	)

	handler := httpapi.NewRouter(cards, httpapi.Options{
		CORSOrigins:       cfg.Server.CORSOrigins,
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
	})

	return &app{handler: handler, store: store, edge: edge}, nil
}

func (a *app) Close() {
	a.edge.Close()
	if err := a.store.Close(); err != nil {
		logging.Warn().Err(err).Msg("关闭缓存失败")
	}
}
