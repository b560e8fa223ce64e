package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github-stat-card/internal/adapter/github"
	"github-stat-card/internal/adapter/render"
	"github-stat-card/internal/config"
	"github-stat-card/internal/domain"
	"github-stat-card/internal/logging"
	"github-stat-card/internal/service"
)

func main() {
	user := flag.String("user", "", "GitHub 用户名")
	out := flag.String("out", "", "SVG 输出文件，为空时写到标准输出")
	bg := flag.String("background-color", "", "背景色")
	text := flag.String("text-color", "", "文字色")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: "debug", Format: "console", Output: os.Stderr})

	if *user == "" {
		fmt.Fprintln(os.Stderr, "⚠️ 请用 -user 指定 GitHub 用户名")
		os.Exit(2)
	}

	aggregator, err := github.NewAggregatorFromConfig(cfg.GitHub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 初始化 GitHub 客户端失败: %v\n", err)
		os.Exit(1)
	}

	// 调试模式不经过任何缓存
	cards := service.NewCardService(
		aggregator,
		render.NewSVGRenderer(render.DefaultLayout()),
		nil,
		nil,
		service.Settings{
			ValueTTL:        cfg.Cache.TTL,
			RequestTimeout:  cfg.Server.RequestTimeout,
			TopLanguages:    cfg.Card.TopLanguages,
			Radius:          cfg.Card.Radius,
			LegendRowHeight: cfg.Card.LegendRowHeight,
		},
	)

	start := time.Now()
	resp, err := cards.Serve(context.Background(), service.CardRequest{
		Login: *user,
		Theme: domain.ThemeFromQuery(*bg, *text),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ 渲染失败: %v\n", err)
		os.Exit(1)
	}
	if resp.IsError {
		fmt.Fprintln(os.Stderr, "⚠️ 聚合失败，输出的是错误卡片")
	}
	fmt.Fprintf(os.Stderr, "✅ 完成，用时 %s\n", time.Since(start).Round(time.Millisecond))

	if *out == "" {
		fmt.Println(resp.Body)
		return
	}
	if err := os.WriteFile(*out, []byte(resp.Body), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "❌ 写入 %s 失败: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "📄 已写入 %s\n", *out)
}
