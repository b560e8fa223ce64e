package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v53/github"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github-stat-card/internal/logging"
	"github-stat-card/internal/metrics"
)

const acceptHeader = "application/vnd.github+json"

// ClientConfig GitHub 客户端配置
type ClientConfig struct {
	BaseURL   string
	UserAgent string
	// 每秒请求数，0 表示不限速
	RequestsPerSecond float64
	// 连续失败多少次后熔断，0 表示不启用熔断
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	// 底层 transport，为空时使用 http.DefaultTransport
	Transport http.RoundTripper
}

// NewClient 创建匿名访问的 go-github 客户端。
// 每个请求都带固定的 User-Agent 和 Accept 头，可选限速和熔断。
func NewClient(cfg ClientConfig) (*github.Client, error) {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.RequestsPerSecond > 0 {
		base = &limitTransport{
			next:    base,
			limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		}
	}
	if cfg.BreakerFailures > 0 {
		base = newBreakerTransport(base, cfg.BreakerFailures, cfg.BreakerTimeout)
	}
	base = &headerTransport{next: base, userAgent: cfg.UserAgent}

	client := github.NewClient(&http.Client{Transport: base})
	client.UserAgent = cfg.UserAgent

	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("解析 GitHub BaseURL 失败: %w", err)
		}
		client.BaseURL = u
	}

	return client, nil
}

// headerTransport 固定客户端标识和内容协商头
type headerTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Accept", acceptHeader)
	if t.userAgent != "" {
		r.Header.Set("User-Agent", t.userAgent)
	}
	return t.next.RoundTrip(r)
}

// limitTransport 客户端侧限速，避免短时间内打满上游配额
type limitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.next.RoundTrip(req)
}

var errServerStatus = errors.New("github: server error")

// breakerTransport 网络错误和 5xx 计入失败，熔断打开时直接返回 gobreaker.ErrOpenState
type breakerTransport struct {
	next http.RoundTripper
	cb   *gobreaker.CircuitBreaker[*http.Response]
}

func newBreakerTransport(next http.RoundTripper, failures uint32, timeout time.Duration) *breakerTransport {
	settings := gobreaker.Settings{
		Name:        "github",
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			if to == gobreaker.StateOpen {
				metrics.UpstreamBreakerState.Set(1)
			} else {
				metrics.UpstreamBreakerState.Set(0)
			}
		},
	}
	return &breakerTransport{next: next, cb: gobreaker.NewCircuitBreaker[*http.Response](settings)}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.cb.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if errors.Is(err, errServerStatus) {
		return resp, nil
	}
	return resp, err
}
