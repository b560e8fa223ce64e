package github

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v53/github"

	"github-stat-card/internal/common"
	"github-stat-card/internal/config"
	"github-stat-card/internal/domain"
	"github-stat-card/internal/logging"
	"github-stat-card/internal/metrics"
)

// Options 聚合参数
type Options struct {
	PerPage int
	// 最多统计多少个合格仓库 (非 fork、未归档)
	MaxRepos int
	// 公开事件最多读几页
	MaxEventPages int
	// 每页仓库的语言查询并发数，1 表示串行
	LanguageConcurrency int
	// 网络错误和 5xx 的重试次数
	RetryAttempts int
	RetryDelay    time.Duration
	// 退避上限和倍数
	RetryMaxDelay   time.Duration
	RetryMultiplier float64
}

// DefaultOptions 默认聚合参数
func DefaultOptions() Options {
	return Options{
		PerPage:             100,
		MaxRepos:            400,
		MaxEventPages:       3,
		LanguageConcurrency: 1,
		RetryAttempts:       0,
		RetryDelay:          200 * time.Millisecond,
		RetryMaxDelay:       2 * time.Second,
		RetryMultiplier:     2,
	}
}

// Aggregator 实现了 port.SummaryFetcher 接口
type Aggregator struct {
	client *github.Client
	opts   Options
}

// NewAggregator 非法参数回落到默认值
func NewAggregator(client *github.Client, opts Options) *Aggregator {
	def := DefaultOptions()
	if opts.PerPage <= 0 || opts.PerPage > 100 {
		opts.PerPage = def.PerPage
	}
	if opts.MaxRepos <= 0 {
		opts.MaxRepos = def.MaxRepos
	}
	if opts.MaxEventPages <= 0 {
		opts.MaxEventPages = def.MaxEventPages
	}
	if opts.LanguageConcurrency <= 0 {
		opts.LanguageConcurrency = def.LanguageConcurrency
	}
	if opts.RetryAttempts < 0 {
		opts.RetryAttempts = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = def.RetryMaxDelay
	}
	if opts.RetryMultiplier < 1 {
		opts.RetryMultiplier = def.RetryMultiplier
	}
	return &Aggregator{client: client, opts: opts}
}

// FetchSummary 读取仓库 (含每个仓库的语言) 和最近的公开事件，汇总成 AccountSummary。
// 任何一次请求失败都直接返回 *common.UpstreamError，不返回部分结果。
func (a *Aggregator) FetchSummary(ctx context.Context, login string) (*domain.AccountSummary, error) {
	defer metrics.ObserveAggregation(time.Now())
	log := logging.Ctx(ctx).With().Str("user", login).Logger()

	summary := &domain.AccountSummary{}
	tally := newLanguageTally()

	if err := a.collectRepositories(ctx, login, summary, tally); err != nil {
		log.Warn().Err(err).Msg("repository aggregation failed")
		return nil, err
	}
	summary.Languages = tally.sorted()

	if err := a.collectEvents(ctx, login, summary); err != nil {
		log.Warn().Err(err).Msg("event aggregation failed")
		return nil, err
	}

	log.Debug().
		Int("repos", summary.RepositoriesScanned).
		Int64("stars", summary.StarsTotal).
		Int("languages", len(summary.Languages)).
		Int64("commits", summary.Commits).
		Msg("summary aggregated")
	return summary, nil
}

func (a *Aggregator) collectRepositories(ctx context.Context, login string, summary *domain.AccountSummary, tally *languageTally) error {
	for repos, err := range pages(ctx, a.listRepositories(login), 0) {
		if err != nil {
			return err
		}

		batch := make([]domain.RepositoryRecord, 0, len(repos))
		for _, r := range repos {
			if !r.Qualifies() {
				continue
			}
			if summary.RepositoriesScanned >= a.opts.MaxRepos {
				break
			}
			summary.RepositoriesScanned++
			summary.StarsTotal += r.Stars
			batch = append(batch, r)
		}

		perRepo, err := a.fetchLanguages(ctx, batch)
		if err != nil {
			return err
		}
		for _, langs := range perRepo {
			tally.merge(langs)
		}

		if summary.RepositoriesScanned >= a.opts.MaxRepos {
			break
		}
	}
	return nil
}

func (a *Aggregator) collectEvents(ctx context.Context, login string, summary *domain.AccountSummary) error {
	for events, err := range pages(ctx, a.listEvents(login), a.opts.MaxEventPages) {
		if err != nil {
			return err
		}
		for _, ev := range events {
			switch ev.Kind {
			case domain.EventPush:
				if ev.PushSize != nil {
					summary.Commits += *ev.PushSize
				}
			case domain.EventPullRequest:
				summary.PullRequests++
			case domain.EventIssues:
				summary.Issues++
			}
		}
	}
	return nil
}

func (a *Aggregator) listRepositories(login string) pageFunc[domain.RepositoryRecord] {
	return func(ctx context.Context, page int) ([]domain.RepositoryRecord, error) {
		opts := &github.RepositoryListOptions{
			Sort: "updated",
			ListOptions: github.ListOptions{
				PerPage: a.opts.PerPage,
				Page:    page,
			},
		}

		var repos []*github.Repository
		err := a.call(ctx, "repos", "users/"+login+"/repos", func() (*github.Response, error) {
			var resp *github.Response
			var apiErr error
			repos, resp, apiErr = a.client.Repositories.List(ctx, login, opts)
			return resp, apiErr
		})
		if err != nil {
			return nil, err
		}

		records := make([]domain.RepositoryRecord, 0, len(repos))
		for _, item := range repos {
			owner := item.GetOwner().GetLogin()
			if owner == "" {
				owner = login
			}
			records = append(records, domain.RepositoryRecord{
				Owner:    owner,
				Name:     item.GetName(),
				Stars:    int64(item.GetStargazersCount()),
				Fork:     item.GetFork(),
				Archived: item.GetArchived(),
			})
		}
		return records, nil
	}
}

func (a *Aggregator) listEvents(login string) pageFunc[domain.EventRecord] {
	return func(ctx context.Context, page int) ([]domain.EventRecord, error) {
		opts := &github.ListOptions{PerPage: a.opts.PerPage, Page: page}

		var events []*github.Event
		err := a.call(ctx, "events", "users/"+login+"/events/public", func() (*github.Response, error) {
			var resp *github.Response
			var apiErr error
			events, resp, apiErr = a.client.Activity.ListEventsPerformedByUser(ctx, login, true, opts)
			return resp, apiErr
		})
		if err != nil {
			return nil, err
		}

		records := make([]domain.EventRecord, 0, len(events))
		for _, ev := range events {
			rec := domain.EventRecord{Kind: domain.ParseEventKind(ev.GetType())}
			if rec.Kind == domain.EventPush {
				rec.PushSize = pushSize(ev)
			}
			records = append(records, rec)
		}
		return records, nil
	}
}

// pushSize 读取 PushEvent 的 payload.size，缺失或格式不对时返回 nil
func pushSize(ev *github.Event) *int64 {
	// ParsePayload 不检查 RawPayload 是否为空
	if ev.RawPayload == nil || ev.Type == nil {
		return nil
	}
	parsed, err := ev.ParsePayload()
	if err != nil {
		logging.Debug().Err(err).Str("event", ev.GetID()).Msg("unreadable push payload")
		return nil
	}
	push, ok := parsed.(*github.PushEvent)
	if !ok || push.Size == nil {
		return nil
	}
	size := int64(*push.Size)
	return &size
}

// languagesOf 单个仓库的语言字节数，去掉 0 字节，按字节数降序、同值按名称排序
func (a *Aggregator) languagesOf(ctx context.Context, repo domain.RepositoryRecord) ([]domain.LanguageSize, error) {
	var raw map[string]int
	path := "repos/" + repo.Owner + "/" + repo.Name + "/languages"
	err := a.call(ctx, "languages", path, func() (*github.Response, error) {
		var resp *github.Response
		var apiErr error
		raw, resp, apiErr = a.client.Repositories.ListLanguages(ctx, repo.Owner, repo.Name)
		return resp, apiErr
	})
	if err != nil {
		return nil, err
	}

	langs := make([]domain.LanguageSize, 0, len(raw))
	for name, size := range raw {
		if size > 0 {
			langs = append(langs, domain.LanguageSize{Name: name, Bytes: int64(size)})
		}
	}
	sort.Slice(langs, func(i, j int) bool {
		if langs[i].Bytes != langs[j].Bytes {
			return langs[i].Bytes > langs[j].Bytes
		}
		return langs[i].Name < langs[j].Name
	})
	return langs, nil
}

type languageJob struct {
	index int
	repo  domain.RepositoryRecord
}

// fetchLanguages 结果按 batch 顺序返回，与并发数无关
func (a *Aggregator) fetchLanguages(ctx context.Context, batch []domain.RepositoryRecord) ([][]domain.LanguageSize, error) {
	results := make([][]domain.LanguageSize, len(batch))

	if a.opts.LanguageConcurrency <= 1 || len(batch) <= 1 {
		for i, repo := range batch {
			langs, err := a.languagesOf(ctx, repo)
			if err != nil {
				return nil, err
			}
			results[i] = langs
		}
		return results, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan languageJob, len(batch))
	errs := make([]error, len(batch))

	var wg sync.WaitGroup
	workers := min(a.opts.LanguageConcurrency, len(batch))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				langs, err := a.languagesOf(ctx, job.repo)
				if err != nil {
					errs[job.index] = err
					cancel()
					continue
				}
				results[job.index] = langs
			}
		}()
	}

	for i, repo := range batch {
		jobs <- languageJob{index: i, repo: repo}
	}
	close(jobs)
	wg.Wait()

	// 取批次中最靠前的真实失败，取消引发的连带错误排在后面
	var first error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			return nil, err
		}
		if first == nil {
			first = err
		}
	}
	if first != nil {
		return nil, first
	}
	return results, nil
}

// call 执行一次 go-github 调用，按需重试，并把失败统一成 *common.UpstreamError
func (a *Aggregator) call(ctx context.Context, endpoint, path string, fn func() (*github.Response, error)) error {
	target := a.client.BaseURL.String() + path

	err := common.Do(ctx, func() error {
		resp, apiErr := fn()
		if apiErr != nil {
			return classify(target, resp, apiErr)
		}
		return nil
	},
		common.WithMaxRetries(a.opts.RetryAttempts),
		common.WithInitialDelay(a.opts.RetryDelay),
		common.WithMaxDelay(a.opts.RetryMaxDelay),
		common.WithMultiplier(a.opts.RetryMultiplier),
		common.WithRetryIf(common.IsRetryable),
	)
	if err == nil {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "ok").Inc()
		return nil
	}

	var upErr *common.UpstreamError
	if !errors.As(err, &upErr) {
		upErr = common.NewTransportError(target, err)
	}
	if upErr.IsTransport() {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "transport").Inc()
	} else {
		metrics.UpstreamRequests.WithLabelValues(endpoint, "status").Inc()
	}
	return upErr
}

// classify 有非 2xx 响应的是状态错误，其余 (网络、超时、熔断、响应体解析失败) 都算网络层失败
func classify(target string, resp *github.Response, err error) *common.UpstreamError {
	if resp != nil && resp.Response != nil {
		status := resp.StatusCode
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			if resp.Request != nil && resp.Request.URL != nil {
				target = resp.Request.URL.String()
			}
			body := responseBody(resp.Response)
			if body == "" {
				body = errorMessage(status, err)
			}
			return common.NewStatusError(target, status, body)
		}
	}
	return common.NewTransportError(target, err)
}

// 错误卡片里只放得下一小段响应体
const maxErrorBodyBytes = 512

// responseBody 读出错误响应的原始文本。CheckResponse 读完后会把响应体重新放回 resp.Body
func responseBody(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}

// errorMessage 响应体为空时的兜底文本
func errorMessage(status int, err error) string {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Message != "" {
		return errResp.Message
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Message != "" {
		return rateErr.Message
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Message != "" {
		return abuseErr.Message
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return err.Error()
}

// NewAggregatorFromConfig 按配置创建客户端和聚合器
func NewAggregatorFromConfig(cfg config.GitHubConfig) (*Aggregator, error) {
	client, err := NewClient(ClientConfig{
		BaseURL:           cfg.BaseURL,
		UserAgent:         cfg.UserAgent,
		RequestsPerSecond: cfg.RequestsPerSecond,
		BreakerFailures:   cfg.BreakerFailures,
		BreakerTimeout:    cfg.BreakerTimeout,
	})
	if err != nil {
		return nil, err
	}
	return NewAggregator(client, Options{
		PerPage:             cfg.PerPage,
		MaxRepos:            cfg.MaxRepos,
		MaxEventPages:       cfg.MaxEventPages,
		LanguageConcurrency: cfg.LanguageConcurrency,
		RetryAttempts:       cfg.RetryAttempts,
		RetryDelay:          cfg.RetryDelay,
		RetryMaxDelay:       cfg.RetryMaxDelay,
		RetryMultiplier:     cfg.RetryMultiplier,
	}), nil
}
