package domain

import (
	"strings"
	"time"
)

// RepositoryRecord 仓库列表中的单个条目，只在聚合过程中短暂存在
type RepositoryRecord struct {
	Owner    string
	Name     string
	Stars    int64
	Fork     bool
	Archived bool
}

// Qualifies 既不是 fork 也没有归档的仓库才计入统计
func (r RepositoryRecord) Qualifies() bool {
	return !r.Fork && !r.Archived
}

// EventKind 公开事件的类型
type EventKind int

const (
	EventOther EventKind = iota
	EventPush
	EventPullRequest
	EventIssues
)

// ParseEventKind 把 GitHub 的事件类型字符串映射为 EventKind
func ParseEventKind(s string) EventKind {
	switch s {
	case "PushEvent":
		return EventPush
	case "PullRequestEvent":
		return EventPullRequest
	case "IssuesEvent":
		return EventIssues
	default:
		return EventOther
	}
}

// EventRecord 公开事件流中的单个事件
// PushSize 只对 push 事件有意义，payload 缺失时为 nil
type EventRecord struct {
	Kind     EventKind
	PushSize *int64
}

// LanguageSize 某种语言在所有合格仓库中的累计字节数
type LanguageSize struct {
	Name  string
	Bytes int64
}

// AccountSummary 一个账号的聚合结果，构造后不再修改
type AccountSummary struct {
	// 按字节数降序排列，字节数相同时保持首次出现的顺序
	Languages    []LanguageSize
	StarsTotal   int64
	Commits      int64
	PullRequests int64
	Issues       int64

	// 实际计入的合格仓库数量 (上限 400)
	RepositoriesScanned int
}

// TotalLanguageBytes 全部语言的字节总和
func (s *AccountSummary) TotalLanguageBytes() int64 {
	var total int64
	for _, l := range s.Languages {
		total += l.Bytes
	}
	return total
}

// CacheEntry 值缓存中的一条记录，刷新时整体覆盖
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;size:512"`
	Markup    string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	UpdatedAt time.Time
}

// Expired 判断记录在 now 时刻是否已过期
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

const (
	DefaultBackgroundColor = "#F6F1D1"
	DefaultTextColor       = "#0B2027"
)

// Theme 卡片配色
type Theme struct {
	BackgroundColor string
	TextColor       string
}

// DefaultTheme 未指定配色时使用的主题
func DefaultTheme() Theme {
	return Theme{
		BackgroundColor: DefaultBackgroundColor,
		TextColor:       DefaultTextColor,
	}
}

// ThemeFromQuery 由查询参数得到主题，空白值回落到默认色
func ThemeFromQuery(background, text string) Theme {
	theme := DefaultTheme()
	if v := strings.TrimSpace(background); v != "" {
		theme.BackgroundColor = v
	}
	if v := strings.TrimSpace(text); v != "" {
		theme.TextColor = v
	}
	return theme
}

// StatRow 卡片左侧的一行统计
type StatRow struct {
	Label string
	Value string
	DY    int
}
