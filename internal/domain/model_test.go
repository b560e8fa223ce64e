package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRepositoryRecord_Qualifies(t *testing.T) {
	tests := []struct {
		name   string
		record RepositoryRecord
		want   bool
	}{
		{name: "普通仓库", record: RepositoryRecord{Name: "a"}, want: true},
		{name: "fork 仓库", record: RepositoryRecord{Name: "b", Fork: true}, want: false},
		{name: "归档仓库", record: RepositoryRecord{Name: "c", Archived: true}, want: false},
		{name: "归档的 fork", record: RepositoryRecord{Name: "d", Fork: true, Archived: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.Qualifies())
		})
	}
}

func TestParseEventKind(t *testing.T) {
	assert.Equal(t, EventPush, ParseEventKind("PushEvent"))
	assert.Equal(t, EventPullRequest, ParseEventKind("PullRequestEvent"))
	assert.Equal(t, EventIssues, ParseEventKind("IssuesEvent"))
	assert.Equal(t, EventOther, ParseEventKind("WatchEvent"))
	assert.Equal(t, EventOther, ParseEventKind(""))
}

func TestAccountSummary_TotalLanguageBytes(t *testing.T) {
	s := &AccountSummary{Languages: []LanguageSize{{"Go", 10}, {"Rust", 32}}}
	assert.Equal(t, int64(42), s.TotalLanguageBytes())
	assert.Equal(t, int64(0), (&AccountSummary{}).TotalLanguageBytes())
}

func TestCacheEntry_Expired(t *testing.T) {
	now := time.Now()
	entry := &CacheEntry{Key: "k", Markup: "<svg/>", ExpiresAt: now.Add(time.Minute)}

	assert.False(t, entry.Expired(now))
	assert.True(t, entry.Expired(now.Add(time.Minute)))
	assert.True(t, entry.Expired(now.Add(time.Hour)))
}

func TestThemeFromQuery(t *testing.T) {
	tests := []struct {
		name       string
		background string
		text       string
		want       Theme
	}{
		{
			name: "全部缺省",
			want: Theme{BackgroundColor: "#F6F1D1", TextColor: "#0B2027"},
		},
		{
			name:       "自定义配色",
			background: "#000000",
			text:       "#ffffff",
			want:       Theme{BackgroundColor: "#000000", TextColor: "#ffffff"},
		},
		{
			name:       "去除首尾空白",
			background: "  #123456 ",
			text:       "\t",
			want:       Theme{BackgroundColor: "#123456", TextColor: "#0B2027"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ThemeFromQuery(tt.background, tt.text))
		})
	}
}
