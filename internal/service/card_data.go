package service

import (
	"strconv"

	"github-stat-card/internal/domain"
	"github-stat-card/internal/port"
)

// SummaryCardData 账号统计卡片的数据: 五行统计加语言分段
func SummaryCardData(theme domain.Theme, login string, summary *domain.AccountSummary, segments []domain.LanguageSegment) port.CardData {
	return port.CardData{
		Theme:     theme,
		Title:     login + " GitHub Stats",
		AriaLabel: "GitHub stats for " + login,
		StatRows: []domain.StatRow{
			{Label: "Stars", Value: strconv.FormatInt(summary.StarsTotal, 10), DY: 0},
			{Label: "Commits (year)", Value: strconv.FormatInt(summary.Commits, 10), DY: 20},
			{Label: "Pull Requests", Value: strconv.FormatInt(summary.PullRequests, 10), DY: 40},
			{Label: "Issues", Value: strconv.FormatInt(summary.Issues, 10), DY: 60},
			{Label: "Languages", Value: strconv.Itoa(len(summary.Languages)), DY: 80},
		},
		Segments: segments,
	}
}
