package domain

import (
	"fmt"
	"math"
)

// FallbackColor 超出调色板长度的语言使用的颜色
const FallbackColor = "#95A5A6"

// Palette 按排名分配的语言颜色
var Palette = []string{
	"#DEA584",
	"#E34C26",
	"#3572A5",
	"#F1E05A",
	"#00ADD8",
	"#9B59B6",
	"#16A085",
}

// LanguageSegment 饼图中一段圆弧以及对应的图例
type LanguageSegment struct {
	Name        string
	Color       string
	PercentText string
	DashArray   string
	DashOffset  string
	LegendDY    int
}

// ColorAt 返回第 i 名语言的颜色
func ColorAt(i int) string {
	if i >= 0 && i < len(Palette) {
		return Palette[i]
	}
	return FallbackColor
}

// BuildSegments 把排好序的语言分布转换为饼图几何数据。
//
// 占比相对于整个输入的字节总和计算，只绘制前 topN 个，
// 所以显示的百分比之和可能小于 100%。每段都是一整圈的描边，
// 通过 dasharray "弧长 周长" 和累计的负 dashoffset 排列成环。
func BuildSegments(langs []LanguageSize, topN int, radius float64, legendRowHeight int) []LanguageSegment {
	var total int64
	for _, l := range langs {
		total += l.Bytes
	}
	if total <= 0 || topN <= 0 {
		return []LanguageSegment{}
	}

	n := min(topN, len(langs))
	circumference := 2 * math.Pi * radius

	segments := make([]LanguageSegment, 0, n)
	acc := 0.0
	for i, l := range langs[:n] {
		ratio := clampRatio(float64(l.Bytes) / float64(total))

		segments = append(segments, LanguageSegment{
			Name:        l.Name,
			Color:       ColorAt(i),
			PercentText: fmt.Sprintf("%.1f%%", ratio*100),
			DashArray:   fmt.Sprintf("%.4f %.4f", circumference*ratio, circumference),
			DashOffset:  fmt.Sprintf("%.4f", -(circumference * acc)),
			LegendDY:    i * legendRowHeight,
		})

		acc += ratio
	}

	return segments
}

func clampRatio(r float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
