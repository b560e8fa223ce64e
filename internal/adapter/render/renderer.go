// Package render 把卡片数据渲染成 SVG。
// 使用 html/template，主题颜色和用户名都来自请求参数，需要按上下文转义。
package render

import (
	"bytes"
	_ "embed"
	"html/template"

	"github-stat-card/internal/common"
	"github-stat-card/internal/domain"
	"github-stat-card/internal/metrics"
	"github-stat-card/internal/port"
)

// DefaultFontFamily 卡片字体
const DefaultFontFamily = `-apple-system, BlinkMacSystemFont, "Segoe UI", Helvetica, Arial, sans-serif`

//go:embed templates/card.svg.tmpl
var cardTemplate string

var cardTmpl = template.Must(template.New("card").Parse(cardTemplate))

// Layout 卡片尺寸和排版参数
type Layout struct {
	Width  int
	Height int
	Radius int
	PadX   int

	TitleY    int
	TitleSize int

	LeftX            int
	LeftY            int
	StatValueX       int
	StatLabelSize    int
	StatValueSize    int
	StatLabelOpacity float64

	TopLanguagesTitle string
	SectionTitleSize  int
	PieGroupX         int
	PieGroupY         int
	PieTitleY         int

	PieCX         int
	PieCY         int
	PieR          float64
	PieStroke     float64
	PieBaseStroke string

	LegendX    int
	LegendY    int
	LegendSize int
}

// DefaultLayout 400x160 的卡片
func DefaultLayout() Layout {
	return Layout{
		Width:             400,
		Height:            160,
		Radius:            8,
		PadX:              18,
		TitleY:            28,
		TitleSize:         16,
		LeftX:             18,
		LeftY:             60,
		StatValueX:        140,
		StatLabelSize:     12,
		StatValueSize:     12,
		StatLabelOpacity:  0.7,
		TopLanguagesTitle: "Top Languages",
		SectionTitleSize:  12,
		PieGroupX:         230,
		PieGroupY:         40,
		PieTitleY:         12,
		PieCX:             70,
		PieCY:             70,
		PieR:              40,
		PieStroke:         12,
		PieBaseStroke:     "#e1e4e8",
		LegendX:           126,
		LegendY:           40,
		LegendSize:        10,
	}
}

type cardViewModel struct {
	Layout

	InnerWidth  int
	InnerHeight int
	FontFamily  string

	Theme     domain.Theme
	Title     string
	AriaLabel string
	StatRows  []domain.StatRow
	Segments  []domain.LanguageSegment
	ShowPie   bool
}

// SVGRenderer 实现了 port.Renderer 接口
type SVGRenderer struct {
	layout Layout
}

// NewSVGRenderer 创建渲染器
func NewSVGRenderer(layout Layout) *SVGRenderer {
	return &SVGRenderer{layout: layout}
}

// RenderSummary 渲染统计卡片，没有语言分段时不画饼图
func (r *SVGRenderer) RenderSummary(data port.CardData) (string, error) {
	out, err := r.execute(data)
	if err != nil {
		return "", err
	}
	metrics.CardsRendered.WithLabelValues("summary").Inc()
	return out, nil
}

// RenderError 渲染只有一行 Message 的错误卡片
func (r *SVGRenderer) RenderError(theme domain.Theme, message string) (string, error) {
	out, err := r.execute(ErrorCard(theme, message))
	if err != nil {
		return "", err
	}
	metrics.CardsRendered.WithLabelValues("error").Inc()
	return out, nil
}

func (r *SVGRenderer) execute(data port.CardData) (string, error) {
	vm := cardViewModel{
		Layout:      r.layout,
		InnerWidth:  r.layout.Width - 1,
		InnerHeight: r.layout.Height - 1,
		FontFamily:  DefaultFontFamily,
		Theme:       data.Theme,
		Title:       data.Title,
		AriaLabel:   data.AriaLabel,
		StatRows:    data.StatRows,
		Segments:    data.Segments,
		ShowPie:     len(data.Segments) > 0,
	}

	var buf bytes.Buffer
	if err := cardTmpl.Execute(&buf, vm); err != nil {
		return "", common.WrapError(common.ErrCodeRender, "render svg", err)
	}
	return buf.String(), nil
}

// ErrorCard 错误卡片的数据
func ErrorCard(theme domain.Theme, message string) port.CardData {
	return port.CardData{
		Theme:     theme,
		Title:     "Error",
		AriaLabel: "Error",
		StatRows:  []domain.StatRow{{Label: "Message", Value: message, DY: 0}},
	}
}

