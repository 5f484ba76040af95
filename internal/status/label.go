package status

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// LabelOptions 控制终端状态标签的渲染
type LabelOptions struct {
	ShowIcon    bool
	ShowContent bool
	// Color 非空时覆盖状态对应的颜色
	Color Color
}

// DefaultLabelOptions 图标和文字都显示
func DefaultLabelOptions() LabelOptions {
	return LabelOptions{ShowIcon: true, ShowContent: true}
}

var glyphs = map[Icon]string{
	IconKey:         "⚿",
	IconWifi:        "⇡",
	IconCog:         "⚙",
	IconCheck:       "✓",
	IconExclamation: "!",
	IconQuestion:    "?",
}

var palette = map[Color]*color.Color{
	ColorGrey:  color.New(color.FgHiBlack),
	ColorGreen: color.New(color.FgGreen),
	ColorRed:   color.New(color.FgRed),
	ColorBlue:  color.New(color.FgBlue),
}

// Label 渲染状态标签，例如 "⚙ finalising… (2 of 3)"。
// s 为 nil 表示还没有状态，返回空串。
func Label(s *TransactionStatus, p Progress, opts LabelOptions) string {
	if s == nil {
		return ""
	}
	pres := Present(*s)
	line := labelText(pres, p, opts)

	c := pres.Color
	if opts.Color != "" {
		c = opts.Color
	}
	painter, ok := palette[c]
	if !ok {
		painter = color.New(color.Reset)
	}
	return painter.Sprint(line)
}

// PlainLabel 不带颜色和图标，给 HTTP 接口使用
func PlainLabel(s *TransactionStatus, p Progress) string {
	if s == nil {
		return ""
	}
	return labelText(Present(*s), p, LabelOptions{ShowContent: true})
}

func labelText(pres Presentation, p Progress, opts LabelOptions) string {
	parts := make([]string, 0, 3)
	if opts.ShowIcon {
		parts = append(parts, glyphs[pres.Icon])
	}
	if opts.ShowContent {
		text := pres.Text
		if pres.Loading {
			text += "…"
		}
		parts = append(parts, text)
	}
	if counter, ok := p.Label(); ok {
		parts = append(parts, "("+counter+")")
	}
	return strings.Join(parts, " ")
}

// FprintLabel 输出一行标签，没有状态时什么都不输出
func FprintLabel(w io.Writer, s *TransactionStatus, p Progress, opts LabelOptions) {
	if line := Label(s, p, opts); line != "" {
		fmt.Fprintln(w, line)
	}
}
