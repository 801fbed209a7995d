package layout

import (
	"strings"
	"unicode"
)

const (
	// defaultFigureHeight 为未登记或未指定宽度的图片预留的高度（cm）。
	defaultFigureHeight = 8.0
	figureAspect        = 0.75
	figureCaptionHeight = 1.5
	// FigurePlaceholder 是图片无法解析时显示的说明文字。
	FigurePlaceholder = "Hình ảnh chưa upload hoặc URL lỗi"
)

// ResolveFigure 在登记表中查找编号为 token 的图片：先比较去除首尾空白后的
// 编号，再比较去掉全部空白后的编号。
func ResolveFigure(registry []Figure, token string) (Figure, bool) {
	want := strings.TrimSpace(token)
	for _, f := range registry {
		if strings.TrimSpace(f.Number) == want {
			return f, true
		}
	}
	compact := stripSpaces(want)
	for _, f := range registry {
		if stripSpaces(f.Number) == compact {
			return f, true
		}
	}
	return Figure{}, false
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// figureHeight 返回图片块（含图题）的高度（cm）。
func figureHeight(fig *Figure) float64 {
	img := defaultFigureHeight
	if fig != nil && fig.Width > 0 {
		img = fig.Width * figureAspect
	}
	return img + figureCaptionHeight
}
