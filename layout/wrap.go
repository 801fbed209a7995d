package layout

import "strings"

// LineWrapper 使用贪心算法把段落折成物理行。
type LineWrapper struct {
	Measurer   TextMeasurer
	FontFamily string
	FontSizePx float64
}

// Wrap 折行：首行最大宽度为 firstLineMaxWidth（扣除缩进），其余行为
// restMaxWidth。测得的宽度乘以 density 后严格小于当前最大宽度才接受该词。
// 空白输入返回一个空行；没有测量后端时整段作为一行返回。
func (w LineWrapper) Wrap(text string, firstLineMaxWidth, restMaxWidth, density float64) []string {
	if w.Measurer == nil {
		return []string{text}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	if density <= 0 {
		density = 1.0
	}

	maxWidth := firstLineMaxWidth
	if maxWidth <= 0 {
		// 缩进过大时首行退回到完整宽度
		maxWidth = restMaxWidth
	}

	lines := make([]string, 0, 4)
	current := words[0]
	for _, word := range words[1:] {
		trial := current + " " + word
		width := w.Measurer.Measure(trial, w.FontFamily, w.FontSizePx) * density
		if width < maxWidth {
			current = trial
			continue
		}
		lines = append(lines, current)
		current = word
		maxWidth = restMaxWidth
	}
	return append(lines, current)
}
