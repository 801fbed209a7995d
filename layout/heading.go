package layout

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxHeadingLevel = 5
	// headingLineFactor 是标题行高相对字号的倍数。
	headingLineFactor = 1.5
)

// Heading 是编号后的标题。
type Heading struct {
	Level int
	// Number 为编号部分（H1 含前缀，例如 "CHƯƠNG I"），关闭编号时为空。
	Number string
	Title  string
	// Split 表示 H1 的编号与标题分两行显示。
	Split bool
}

// Text 返回单行形式的标题。
func (h Heading) Text() string {
	switch {
	case h.Number == "":
		return h.Title
	case h.Level == 1:
		return h.Number + ": " + h.Title
	default:
		return h.Number + " " + h.Title
	}
}

// LineCount 返回标题占用的行数。
func (h Heading) LineCount() int {
	if h.Split {
		return 2
	}
	return 1
}

// HeadingNumberer 维护 1~5 级标题计数器。
type HeadingNumberer struct {
	settings Settings
	counters [maxHeadingLevel]int
	upper    cases.Caser
}

// NewHeadingNumberer 创建计数器全部为 0 的编号器。
func NewHeadingNumberer(s Settings) *HeadingNumberer {
	return &HeadingNumberer{settings: s, upper: cases.Upper(language.Vietnamese)}
}

// Next 处理一个 level 级标题：该级计数加一，更深的级别清零。
func (n *HeadingNumberer) Next(level int, title string) Heading {
	level = min(max(level, 1), maxHeadingLevel)
	n.counters[level-1]++
	for i := level; i < maxHeadingLevel; i++ {
		n.counters[i] = 0
	}

	h := Heading{Level: level, Title: strings.TrimSpace(title)}
	if level == 1 && n.settings.H1Uppercase {
		h.Title = n.upper.String(h.Title)
	}
	if !n.settings.AutoNumbering {
		return h
	}
	if level == 1 {
		h.Number = ToRoman(n.counters[0])
		if prefix := strings.TrimSpace(n.settings.H1Prefix); prefix != "" {
			h.Number = prefix + " " + h.Number
		}
		h.Split = n.settings.H1Split
		return h
	}

	start := 1
	if n.settings.HierarchicalNumbering {
		start = 0
	}
	var b strings.Builder
	for i := start; i < level; i++ {
		b.WriteString(strconv.Itoa(n.counters[i]))
		b.WriteByte('.')
	}
	h.Number = b.String()
	return h
}

// Counter 返回 level 级的当前计数。
func (n *HeadingNumberer) Counter(level int) int {
	if level < 1 || level > maxHeadingLevel {
		return 0
	}
	return n.counters[level-1]
}

// Height 返回标题的占用高度（cm）。
func (n *HeadingNumberer) Height(h Heading) float64 {
	size := n.settings.FontSize
	padding := 1.0
	switch h.Level {
	case 1:
		size = n.settings.H1Size
		padding = 2.0
	case 2:
		size = n.settings.H2Size
	case 3:
		size = n.settings.H3Size
	}
	return size*PtToCm*headingLineFactor*float64(h.LineCount()) + padding
}

var romanNumerals = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

// ToRoman 把 1~3999 的整数转为罗马数字；超出范围返回十进制字符串。
func ToRoman(n int) string {
	if n <= 0 || n >= 4000 {
		return strconv.Itoa(n)
	}
	var b strings.Builder
	for _, r := range romanNumerals {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}
