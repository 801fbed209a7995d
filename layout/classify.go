package layout

import (
	"regexp"
	"strings"
)

var (
	bulletPattern    = regexp.MustCompile(`^(-{1,3}|\*{1,3})\s`)
	separatorPattern = regexp.MustCompile(`^:?-+:?$`)
)

// SourceBlock 是分类器从源文本识别出的块，尚未计算高度与分页。
type SourceBlock struct {
	Kind BlockKind `json:"kind"`
	// Line 为块起始行号（从 0 开始）。
	Line int `json:"line"`
	// Text：标题文字、列表正文、段落或表题原文。
	Text  string `json:"text,omitempty"`
	Level int    `json:"level,omitempty"`

	FigureRef string `json:"figureRef,omitempty"`
	Caption   string `json:"caption,omitempty"`

	Header []string   `json:"header,omitempty"`
	Rows   [][]string `json:"rows,omitempty"`
	// RowLines 为表格在源文本中占用的行数（含分隔行）。
	RowLines int `json:"rowLines,omitempty"`
}

// classifier 逐行识别块类型，并缓存连续的表格行。
type classifier struct {
	tableLabel string
	figureRe   *regexp.Regexp
	table      []string
	tableStart int
}

func newClassifier(s Settings) *classifier {
	label := regexp.QuoteMeta(s.figureLabel())
	return &classifier{
		tableLabel: s.tableLabel(),
		figureRe:   regexp.MustCompile(`^\[\s*(` + label + `\s+\d+\.\d+)\s*:\s*(.*?)\s*\]$`),
	}
}

// Classify 对整篇文档做一次分类。
func Classify(content string, s Settings) []SourceBlock {
	c := newClassifier(s)
	var out []SourceBlock
	for i, line := range splitLines(content) {
		out = append(out, c.feed(line, i)...)
	}
	return append(out, c.finish()...)
}

func splitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// feed 处理第 n 行。遇到非表格行时先输出缓存的表格。
func (c *classifier) feed(line string, n int) []SourceBlock {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "|") {
		if len(c.table) == 0 {
			c.tableStart = n
		}
		c.table = append(c.table, line)
		return nil
	}

	out := c.finish()
	return append(out, c.classify(line, trimmed, n))
}

// finish 输出尚未结束的表格缓存（文档末尾调用）。
func (c *classifier) finish() []SourceBlock {
	if len(c.table) == 0 {
		return nil
	}
	lines := c.table
	c.table = nil
	header, rows, ok := resolveTable(lines)
	if !ok {
		return nil
	}
	return []SourceBlock{{
		Kind:     KindTable,
		Line:     c.tableStart,
		Header:   header,
		Rows:     rows,
		RowLines: len(lines),
	}}
}

func (c *classifier) classify(line, trimmed string, n int) SourceBlock {
	for level := 1; level <= maxHeadingLevel; level++ {
		marker := strings.Repeat("#", level) + " "
		if strings.HasPrefix(line, marker) {
			return SourceBlock{Kind: KindHeading, Line: n, Level: level, Text: line[len(marker):]}
		}
	}
	if m := c.figureRe.FindStringSubmatch(trimmed); m != nil {
		return SourceBlock{Kind: KindFigure, Line: n, FigureRef: strings.TrimSpace(m[1]), Caption: m[2], Text: trimmed}
	}
	if strings.HasPrefix(line, c.tableLabel) && strings.Contains(line, ":") {
		return SourceBlock{Kind: KindTableCaption, Line: n, Text: line}
	}
	if m := bulletPattern.FindStringSubmatch(trimmed); m != nil {
		return SourceBlock{
			Kind:  KindBulletItem,
			Line:  n,
			Level: len(m[1]),
			Text:  strings.TrimSpace(trimmed[len(m[1]):]),
		}
	}
	if trimmed == "" {
		return SourceBlock{Kind: KindBlank, Line: n}
	}
	return SourceBlock{Kind: KindParagraph, Line: n, Text: line}
}

// resolveTable 把缓存的表格行拆成单元格：空单元格与分隔行被丢弃，第一行为表头。
func resolveTable(lines []string) ([]string, [][]string, bool) {
	var rows [][]string
	for _, line := range lines {
		var cells []string
		for _, cell := range strings.Split(line, "|") {
			if cell = strings.TrimSpace(cell); cell != "" {
				cells = append(cells, cell)
			}
		}
		if len(cells) == 0 || isSeparatorRow(cells) {
			continue
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, nil, false
	}
	return rows[0], rows[1:], true
}

func isSeparatorRow(cells []string) bool {
	for _, cell := range cells {
		if !separatorPattern.MatchString(cell) {
			return false
		}
	}
	return true
}
