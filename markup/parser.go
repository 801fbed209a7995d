package markup

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// 规则顺序即优先级：同一位置上先尝试的规则胜出，span 之间不嵌套。
// 标记内容不能为空，否则标记按字面保留。
var (
	markupLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "DisplayMath", Pattern: `\$\$.*?\$\$`},
		{Name: "InlineMath", Pattern: `\$[^$].*?\$`},
		{Name: "Bold", Pattern: `\*\*[^*].*?\*\*`},
		{Name: "Italic", Pattern: `\*[^*].*?\*`},
		{Name: "Underline", Pattern: `<u>.*?</u>`},
		{Name: "Text", Pattern: `[^$*<]+`},
		{Name: "Marker", Pattern: `[$*<]`},
	})

	lineParser = participle.MustBuild[Line](
		participle.Lexer(markupLexer),
	)
)

// Line is the AST of a single source line.
type Line struct {
	Spans []*Span `parser:"@@*"`
}

// Span is one matched marker span or a stretch of literal text.
type Span struct {
	DisplayMath *Delimited `parser:"  @DisplayMath"`
	InlineMath  *Delimited `parser:"| @InlineMath"`
	Bold        *Delimited `parser:"| @Bold"`
	Italic      *Delimited `parser:"| @Italic"`
	Underline   *Delimited `parser:"| @Underline"`
	Text        *string    `parser:"| @( Text | Marker )"`
}

// Delimited keeps the raw token of a marker span.
type Delimited string

// Capture implements participle.Capture.
func (d *Delimited) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("markup: span capture requires value")
	}
	*d = Delimited(strings.Join(values, ""))
	return nil
}

// inner strips open/close markers of the given widths.
func (d Delimited) inner(open, close int) string {
	s := string(d)
	if len(s) < open+close {
		return ""
	}
	return s[open : len(s)-close]
}

// Run returns the styled run of the span.
func (s *Span) Run() Run {
	switch {
	case s.DisplayMath != nil:
		return Run{Style: DisplayMath, Text: s.DisplayMath.inner(2, 2)}
	case s.InlineMath != nil:
		return Run{Style: InlineMath, Text: s.InlineMath.inner(1, 1)}
	case s.Bold != nil:
		return Run{Style: Bold, Text: s.Bold.inner(2, 2)}
	case s.Italic != nil:
		return Run{Style: Italic, Text: s.Italic.inner(1, 1)}
	case s.Underline != nil:
		return Run{Style: Underline, Text: s.Underline.inner(3, 4)}
	case s.Text != nil:
		return Run{Style: Plain, Text: *s.Text}
	default:
		return Run{Style: Plain}
	}
}

// raw returns the source text of the span and the width of its opening marker.
func (s *Span) raw() (string, int) {
	switch {
	case s.DisplayMath != nil:
		return string(*s.DisplayMath), 2
	case s.InlineMath != nil:
		return string(*s.InlineMath), 1
	case s.Bold != nil:
		return string(*s.Bold), 2
	case s.Italic != nil:
		return string(*s.Italic), 1
	case s.Underline != nil:
		return string(*s.Underline), 3
	case s.Text != nil:
		return *s.Text, 0
	default:
		return "", 0
	}
}

// segment is a run together with the byte offset of its text in the source.
type segment struct {
	Run
	start int
}

func parseSegments(text string) []segment {
	if text == "" {
		return nil
	}
	ast, err := lineParser.ParseString("", text)
	if err != nil {
		// 语法上每个字符都能被 Text/Marker 吸收，这里仅作兜底。
		return []segment{{Run: Run{Style: Plain, Text: text}}}
	}
	segs := make([]segment, 0, len(ast.Spans))
	offset := 0
	for _, span := range ast.Spans {
		raw, open := span.raw()
		segs = append(segs, segment{Run: span.Run(), start: offset + open})
		offset += len(raw)
	}
	return segs
}

// appendRun appends run to runs, merging adjacent plain text.
func appendRun(runs []Run, run Run) []Run {
	if run.Style == Plain {
		if n := len(runs); n > 0 && runs[n-1].Style == Plain {
			runs[n-1].Text += run.Text
			return runs
		}
	}
	return append(runs, run)
}

// Parse splits a line into styled runs. Unterminated markers stay in plain
// runs; adjacent plain runs are merged.
func Parse(text string) []Run {
	segs := parseSegments(text)
	if segs == nil {
		return nil
	}
	runs := make([]Run, 0, len(segs))
	for _, seg := range segs {
		runs = appendRun(runs, seg.Run)
	}
	return runs
}

// ParseLines parses wrapped lines as one text joined by single spaces and
// returns the runs of every line. A span crossing a line break keeps its
// style on both lines.
func ParseLines(lines []string) [][]Run {
	out := make([][]Run, len(lines))
	segs := parseSegments(strings.Join(lines, " "))
	lineStart := 0
	k := 0
	for i, line := range lines {
		lineEnd := lineStart + len(line)
		for ; k < len(segs); k++ {
			seg := segs[k]
			from, to := max(seg.start, lineStart), min(seg.start+len(seg.Text), lineEnd)
			if from < to {
				out[i] = appendRun(out[i], Run{Style: seg.Style, Text: seg.Text[from-seg.start : to-seg.start]})
			}
			if seg.start+len(seg.Text) > lineEnd {
				// 该片段延续到下一行
				break
			}
		}
		lineStart = lineEnd + 1
	}
	return out
}

// PlainText returns text with all recognised markers removed.
func PlainText(text string) string {
	var b strings.Builder
	for _, run := range Parse(text) {
		b.WriteString(run.Text)
	}
	return b.String()
}
