package layout

import (
	"math"
	"strings"

	"github.com/ByLCY/folio/markup"
)

// paragraphMarginBottom 是完整结束的段落片段的段后间距（cm）。
const paragraphMarginBottom = 0.3

// paragraphPaginator 把段落的物理行分配到页面上，跨页时拆成无缩进的续段。
type paragraphPaginator struct {
	acc          *PageAccumulator
	wrapper      LineWrapper
	lineHeight   float64
	contentWidth float64
	indent       float64
	density      float64
}

// linesThatFit 返回 remaining 高度内能放下的整行数。
func linesThatFit(remaining, lineHeight float64) int {
	if lineHeight <= 0 {
		return math.MaxInt32
	}
	return int(math.Floor(remaining/lineHeight + 1e-9))
}

// paginate 对一个段落折行并放入页面。每次循环要么消耗至少一行，要么把
// 非空页面结束掉，因此一定会终止。
func (p *paragraphPaginator) paginate(text string, sourceLine int) {
	lines := p.wrapper.Wrap(text, p.contentWidth-p.indent, p.contentWidth, p.density)
	runs := markup.ParseLines(lines)
	first := true
	for len(lines) > 0 {
		remaining := p.acc.Remaining()
		fit := linesThatFit(remaining, p.lineHeight)
		if fit <= 0 {
			if !p.acc.Empty() {
				p.acc.Flush()
				continue
			}
			// 空页连一行都放不下，强制放一行
			fit = 1
		}

		if fit >= len(lines) {
			height := float64(len(lines))*p.lineHeight + paragraphMarginBottom
			if p.acc.fits(height) {
				p.acc.AddBlock(p.fragment(lines, runs, first, true, sourceLine), height, false)
				return
			}
			// 行放得下但段后间距放不下：作为页尾片段输出，不带间距
			p.acc.Append(p.fragment(lines, runs, first, false, sourceLine), float64(len(lines))*p.lineHeight)
			p.acc.Flush()
			return
		}

		head, rest := lines[:fit], lines[fit:]
		p.acc.Append(p.fragment(head, runs[:fit], first, false, sourceLine), float64(len(head))*p.lineHeight)
		p.acc.Flush()
		lines, runs = rest, runs[fit:]
		first = false
	}
}

func (p *paragraphPaginator) fragment(lines []string, lineRuns [][]markup.Run, first, margin bool, sourceLine int) Block {
	kind := KindParagraph
	if !first {
		kind = KindParagraphContinuation
	}
	var runs []markup.Run
	for i, lr := range lineRuns {
		if i > 0 {
			runs = append(runs, markup.Run{Style: markup.Plain, Text: " "})
		}
		runs = append(runs, lr...)
	}
	return Block{
		Kind:       kind,
		SourceLine: sourceLine,
		Text:       strings.Join(lines, " "),
		Runs:       mergePlain(runs),
		Lines:      append([]string(nil), lines...),
		LineRuns:   append([][]markup.Run(nil), lineRuns...),
		Indent:     first,
		Margin:     margin,
	}
}

func mergePlain(runs []markup.Run) []markup.Run {
	out := make([]markup.Run, 0, len(runs))
	for _, r := range runs {
		if n := len(out); n > 0 && r.Style == markup.Plain && out[n-1].Style == markup.Plain {
			out[n-1].Text += r.Text
			continue
		}
		out = append(out, r)
	}
	return out
}
