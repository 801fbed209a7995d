package layout

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/ByLCY/folio/markup"
)

// words 生成 n 个三字符单词；在宽度 5 的内容区里每个单词独占一行。
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%02d", i)
	}
	return strings.Join(parts, " ")
}

func newTestPaginator(capacity float64) *paragraphPaginator {
	return &paragraphPaginator{
		acc:          NewPageAccumulator(capacity),
		wrapper:      LineWrapper{Measurer: charMeasurer{}},
		lineHeight:   1,
		contentWidth: 5,
		density:      1,
	}
}

func paragraphLines(pages []Page) []string {
	var out []string
	for _, p := range pages {
		for _, b := range p.Blocks {
			if b.Kind == KindParagraph || b.Kind == KindParagraphContinuation {
				out = append(out, b.Lines...)
			}
		}
	}
	return out
}

func TestParagraphFitGuard(t *testing.T) {
	cases := []struct {
		name       string
		prefill    float64
		lines      int
		pages      int
		lastMargin bool
		open       bool // 段落结束后当前页是否仍可继续放块
	}{
		{"空页完整放下", 0, 3, 1, true, true},
		{"行放满但间距放不下", 0, 5, 1, false, false},
		{"剩余恰好一行", 4, 1, 1, false, false},
		{"剩余不足一行先换页", 4.5, 1, 2, true, true},
		{"跨页续段带间距", 4, 3, 2, true, true},
		{"跨多页", 0, 12, 3, true, true},
		// 剩余 4.3：4 行加间距正好等于剩余高度，落在 ε 容差带内
		{"容差带内留在本页不带间距", 0.7, 4, 1, false, false},
		{"容差带之外带间距", 0.68, 4, 1, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newTestPaginator(5)
			if tc.prefill > 0 {
				p.acc.Append(Block{Kind: KindBlank}, tc.prefill)
			}
			text := words(tc.lines)
			p.paginate(text, 7)
			open := !p.acc.Empty()
			pages := p.acc.Pages()
			if len(pages) != tc.pages {
				t.Fatalf("期望 %d 页，得到 %d", tc.pages, len(pages))
			}
			last := pages[len(pages)-1].Blocks
			b := last[len(last)-1]
			if b.Margin != tc.lastMargin {
				t.Fatalf("最后片段 Margin=%v，期望 %v", b.Margin, tc.lastMargin)
			}
			if open != tc.open {
				t.Fatalf("段落后页面开放=%v，期望 %v", open, tc.open)
			}
			want := float64(len(b.Lines)) * p.lineHeight
			if b.Margin {
				want += paragraphMarginBottom
			}
			if math.Abs(b.Height-want) > 1e-9 {
				t.Fatalf("片段高度 %g，期望 %g", b.Height, want)
			}
			if got := paragraphLines(pages); !reflect.DeepEqual(got, strings.Fields(text)) {
				t.Fatalf("拼接片段得到 %q", got)
			}
			for _, pg := range pages {
				if pg.Height() > 5+1e-9 {
					t.Fatalf("页面高度 %g 超出容量", pg.Height())
				}
			}
		})
	}
}

func TestParagraphIndentOnlyOnFirstFragment(t *testing.T) {
	p := newTestPaginator(5)
	p.indent = 1
	p.paginate(words(11), 3)
	pages := p.acc.Pages()
	var frags []Block
	for _, pg := range pages {
		frags = append(frags, pg.Blocks...)
	}
	if len(frags) < 3 {
		t.Fatalf("期望至少 3 个片段，得到 %d", len(frags))
	}
	for i, b := range frags {
		if b.SourceLine != 3 {
			t.Fatalf("片段 %d 源行号 %d", i, b.SourceLine)
		}
		if i == 0 {
			if b.Kind != KindParagraph || !b.Indent {
				t.Fatalf("首片段应为带缩进的段落: %+v", b)
			}
			continue
		}
		if b.Kind != KindParagraphContinuation || b.Indent {
			t.Fatalf("片段 %d 应为无缩进续段: %+v", i, b)
		}
	}
}

func TestParagraphLineTallerThanPage(t *testing.T) {
	p := newTestPaginator(0.5)
	p.paginate(words(3), 0)
	pages := p.acc.Pages()
	if len(pages) != 3 {
		t.Fatalf("每行应独占一页，得到 %d 页", len(pages))
	}
	for i, pg := range pages {
		if len(pg.Blocks) != 1 || len(pg.Blocks[0].Lines) != 1 {
			t.Fatalf("第 %d 页应只有一行", i+1)
		}
	}
}

// TestParagraphReconstruction 在不同的剩余高度下检查片段能还原折行结果。
func TestParagraphReconstruction(t *testing.T) {
	text := "Mô hình được huấn luyện trên tập dữ liệu gồm nhiều văn bản tiếng Việt được thu thập từ các nguồn khác nhau trong nhiều năm"
	for _, prefill := range []float64{0, 0.7, 1.5, 2.2, 3.9, 4.6} {
		p := &paragraphPaginator{
			acc:          NewPageAccumulator(4),
			wrapper:      LineWrapper{Measurer: charMeasurer{}},
			lineHeight:   0.9,
			contentWidth: 20,
			indent:       4,
			density:      1.05,
		}
		want := p.wrapper.Wrap(text, 16, 20, 1.05)
		if prefill > 0 {
			p.acc.Append(Block{Kind: KindBlank}, prefill)
		}
		p.paginate(text, 0)
		if got := paragraphLines(p.acc.Pages()); !reflect.DeepEqual(got, want) {
			t.Fatalf("prefill=%g: 片段行 %q 与折行 %q 不一致", prefill, got, want)
		}
	}
}

func TestParagraphFragmentRuns(t *testing.T) {
	p := newTestPaginator(5)
	p.contentWidth = 100
	p.paginate("mở **đầu** và *kết*", 0)
	b := p.acc.Pages()[0].Blocks[0]
	if len(b.Runs) != 4 {
		t.Fatalf("期望 4 个文本片段，得到 %d: %+v", len(b.Runs), b.Runs)
	}
}

func TestParagraphSpanAcrossWrapAndPage(t *testing.T) {
	p := newTestPaginator(3)
	p.paginate("a **b c d** e", 0)
	pages := p.acc.Pages()
	if len(pages) != 2 {
		t.Fatalf("期望 2 页，得到 %d", len(pages))
	}
	bold := func(s string) []markup.Run { return []markup.Run{{Style: markup.Bold, Text: s}} }
	plain := func(s string) []markup.Run { return []markup.Run{{Style: markup.Plain, Text: s}} }

	first, second := pages[0].Blocks[0], pages[1].Blocks[0]
	if want := [][]markup.Run{plain("a"), bold("b"), bold("c")}; !reflect.DeepEqual(first.LineRuns, want) {
		t.Fatalf("第一页逐行片段 %+v", first.LineRuns)
	}
	if want := [][]markup.Run{bold("d"), plain("e")}; !reflect.DeepEqual(second.LineRuns, want) {
		t.Fatalf("续段逐行片段 %+v", second.LineRuns)
	}
	if len(first.LineRuns) != len(first.Lines) || len(second.LineRuns) != len(second.Lines) {
		t.Fatalf("LineRuns 应与 Lines 一一对应")
	}
	wantRuns := []markup.Run{
		{Style: markup.Plain, Text: "a "},
		{Style: markup.Bold, Text: "b"},
		{Style: markup.Plain, Text: " "},
		{Style: markup.Bold, Text: "c"},
	}
	if !reflect.DeepEqual(first.Runs, wantRuns) {
		t.Fatalf("片段样式 %+v", first.Runs)
	}
}
