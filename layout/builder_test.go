package layout

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// wideMeasurer 让任意两个单词都放不进一行，便于精确控制段落行数。
var wideMeasurer = MeasureFunc(func(text, fontFamily string, fontSizePx float64) float64 {
	return float64(len(text)) * 1000
})

func buildDoc(t *testing.T, content string, s Settings, figures []Figure, m TextMeasurer) *Result {
	t.Helper()
	res, err := Build(content, figures, BuildOptions{Settings: s, Measurer: m})
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	return res
}

func TestBuildParagraphExactlyFillsPage(t *testing.T) {
	s := DefaultSettings()
	lh := s.Geometry().LineHeight
	const n = 10
	paper, _ := LookupPaperSize(s.PaperSize)
	s.MarginBottom = paper.Height - s.MarginTop - (n*lh + paragraphMarginBottom)

	res := buildDoc(t, words(n)+"\n"+words(3), s, nil, wideMeasurer)
	if len(res.Pages) != 2 {
		t.Fatalf("期望 2 页，得到 %d", len(res.Pages))
	}
	first := res.Pages[0].Blocks
	if len(first) != 1 || first[0].Kind != KindParagraph || len(first[0].Lines) != n {
		t.Fatalf("第一页应只有完整的第一段: %+v", first)
	}
	second := res.Pages[1].Blocks[0]
	if second.Kind != KindParagraph || !second.Indent || second.SourceLine != 1 {
		t.Fatalf("第二段应在新页开头且带缩进: %+v", second)
	}
	if len(second.Lines) != 3 {
		t.Fatalf("第二段应有 3 行，得到 %d", len(second.Lines))
	}
	for i, p := range res.Pages {
		if p.Height() > res.Geometry.PageCapacity+1e-9 {
			t.Fatalf("第 %d 页高度 %g 超出容量 %g", i+1, p.Height(), res.Geometry.PageCapacity)
		}
	}
}

func TestBuildLongParagraphContinues(t *testing.T) {
	s := DefaultSettings()
	text := words(80)
	res := buildDoc(t, text, s, nil, wideMeasurer)
	if len(res.Pages) < 2 {
		t.Fatalf("80 行的段落应跨页，得到 %d 页", len(res.Pages))
	}
	if got := paragraphLines(res.Pages); !reflect.DeepEqual(got, strings.Fields(text)) {
		t.Fatalf("跨页后行序列不一致")
	}
	for i, p := range res.Pages[1:] {
		if b := p.Blocks[0]; b.Kind != KindParagraphContinuation || b.Indent {
			t.Fatalf("第 %d 页应以无缩进续段开头: %s", i+2, b.Kind)
		}
	}
}

func TestBuildHeadingForcesPageBreak(t *testing.T) {
	doc := "# Mở đầu\nĐoạn một.\n## Mục\n# Tổng quan\nĐoạn hai."
	res := buildDoc(t, doc, DefaultSettings(), nil, wideMeasurer)
	if len(res.Pages) != 2 {
		t.Fatalf("第二个 H1 应强制换页，得到 %d 页", len(res.Pages))
	}
	h := res.Pages[1].Blocks[0]
	if h.Kind != KindHeading || h.Text != "CHƯƠNG II: TỔNG QUAN" || h.SourceLine != 3 {
		t.Fatalf("第二页首块错误: %+v", h)
	}
	if got := res.Pages[0].Blocks[2].Text; got != "1.1. Mục" {
		t.Fatalf("H2 编号错误: %q", got)
	}
}

func TestBuildNumberingIsIdempotent(t *testing.T) {
	doc := "# A\n## B\n### C\n# D\n## E"
	s := DefaultSettings()
	a := buildDoc(t, doc, s, nil, wideMeasurer)
	b := buildDoc(t, doc, s, nil, wideMeasurer)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("同一文档两次排版结果不同")
	}
}

func TestBuildConcurrentRuns(t *testing.T) {
	doc := "# A\n" + words(40) + "\n- x\n\n" + words(15)
	s := DefaultSettings()
	want := buildDoc(t, doc, s, nil, wideMeasurer)

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Build(doc, nil, BuildOptions{Settings: s, Measurer: wideMeasurer})
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if !reflect.DeepEqual(r, want) {
			t.Fatalf("并发排版 %d 结果不一致", i)
		}
	}
}

func TestBuildDegradedWithoutMeasurer(t *testing.T) {
	res := buildDoc(t, words(30)+"\n\n"+words(30), DefaultSettings(), nil, nil)
	if !res.Degraded {
		t.Fatalf("缺少测量后端时应标记降级")
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("降级警告只应出现一次，得到 %d", len(res.Warnings))
	}
	for _, p := range res.Pages {
		for _, b := range p.Blocks {
			if b.Kind == KindParagraph && len(b.Lines) != 1 {
				t.Fatalf("降级模式下段落应为一行，得到 %d", len(b.Lines))
			}
		}
	}
}

func TestBuildFigures(t *testing.T) {
	figures := []Figure{
		{ID: 1, Number: "Hình 1.1", URL: "/uploads/a.png", Width: 12},
		{ID: 2, Number: "Hình 1.2"},
	}
	doc := "[Hình 1.1: Có ảnh]\n[Hình  1.2: Chưa upload]\n[Hình 9.9: Không có]"
	res := buildDoc(t, doc, DefaultSettings(), figures, wideMeasurer)
	var blocks []Block
	for _, p := range res.Pages {
		blocks = append(blocks, p.Blocks...)
	}
	if len(blocks) != 3 {
		t.Fatalf("期望 3 个图片块，得到 %d", len(blocks))
	}
	if blocks[0].Placeholder != "" || blocks[0].Figure == nil || blocks[0].Figure.ID != 1 {
		t.Fatalf("已上传图片应被解析: %+v", blocks[0])
	}
	if math.Abs(blocks[0].Height-(12*0.75+1.5)) > 1e-9 {
		t.Fatalf("图片高度错误: %g", blocks[0].Height)
	}
	if blocks[1].Figure == nil || blocks[1].Placeholder != FigurePlaceholder {
		t.Fatalf("无 URL 的图片应显示占位: %+v", blocks[1])
	}
	if blocks[2].Figure != nil || blocks[2].Placeholder != FigurePlaceholder || blocks[2].Caption != "Không có" {
		t.Fatalf("未登记图片应显示占位: %+v", blocks[2])
	}
}

func TestBuildFixedHeights(t *testing.T) {
	s := DefaultSettings()
	doc := "Bảng 1.1: Số liệu\n| a | b |\n|---|---|\n| 1 | 2 |\n- mục\n"
	res := buildDoc(t, doc, s, nil, wideMeasurer)
	blocks := res.Pages[0].Blocks
	lh := s.Geometry().LineHeight
	want := []struct {
		kind   BlockKind
		height float64
	}{
		{KindTableCaption, 1.0},
		{KindTable, 3*0.8 + 1},
		{KindBulletItem, lh},
		{KindBlank, lh},
	}
	if len(blocks) != len(want) {
		t.Fatalf("期望 %d 个块，得到 %d", len(want), len(blocks))
	}
	for i, w := range want {
		if blocks[i].Kind != w.kind || math.Abs(blocks[i].Height-w.height) > 1e-9 {
			t.Errorf("块 %d 为 %s/%g，期望 %s/%g", i, blocks[i].Kind, blocks[i].Height, w.kind, w.height)
		}
	}
}

func TestBuildOversizedBlockAlone(t *testing.T) {
	s := DefaultSettings()
	figures := []Figure{{Number: "Hình 1.1", URL: "x", Width: 60}}
	res := buildDoc(t, "trước\n[Hình 1.1: lớn]\nsau", s, figures, wideMeasurer)
	if len(res.Pages) != 3 {
		t.Fatalf("超高图片应独占一页，得到 %d 页", len(res.Pages))
	}
	if len(res.Pages[1].Blocks) != 1 || res.Pages[1].Blocks[0].Kind != KindFigure {
		t.Fatalf("第二页应只有图片")
	}
}

func TestBuildInvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.FontSize = 0
	s.MarginTop = -1
	if _, err := Build("x", nil, BuildOptions{Settings: s}); err == nil {
		t.Fatalf("非法设置应返回错误")
	}
}

func TestEncodeDebugJSON(t *testing.T) {
	res := buildDoc(t, "# A\nB <u>c</u>", DefaultSettings(), nil, wideMeasurer)
	var buf bytes.Buffer
	if err := EncodeDebugJSON(&buf, res); err != nil {
		t.Fatalf("编码失败: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"kind": "heading"`, `"kind": "paragraph"`, `"style": "underline"`, "<u>c</u>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("调试 JSON 缺少 %s:\n%s", want, out)
		}
	}
}
