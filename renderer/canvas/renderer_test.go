package canvasrenderer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ByLCY/folio/fonts"
	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/markup"
	"github.com/ByLCY/folio/measure"
)

var lenMeasurer = layout.MeasureFunc(func(text, fontFamily string, fontSizePx float64) float64 {
	return float64(len([]rune(text))) * fontSizePx * 0.5
})

func buildResult(t *testing.T, content string, figures []layout.Figure) *layout.Result {
	t.Helper()
	res, err := layout.Build(content, figures, layout.BuildOptions{
		Settings: layout.DefaultSettings(),
		Measurer: lenMeasurer,
	})
	if err != nil {
		t.Fatalf("排版失败: %v", err)
	}
	return res
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestRenderProducesPDF(t *testing.T) {
	doc := "# Mở đầu\nĐây là **đoạn** văn có *nghiêng*, <u>gạch chân</u> và $x^2$.\n" +
		"- mục một\n-- mục hai\n\nBảng 1.1: Số liệu\n| A | B |\n|---|---|\n| 1 | 2 |\n" +
		"## Mục tiếp\n[Hình 1.1: Chưa có ảnh]"
	res := buildResult(t, doc, nil)
	r := NewRenderer(Options{Settings: layout.DefaultSettings(), Title: "Luận văn", PageNumbers: true})
	data, err := r.Render(res)
	if err != nil {
		t.Fatalf("渲染失败: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("输出不是 PDF")
	}
}

func TestRenderWithImage(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "fig.png"), 2400, 1200)
	figures := []layout.Figure{{ID: 1, Number: "Hình 1.1", Path: "fig.png", URL: "/uploads/fig.png", Width: 12}}
	res := buildResult(t, "[Hình 1.1: Có ảnh]", figures)

	r := NewRenderer(Options{BaseDir: dir, Settings: layout.DefaultSettings()})
	if _, err := r.Render(res); err != nil {
		t.Fatalf("带图片渲染失败: %v", err)
	}
	img, err := r.loadImage(&figures[0])
	if err != nil {
		t.Fatalf("加载图片失败: %v", err)
	}
	if b := img.Bounds(); b.Dx() > maxImagePixels || b.Dy() > maxImagePixels {
		t.Fatalf("大图应被缩小，得到 %dx%d", b.Dx(), b.Dy())
	}
}

func TestRenderMissingImageFallsBack(t *testing.T) {
	figures := []layout.Figure{{ID: 1, Number: "Hình 1.1", Path: "missing.png", URL: "/uploads/missing.png"}}
	res := buildResult(t, "[Hình 1.1: Mất ảnh]", figures)
	r := NewRenderer(Options{BaseDir: t.TempDir(), Settings: layout.DefaultSettings()})
	if _, err := r.Render(res); err != nil {
		t.Fatalf("图片缺失时应绘制占位而不是失败: %v", err)
	}
}

func TestRenderBuiltinImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 30))); err != nil {
		t.Fatal(err)
	}
	r := NewRenderer(Options{Images: map[string]Resource{"logo": {Bytes: buf.Bytes()}}})
	img, err := r.loadImage(&layout.Figure{Path: "built-in:logo"})
	if err != nil || img.Bounds().Dx() != 40 {
		t.Fatalf("内置图片加载失败: %v", err)
	}
	if _, err := r.loadImage(&layout.Figure{Path: "built-in:none"}); err == nil {
		t.Fatalf("缺失的内置图片应返回错误")
	}
	if _, err := r.loadImage(&layout.Figure{Path: "relative.png"}); err == nil {
		t.Fatalf("未指定资源目录时相对路径应返回错误")
	}
}

func TestRenderRejectsEmpty(t *testing.T) {
	r := NewRenderer(Options{Settings: layout.DefaultSettings()})
	if _, err := r.Render(nil); err == nil {
		t.Fatalf("空结果应返回错误")
	}
	if _, err := r.Render(&layout.Result{}); err == nil {
		t.Fatalf("没有页面时应返回错误")
	}
}

func TestInjectedFontFallsBack(t *testing.T) {
	r := NewRenderer(Options{
		Settings: layout.DefaultSettings(),
		Fonts:    map[string]Resource{fonts.Bold: {Bytes: []byte("not a font")}},
	})
	if _, err := r.fontFace(fonts.Bold, 12); err != nil {
		t.Fatalf("注入字体损坏时应退回内置字体: %v", err)
	}
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths([][]string{{"a", "b"}, {"1", "2", "3"}}, 150)
	if len(widths) != 3 || widths[0] != 50 {
		t.Fatalf("列宽错误: %v", widths)
	}
	if columnWidths(nil, 100) != nil {
		t.Fatalf("空表格不应有列")
	}
}

func paragraphBlocks(res *layout.Result) []layout.Block {
	var out []layout.Block
	for _, p := range res.Pages {
		for _, b := range p.Blocks {
			if b.Kind == layout.KindParagraph || b.Kind == layout.KindParagraphContinuation {
				out = append(out, b)
			}
		}
	}
	return out
}

func longParagraph() string {
	return strings.Repeat("Luận văn trình bày **phương pháp phân trang** cho bản xem trước với *độ chính xác* cao. ", 12)
}

func TestLinesFitFrameWithMatchingMeasurer(t *testing.T) {
	regular, err := fonts.Load(fonts.Regular)
	if err != nil {
		t.Fatal(err)
	}
	m, err := measure.NewCanvas(regular)
	if err != nil {
		t.Fatal(err)
	}
	s := layout.DefaultSettings()
	res, err := layout.Build(strings.ReplaceAll(longParagraph(), "*", ""), nil, layout.BuildOptions{Settings: s, Measurer: m})
	if err != nil {
		t.Fatal(err)
	}
	r := NewRenderer(Options{Settings: s})
	f := r.contentFrame(res.Geometry)
	lines := 0
	for _, b := range paragraphBlocks(res) {
		for i := range b.Lines {
			line, err := r.paragraphLine(b, i, f)
			if err != nil {
				t.Fatal(err)
			}
			if line.sizePt != s.FontSize {
				t.Fatalf("line %q should not need shrinking, size %g", b.Lines[i], line.sizePt)
			}
			if line.x+line.width > f.x+f.width+1e-6 {
				t.Fatalf("line %q drawn %gmm past the right margin", b.Lines[i], line.x+line.width-f.x-f.width)
			}
			lines++
		}
	}
	if lines < 5 {
		t.Fatalf("expected a wrapped paragraph, got %d lines", lines)
	}
}

func TestLinesShrinkWhenMetricsDiffer(t *testing.T) {
	core, err := measure.NewCore()
	if err != nil {
		t.Fatal(err)
	}
	s := layout.DefaultSettings()
	res, err := layout.Build(longParagraph(), nil, layout.BuildOptions{Settings: s, Measurer: core})
	if err != nil {
		t.Fatal(err)
	}
	r := NewRenderer(Options{Settings: s})
	f := r.contentFrame(res.Geometry)
	for _, b := range paragraphBlocks(res) {
		for i := range b.Lines {
			line, err := r.paragraphLine(b, i, f)
			if err != nil {
				t.Fatal(err)
			}
			if line.x+line.width > f.x+f.width+1e-6 {
				t.Fatalf("line %q overflows by %gmm", b.Lines[i], line.x+line.width-f.x-f.width)
			}
		}
	}
	if _, err := r.Render(res); err != nil {
		t.Fatalf("render: %v", err)
	}
}

func TestParagraphLineKeepsStyleAcrossWrap(t *testing.T) {
	b := layout.Block{
		Kind:  layout.KindParagraphContinuation,
		Lines: []string{"tiếp** theo"},
		LineRuns: [][]markup.Run{{
			{Style: markup.Bold, Text: "tiếp"},
			{Style: markup.Plain, Text: " theo"},
		}},
	}
	r := NewRenderer(Options{Settings: layout.DefaultSettings()})
	line, err := r.paragraphLine(b, 0, frame{x: 10, width: 150})
	if err != nil {
		t.Fatal(err)
	}
	if len(line.runs) != 2 || line.runs[0].Style != markup.Bold || line.runs[0].Text != "tiếp" {
		t.Fatalf("bold run lost at wrap: %+v", line.runs)
	}
	if line.x != 10 {
		t.Fatalf("continuation must not be indented, x=%g", line.x)
	}
}

func TestRunStyle(t *testing.T) {
	cases := map[markup.Style]string{
		markup.Plain:       fonts.Regular,
		markup.Bold:        fonts.Bold,
		markup.Italic:      fonts.Italic,
		markup.InlineMath:  fonts.Italic,
		markup.DisplayMath: fonts.Italic,
	}
	for style, want := range cases {
		if got := runStyle(style); got != want {
			t.Errorf("runStyle(%v) = %q, want %q", style, got, want)
		}
	}
}
