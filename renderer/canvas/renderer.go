package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"go.uber.org/zap"

	"github.com/ByLCY/folio/fonts"
	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/markup"
	"github.com/ByLCY/folio/renderer"
)

// 以下长度单位均为 mm（canvas 的默认单位）。
const (
	tableBorderWidth = 0.2
	tableRowHeight   = 8.0
	tablePadding     = 5.0
	bulletIndent     = 5.0
	captionHeight    = 15.0
	underlineOffset  = 0.6
	// maxImagePixels 限制嵌入图片的最长边，避免预览 PDF 过大。
	maxImagePixels = 1600
)

var textColor = canvas.Hex("#1e1e1e")

// Renderer draws paginated blocks to a PDF preview via github.com/tdewolff/canvas.
type Renderer struct {
	opts     Options
	settings layout.Settings
	log      *zap.Logger

	// injected resources
	fontBlobs  map[string][]byte // by style name
	imageBlobs map[string][]byte // by unique name

	fontMu   sync.Mutex
	families map[string]*canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	// BaseDir resolves relative figure paths.
	BaseDir  string
	Settings layout.Settings
	// Fonts are keyed by fonts.Regular, fonts.Bold, fonts.Italic and
	// fonts.BoldItalic; missing styles fall back to the embedded faces.
	Fonts map[string]Resource
	// Images are accessible via built-in:<name> figure paths.
	Images      map[string]Resource
	Title       string
	Author      string
	PageNumbers bool
	Logger      *zap.Logger
}

// Resource can be provided either by Bytes or by Path.
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer with injected resources.
func NewRenderer(opts Options) *Renderer {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{
		opts:       opts,
		settings:   opts.Settings,
		log:        log,
		fontBlobs:  ingest(opts.Fonts),
		imageBlobs: ingest(opts.Images),
		families:   map[string]*canvas.FontFamily{},
	}
}

func ingest(resources map[string]Resource) map[string][]byte {
	blobs := map[string][]byte{}
	for name, res := range resources {
		if name == "" {
			continue
		}
		if len(res.Bytes) > 0 {
			blobs[name] = res.Bytes
			continue
		}
		if res.Path != "" {
			data, _ := os.ReadFile(res.Path) // ignore error here; will be caught when actually used
			if len(data) > 0 {
				blobs[name] = data
			}
		}
	}
	return blobs
}

// Render renders the result into a PDF byte slice.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	width, height := result.Geometry.Paper.Width*10, result.Geometry.Paper.Height*10
	var buf bytes.Buffer
	writer := pdf.New(&buf, width, height, nil)
	writer.SetInfo(r.opts.Title, "", "", r.opts.Author, "folio")
	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(width, height)
		}
		c := canvas.New(width, height)
		ctx := canvas.NewContext(c)
		ctx.SetCoordSystem(canvas.CartesianIV) // 左上角为原点，y 向下

		if err := r.drawPage(ctx, page, result.Geometry); err != nil {
			return nil, fmt.Errorf("绘制第 %d 页失败: %w", i+1, err)
		}
		if r.opts.PageNumbers {
			if err := r.drawPageNumber(ctx, i+1, width, height); err != nil {
				return nil, err
			}
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// frame 是页面内容区（mm）。
type frame struct {
	x, width   float64
	lineHeight float64
}

func (r *Renderer) contentFrame(g layout.Geometry) frame {
	s := r.settings
	return frame{
		x:          s.MarginLeft * 10,
		width:      (g.Paper.Width - s.MarginLeft - s.MarginRight) * 10,
		lineHeight: g.LineHeight * 10,
	}
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, g layout.Geometry) error {
	f := r.contentFrame(g)
	y := r.settings.MarginTop * 10
	for _, b := range page.Blocks {
		if err := r.drawBlock(ctx, b, f, y); err != nil {
			return err
		}
		y += b.Height * 10
	}
	return nil
}

func (r *Renderer) drawBlock(ctx *canvas.Context, b layout.Block, f frame, y float64) error {
	body := r.settings.FontSize
	switch b.Kind {
	case layout.KindHeading:
		return r.drawHeading(ctx, b, f, y)
	case layout.KindParagraph, layout.KindParagraphContinuation:
		for i := range max(len(b.Lines), 1) {
			line, err := r.paragraphLine(b, i, f)
			if err != nil {
				return err
			}
			if err := r.drawRuns(ctx, line.runs, line.x, y+float64(i)*f.lineHeight, f.lineHeight, line.sizePt); err != nil {
				return err
			}
		}
		return nil
	case layout.KindBulletItem:
		x := f.x + float64(max(b.Level-1, 0))*bulletIndent
		marker := []markup.Run{{Style: markup.Plain, Text: bulletMarker(b.Level)}}
		if err := r.drawRuns(ctx, marker, x, y, f.lineHeight, body); err != nil {
			return err
		}
		return r.drawRuns(ctx, b.Runs, x+bulletIndent, y, f.lineHeight, body)
	case layout.KindTableCaption:
		return r.drawCentered(ctx, markup.PlainText(b.Text), fonts.Bold, body, f, y, b.Height*10)
	case layout.KindTable:
		return r.drawTable(ctx, b, f, y)
	case layout.KindFigure:
		return r.drawFigure(ctx, b, f, y)
	default:
		return nil
	}
}

func (r *Renderer) drawHeading(ctx *canvas.Context, b layout.Block, f frame, y float64) error {
	size := headingSize(r.settings, b.Level)
	lines := []string{b.Text}
	if b.Split && b.Number != "" {
		lines = []string{b.Number, b.Title}
	}
	lineH := size * layout.PtToCm * 1.5 * 10
	top := y + math.Max(b.Height*10-lineH*float64(len(lines)), 0)/2
	for i, line := range lines {
		ly := top + float64(i)*lineH
		if b.Level == 1 {
			if err := r.drawCentered(ctx, line, fonts.Bold, size, f, ly, lineH); err != nil {
				return err
			}
			continue
		}
		run := []markup.Run{{Style: markup.Bold, Text: line}}
		if err := r.drawRuns(ctx, run, f.x, ly, lineH, size); err != nil {
			return err
		}
	}
	return nil
}

func headingSize(s layout.Settings, level int) float64 {
	switch level {
	case 1:
		return s.H1Size
	case 2:
		return s.H2Size
	case 3:
		return s.H3Size
	default:
		return s.FontSize
	}
}

func bulletMarker(level int) string {
	switch level {
	case 2:
		return "◦"
	case 3:
		return "▪"
	default:
		return "•"
	}
}

// drawRuns 在一行内依次绘制带样式的文本片段。top 为行顶部，lineH 为行高。
func (r *Renderer) drawRuns(ctx *canvas.Context, runs []markup.Run, x, top, lineH, sizePt float64) error {
	cursor := x
	for _, run := range runs {
		if run.Text == "" {
			continue
		}
		face, err := r.fontFace(runStyle(run.Style), sizePt)
		if err != nil {
			return err
		}
		baseline := baselineFor(face, top, lineH)
		ctx.DrawText(cursor, baseline, canvas.NewTextLine(face, run.Text, canvas.Left))
		w := face.TextWidth(run.Text)
		if run.Style == markup.Underline {
			r.drawUnderline(ctx, cursor, baseline+underlineOffset, w)
		}
		cursor += w
	}
	return nil
}

func runStyle(s markup.Style) string {
	return fonts.StyleName(s == markup.Bold, s == markup.Italic || s == markup.InlineMath || s == markup.DisplayMath)
}

// textLine 是段落中一行的绘制参数。
type textLine struct {
	runs   []markup.Run
	x      float64
	sizePt float64
	// width 为按 sizePt 绘制后的宽度（mm）。
	width float64
}

// paragraphLine 取出片段第 i 行的样式片段。按正文字号绘制仍超出内容区的
// 行（测量字体与绘制字体不一致，或含粗体）会等比缩小字号。
func (r *Renderer) paragraphLine(b layout.Block, i int, f frame) (textLine, error) {
	var runs []markup.Run
	switch {
	case i < len(b.LineRuns):
		runs = b.LineRuns[i]
	case i < len(b.Lines):
		runs = markup.Parse(b.Lines[i])
	default:
		runs = markup.Parse(b.Text)
	}
	line := textLine{runs: runs, x: f.x, sizePt: r.settings.FontSize}
	avail := f.width
	// 缩进不小于内容宽度时首行按整行宽度折行，这里同样不缩进
	if indent := r.settings.Indent * 10; i == 0 && b.Indent && indent < f.width {
		line.x += indent
		avail -= indent
	}
	w, err := r.runsWidth(runs, line.sizePt)
	if err != nil {
		return textLine{}, err
	}
	if w > avail && w > 0 {
		// 宽度与字号成正比，留一点余量抵消浮点误差
		line.sizePt *= avail / w * (1 - 1e-6)
		if w, err = r.runsWidth(runs, line.sizePt); err != nil {
			return textLine{}, err
		}
	}
	line.width = w
	return line, nil
}

func (r *Renderer) runsWidth(runs []markup.Run, sizePt float64) (float64, error) {
	total := 0.0
	for _, run := range runs {
		if run.Text == "" {
			continue
		}
		face, err := r.fontFace(runStyle(run.Style), sizePt)
		if err != nil {
			return 0, err
		}
		total += face.TextWidth(run.Text)
	}
	return total, nil
}

func baselineFor(face *canvas.FontFace, top, lineH float64) float64 {
	m := face.Metrics()
	return top + math.Max(lineH-m.LineHeight, 0)/2 + m.Ascent
}

func (r *Renderer) drawUnderline(ctx *canvas.Context, x, y, w float64) {
	ctx.SetStrokeColor(textColor)
	ctx.SetStrokeWidth(tableBorderWidth)
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(w, 0)
	ctx.DrawPath(x, y, p)
}

func (r *Renderer) drawCentered(ctx *canvas.Context, text, style string, sizePt float64, f frame, top, lineH float64) error {
	face, err := r.fontFace(style, sizePt)
	if err != nil {
		return err
	}
	ctx.DrawText(f.x+f.width/2, baselineFor(face, top, lineH), canvas.NewTextLine(face, text, canvas.Center))
	return nil
}

func (r *Renderer) drawTable(ctx *canvas.Context, b layout.Block, f frame, y float64) error {
	rows := make([][]string, 0, len(b.Rows)+1)
	rows = append(rows, b.Header)
	rows = append(rows, b.Rows...)
	widths := columnWidths(rows, f.width)
	if len(widths) == 0 {
		return nil
	}
	size := r.settings.FontSize
	rowY := y + tablePadding/2
	for i, row := range rows {
		x := f.x
		for idx, colWidth := range widths {
			var fill color.Color = canvas.White
			style := fonts.Regular
			if i == 0 {
				fill = canvas.Hex("#f0f0f0")
				style = fonts.Bold
			}
			ctx.SetFillColor(fill)
			ctx.SetStrokeColor(textColor)
			ctx.SetStrokeWidth(tableBorderWidth)
			ctx.DrawPath(x, rowY, canvas.Rectangle(colWidth, tableRowHeight))
			if idx < len(row) {
				face, err := r.fontFace(style, size)
				if err != nil {
					return err
				}
				ctx.DrawText(x+1, baselineFor(face, rowY, tableRowHeight), canvas.NewTextLine(face, markup.PlainText(row[idx]), canvas.Left))
			}
			x += colWidth
		}
		rowY += tableRowHeight
	}
	return nil
}

// columnWidths 平均分配列宽，列数取最宽的一行。
func columnWidths(rows [][]string, width float64) []float64 {
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}
	if cols == 0 || width <= 0 {
		return nil
	}
	widths := make([]float64, cols)
	for i := range widths {
		widths[i] = width / float64(cols)
	}
	return widths
}

func (r *Renderer) drawFigure(ctx *canvas.Context, b layout.Block, f frame, y float64) error {
	boxH := math.Max(b.Height*10-captionHeight, 0)
	boxW := f.width
	if b.Figure != nil && b.Figure.Width > 0 {
		boxW = math.Min(boxW, b.Figure.Width*10)
	}

	var img image.Image
	placeholder := b.Placeholder
	if placeholder == "" {
		var err error
		img, err = r.loadImage(b.Figure)
		if err != nil {
			r.log.Warn("Unable to load figure image, drawing placeholder", zap.String("ref", b.FigureRef), zap.Error(err))
			placeholder = layout.FigurePlaceholder
		}
	}

	if img != nil && boxH > 0 {
		px, py := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
		dpmm := math.Max(px/boxW, py/boxH)
		if dpmm <= 0 {
			dpmm = 1
		}
		drawnW := px / dpmm
		ctx.DrawImage(f.x+(f.width-drawnW)/2, y, img, canvas.DPMM(dpmm))
	} else {
		ctx.SetFillColor(canvas.Hex("#eeeeee"))
		ctx.SetStrokeColor(canvas.Hex("#999999"))
		ctx.SetStrokeWidth(tableBorderWidth)
		ctx.DrawPath(f.x+(f.width-boxW)/2, y, canvas.Rectangle(boxW, boxH))
		if err := r.drawCentered(ctx, placeholder, fonts.Italic, r.settings.FontSize, f, y+boxH/2-f.lineHeight/2, f.lineHeight); err != nil {
			return err
		}
	}
	return r.drawCentered(ctx, figureCaption(b), fonts.Italic, r.settings.FontSize, f, y+boxH, captionHeight)
}

func figureCaption(b layout.Block) string {
	if b.Caption == "" {
		return b.FigureRef
	}
	return b.FigureRef + ": " + b.Caption
}

// loadImage 读取图片并在过大时缩小。
func (r *Renderer) loadImage(fig *layout.Figure) (image.Image, error) {
	if fig == nil || fig.Path == "" {
		return nil, fmt.Errorf("图片缺少存储路径")
	}
	var (
		img image.Image
		err error
	)
	if name, ok := builtinName(fig.Path); ok {
		blob, found := r.imageBlobs[name]
		if !found {
			return nil, fmt.Errorf("找不到内置图片资源 built-in:%s", name)
		}
		img, err = imaging.Decode(bytes.NewReader(blob), imaging.AutoOrientation(true))
	} else {
		path := fig.Path
		if !filepath.IsAbs(path) {
			if r.opts.BaseDir == "" {
				return nil, fmt.Errorf("未指定资源目录时不允许使用相对路径：%s", fig.Path)
			}
			path = filepath.Join(r.opts.BaseDir, path)
		}
		img, err = imaging.Open(path, imaging.AutoOrientation(true))
	}
	if err != nil {
		return nil, fmt.Errorf("解码图片 %s 失败: %w", fig.Path, err)
	}
	if b := img.Bounds(); b.Dx() > maxImagePixels || b.Dy() > maxImagePixels {
		img = imaging.Fit(img, maxImagePixels, maxImagePixels, imaging.Lanczos)
	}
	return img, nil
}

func builtinName(path string) (string, bool) {
	for _, prefix := range []string{"built-in:", "builtin:"} {
		if strings.HasPrefix(path, prefix) {
			return strings.TrimPrefix(path, prefix), true
		}
	}
	return "", false
}

func (r *Renderer) drawPageNumber(ctx *canvas.Context, n int, width, height float64) error {
	face, err := r.fontFace(fonts.Regular, r.settings.FontSize-2)
	if err != nil {
		return err
	}
	y := height - r.settings.MarginBottom*10/2
	ctx.DrawText(width/2, y, canvas.NewTextLine(face, strconv.Itoa(n), canvas.Center))
	return nil
}

func (r *Renderer) fontFace(style string, sizePt float64) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily(style)
	if err != nil {
		return nil, err
	}
	return family.Face(sizePt, textColor, canvas.FontRegular, canvas.FontNormal), nil
}

// ensureFontFamily 为每种样式加载一个字体族；注入字体加载失败时退回内置字体。
func (r *Renderer) ensureFontFamily(style string) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.families[style]; ok {
		return family, nil
	}
	family := canvas.NewFontFamily("folio-" + style)
	var err error
	if blob, ok := r.fontBlobs[style]; ok {
		if err = family.LoadFont(blob, 0, canvas.FontRegular); err == nil {
			r.families[style] = family
			return family, nil
		}
		r.log.Warn("Injected font failed to load, using embedded face", zap.String("style", style), zap.Error(err))
		family = canvas.NewFontFamily("folio-" + style)
	}
	data, err := fonts.Load(style)
	if err != nil {
		return nil, err
	}
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("加载内置字体 %s 失败: %w", style, err)
	}
	r.families[style] = family
	return family, nil
}
