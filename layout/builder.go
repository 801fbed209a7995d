package layout

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ByLCY/folio/markup"
)

const (
	tableRowHeight      = 0.8
	tablePadding        = 1.0
	tableCaptionHeight  = 1.0
	degradedMeasurement = "没有可用的文本测量后端，段落按整段一行估算"
)

// Build 把文档文本分页。只有设置非法时返回错误；其余异常输入都按约定降级。
func Build(content string, figures []Figure, opts BuildOptions) (*Result, error) {
	if err := opts.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("排版参数非法: %w", err)
	}
	s := newSession(figures, opts)
	if opts.Measurer == nil {
		s.result.Degraded = true
		s.result.Warnings = append(s.result.Warnings, degradedMeasurement)
		s.log.Warn("Text measurement unavailable, paragraphs are not wrapped")
	}

	c := newClassifier(opts.Settings)
	for i, line := range splitLines(content) {
		for _, sb := range c.feed(line, i) {
			s.place(sb)
		}
	}
	for _, sb := range c.finish() {
		s.place(sb)
	}

	s.result.Pages = s.acc.Pages()
	s.log.Debug("Pagination finished", zap.Int("pages", len(s.result.Pages)))
	return s.result, nil
}

// session 持有一次渲染的全部可变状态，保证 Build 可重入。
type session struct {
	settings  Settings
	geometry  Geometry
	figures   []Figure
	acc       *PageAccumulator
	numberer  *HeadingNumberer
	paragraph *paragraphPaginator
	log       *zap.Logger
	result    *Result
}

func newSession(figures []Figure, opts BuildOptions) *session {
	g := opts.Settings.Geometry()
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	acc := NewPageAccumulator(g.PageCapacity)
	return &session{
		settings: opts.Settings,
		geometry: g,
		figures:  figures,
		acc:      acc,
		numberer: NewHeadingNumberer(opts.Settings),
		paragraph: &paragraphPaginator{
			acc: acc,
			wrapper: LineWrapper{
				Measurer:   opts.Measurer,
				FontFamily: opts.Settings.FontFamily,
				FontSizePx: g.FontSizePx,
			},
			lineHeight:   g.LineHeight,
			contentWidth: g.ContentWidthPx,
			indent:       g.IndentPx,
			density:      opts.Settings.Density(),
		},
		log:    log,
		result: &Result{Geometry: g},
	}
}

// place 计算块高度并交给累加器；段落走分段逻辑。
func (s *session) place(sb SourceBlock) {
	switch sb.Kind {
	case KindTable:
		s.add(Block{
			Kind:       KindTable,
			SourceLine: sb.Line,
			Header:     sb.Header,
			Rows:       sb.Rows,
		}, float64(sb.RowLines)*tableRowHeight+tablePadding, false)
	case KindHeading:
		h := s.numberer.Next(sb.Level, sb.Text)
		force := h.Level == 1 && s.numberer.Counter(1) > 1
		s.add(Block{
			Kind:       KindHeading,
			SourceLine: sb.Line,
			Level:      h.Level,
			Number:     h.Number,
			Title:      h.Title,
			Split:      h.Split,
			Text:       h.Text(),
		}, s.numberer.Height(h), force)
	case KindFigure:
		s.placeFigure(sb)
	case KindTableCaption:
		s.add(Block{
			Kind:       KindTableCaption,
			SourceLine: sb.Line,
			Text:       sb.Text,
			Runs:       markup.Parse(sb.Text),
		}, tableCaptionHeight, false)
	case KindBulletItem:
		s.add(Block{
			Kind:       KindBulletItem,
			SourceLine: sb.Line,
			Level:      sb.Level,
			Text:       sb.Text,
			Runs:       markup.Parse(sb.Text),
		}, s.geometry.LineHeight, false)
	case KindBlank:
		s.add(Block{Kind: KindBlank, SourceLine: sb.Line}, s.geometry.LineHeight, false)
	default:
		s.paragraph.paginate(sb.Text, sb.Line)
	}
}

func (s *session) add(b Block, height float64, force bool) {
	if height > s.acc.Capacity() {
		s.log.Debug("Block taller than page, placing it alone",
			zap.Stringer("kind", b.Kind), zap.Int("line", b.SourceLine), zap.Float64("height", height))
	}
	s.acc.AddBlock(b, height, force)
}

func (s *session) placeFigure(sb SourceBlock) {
	b := Block{
		Kind:       KindFigure,
		SourceLine: sb.Line,
		FigureRef:  sb.FigureRef,
		Caption:    sb.Caption,
	}
	fig, ok := ResolveFigure(s.figures, sb.FigureRef)
	if ok {
		b.Figure = &fig
	} else {
		s.log.Debug("Figure reference not found in registry", zap.String("ref", sb.FigureRef), zap.Int("line", sb.Line))
	}
	if !ok || fig.URL == "" {
		b.Placeholder = FigurePlaceholder
	}
	s.add(b, figureHeight(b.Figure), false)
}
