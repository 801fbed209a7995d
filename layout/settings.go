package layout

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Settings 是一次渲染所使用的排版参数，字段名与文档 API 的 JSON 保持一致。
// 长度单位：页边距与缩进为 cm，字号为 pt。
type Settings struct {
	PaperSize     string  `json:"paper_size" yaml:"paper_size"`
	MarginTop     float64 `json:"margin_top" yaml:"margin_top"`
	MarginBottom  float64 `json:"margin_bottom" yaml:"margin_bottom"`
	MarginLeft    float64 `json:"margin_left" yaml:"margin_left"`
	MarginRight   float64 `json:"margin_right" yaml:"margin_right"`
	FontFamily    string  `json:"font_family" yaml:"font_family"`
	FontSize      float64 `json:"font_size" yaml:"font_size"`
	LineSpacing   float64 `json:"line_spacing" yaml:"line_spacing"`
	Indent        float64 `json:"indent" yaml:"indent"`
	H1Prefix      string  `json:"h1_prefix" yaml:"h1_prefix"`
	AutoNumbering bool    `json:"auto_numbering" yaml:"auto_numbering"`
	H1Size        float64 `json:"h1_size" yaml:"h1_size"`
	H2Size        float64 `json:"h2_size" yaml:"h2_size"`
	H3Size        float64 `json:"h3_size" yaml:"h3_size"`
	// 校准系数，0 视为 1.0
	TextDensity      float64 `json:"text_density" yaml:"text_density"`
	LineHeightScale  float64 `json:"line_height_scale" yaml:"line_height_scale"`
	PageContentScale float64 `json:"page_content_scale" yaml:"page_content_scale"`
	// HardWrap 仅供导出端使用，排版引擎不读取。
	HardWrap              bool   `json:"hard_wrap" yaml:"hard_wrap"`
	H1Split               bool   `json:"h1_split" yaml:"h1_split"`
	HierarchicalNumbering bool   `json:"hierarchical_numbering" yaml:"hierarchical_numbering"`
	H1Uppercase           bool   `json:"h1_uppercase" yaml:"h1_uppercase"`
	FigureLabel           string `json:"figure_label,omitempty" yaml:"figure_label"`
	TableLabel            string `json:"table_label,omitempty" yaml:"table_label"`
}

// DefaultSettings 返回论文排版的默认参数。
func DefaultSettings() Settings {
	return Settings{
		PaperSize:             "A4",
		MarginTop:             2.5,
		MarginBottom:          2.5,
		MarginLeft:            3.5,
		MarginRight:           2.0,
		FontFamily:            "Times New Roman",
		FontSize:              13,
		LineSpacing:           1.5,
		Indent:                1.27,
		H1Prefix:              "CHƯƠNG",
		AutoNumbering:         true,
		H1Size:                16,
		H2Size:                14,
		H3Size:                13,
		TextDensity:           1.0,
		LineHeightScale:       1.0,
		PageContentScale:      1.0,
		H1Split:               false,
		HierarchicalNumbering: true,
		H1Uppercase:           true,
		FigureLabel:           "Hình",
		TableLabel:            "Bảng",
	}
}

// PaperSize 记录纸张宽高（cm）。
type PaperSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

var paperSizes = map[string]PaperSize{
	"A4":     {Width: 21, Height: 29.7},
	"A5":     {Width: 14.8, Height: 21},
	"LETTER": {Width: 21.59, Height: 27.94},
}

// LookupPaperSize 按名称查找纸张尺寸，未知名称返回 false。
func LookupPaperSize(name string) (PaperSize, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		name = "A4"
	}
	ps, ok := paperSizes[name]
	return ps, ok
}

// Validate 一次性报告所有非法字段。
func (s Settings) Validate() error {
	var err error
	if _, ok := LookupPaperSize(s.PaperSize); !ok {
		err = multierr.Append(err, fmt.Errorf("未知纸张尺寸 %q", s.PaperSize))
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"margin_top", s.MarginTop},
		{"margin_bottom", s.MarginBottom},
		{"margin_left", s.MarginLeft},
		{"margin_right", s.MarginRight},
		{"indent", s.Indent},
		{"text_density", s.TextDensity},
		{"line_height_scale", s.LineHeightScale},
		{"page_content_scale", s.PageContentScale},
	} {
		if f.value < 0 {
			err = multierr.Append(err, fmt.Errorf("%s 不能为负数: %g", f.name, f.value))
		}
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"font_size", s.FontSize},
		{"line_spacing", s.LineSpacing},
	} {
		if f.value <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s 必须大于 0: %g", f.name, f.value))
		}
	}
	if err != nil {
		return err
	}
	g := s.Geometry()
	if g.PageCapacity <= 0 {
		err = multierr.Append(err, fmt.Errorf("上下边距 %g+%gcm 超出纸张高度 %gcm", s.MarginTop, s.MarginBottom, g.Paper.Height))
	}
	if g.ContentWidthPx <= 0 {
		err = multierr.Append(err, fmt.Errorf("左右边距 %g+%gcm 超出纸张宽度 %gcm", s.MarginLeft, s.MarginRight, g.Paper.Width))
	}
	return err
}

func orOne(v float64) float64 {
	if v <= 0 {
		return 1.0
	}
	return v
}

// Density 返回生效的文本密度系数。
func (s Settings) Density() float64 { return orOne(s.TextDensity) }

func (s Settings) figureLabel() string {
	if strings.TrimSpace(s.FigureLabel) == "" {
		return "Hình"
	}
	return strings.TrimSpace(s.FigureLabel)
}

func (s Settings) tableLabel() string {
	if strings.TrimSpace(s.TableLabel) == "" {
		return "Bảng"
	}
	return strings.TrimSpace(s.TableLabel)
}

// Geometry 是由 Settings 推导出的页面几何量。
type Geometry struct {
	Paper PaperSize `json:"paper"`
	// ContentWidthPx 与 IndentPx 已乘以 page_content_scale。
	ContentWidthPx float64 `json:"contentWidthPx"`
	IndentPx       float64 `json:"indentPx"`
	// PageCapacity 为可用内容高度（cm），已乘以 page_content_scale。
	PageCapacity float64 `json:"pageCapacity"`
	// LineHeight 为正文行高（cm），已乘以 line_height_scale。
	LineHeight float64 `json:"lineHeight"`
	// FontSizePx 为测量正文所用的字号。
	FontSizePx float64 `json:"fontSizePx"`
}

// Geometry 计算页面几何量。
func (s Settings) Geometry() Geometry {
	paper, ok := LookupPaperSize(s.PaperSize)
	if !ok {
		paper = paperSizes["A4"]
	}
	scale := orOne(s.PageContentScale)
	return Geometry{
		Paper:          paper,
		ContentWidthPx: (paper.Width - s.MarginLeft - s.MarginRight) * CmToPx * scale,
		IndentPx:       s.Indent * CmToPx * scale,
		PageCapacity:   (paper.Height - s.MarginTop - s.MarginBottom) * scale,
		LineHeight:     s.FontSize * PtToCm * s.LineSpacing * orOne(s.LineHeightScale),
		FontSizePx:     s.FontSize * PtToPx,
	}
}
