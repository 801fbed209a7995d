package layout

import "github.com/ByLCY/folio/markup"

// 该文件定义分页结果与图片登记表，供分页计算、渲染与调试 JSON 共用。

// Result 保存分页后的页面以及本次渲染的状态。
type Result struct {
	Pages    []Page   `json:"pages"`
	Geometry Geometry `json:"geometry"`
	// Degraded 表示没有可用的测量后端，段落未折行。
	Degraded bool     `json:"degraded,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Page 是一页中按顺序排列的块，生成后不再修改。
type Page struct {
	Blocks []Block `json:"blocks"`
}

// Height 返回页面上所有块的累计高度（cm）。
func (p Page) Height() float64 {
	total := 0.0
	for _, b := range p.Blocks {
		total += b.Height
	}
	return total
}

// BlockKind 区分块的类型。
type BlockKind int

const (
	KindBlank BlockKind = iota
	KindHeading
	KindParagraph
	KindParagraphContinuation
	KindFigure
	KindTableCaption
	KindTable
	KindBulletItem
)

func (k BlockKind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindParagraph:
		return "paragraph"
	case KindParagraphContinuation:
		return "paragraph-continuation"
	case KindFigure:
		return "figure"
	case KindTableCaption:
		return "table-caption"
	case KindTable:
		return "table"
	case KindBulletItem:
		return "bullet"
	default:
		return "blank"
	}
}

// MarshalText 让调试 JSON 输出可读的类型名。
func (k BlockKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Block 是一个可渲染单元。按 Kind 使用对应字段，其余字段保持零值。
type Block struct {
	Kind BlockKind `json:"kind"`
	// SourceLine 为源文档中的行号（从 0 开始），-1 表示无来源。
	SourceLine int     `json:"sourceLine"`
	Height     float64 `json:"height"`

	// Heading / BulletItem
	Level int `json:"level,omitempty"`
	// Heading：编号后的标题；H1 拆行时 Number 与 Title 分别占一行。
	Number string `json:"number,omitempty"`
	Title  string `json:"title,omitempty"`
	Split  bool   `json:"split,omitempty"`

	// Paragraph / ParagraphContinuation / BulletItem / TableCaption
	Text  string       `json:"text,omitempty"`
	Runs  []markup.Run `json:"runs,omitempty"`
	Lines []string     `json:"lines,omitempty"`
	// LineRuns 与 Lines 一一对应；跨行的强调片段在两行上保持样式。
	LineRuns [][]markup.Run `json:"lineRuns,omitempty"`
	// Indent 只在段落的第一个片段上为 true。
	Indent bool `json:"indent,omitempty"`
	// Margin 表示片段带段后间距；被页边界截断的片段没有。
	Margin bool `json:"margin,omitempty"`

	// Figure
	Figure      *Figure `json:"figure,omitempty"`
	FigureRef   string  `json:"figureRef,omitempty"`
	Caption     string  `json:"caption,omitempty"`
	Placeholder string  `json:"placeholder,omitempty"`

	// Table
	Header []string   `json:"header,omitempty"`
	Rows   [][]string `json:"rows,omitempty"`
}

// Figure 是图片登记表中的一项。Width 为 cm，0 表示未指定。
type Figure struct {
	ID      int     `json:"id"`
	Number  string  `json:"number"`
	Caption string  `json:"caption"`
	Path    string  `json:"path"`
	URL     string  `json:"url"`
	Chapter int     `json:"chapter"`
	Width   float64 `json:"width,omitempty"`
}
