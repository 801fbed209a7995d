package layout

// pageEpsilon 是判断溢出时保留的容差（cm）。
const pageEpsilon = 0.01

// PageAccumulator 记录当前页的块与累计高度，决定何时换页。
type PageAccumulator struct {
	capacity float64
	current  []Block
	height   float64
	pages    []Page
}

// NewPageAccumulator 创建容量为 capacity（cm）的累加器。
func NewPageAccumulator(capacity float64) *PageAccumulator {
	return &PageAccumulator{capacity: capacity}
}

// AddBlock 放置一个块。forceBreak 为 true 时先换页；否则当前页非空且放不下时
// 先换页。单个超出整页容量的块会独占一页。
func (a *PageAccumulator) AddBlock(block Block, height float64, forceBreak bool) {
	if forceBreak {
		a.Flush()
	} else if !a.fits(height) && len(a.current) > 0 {
		a.Flush()
	}
	a.Append(block, height)
}

// Append 不做溢出检查直接放到当前页，用于被页边界截断的段落片段。
func (a *PageAccumulator) Append(block Block, height float64) {
	block.Height = height
	a.current = append(a.current, block)
	a.height += height
}

// Flush 结束当前页；空页不会被输出。
func (a *PageAccumulator) Flush() {
	if len(a.current) == 0 {
		return
	}
	a.pages = append(a.pages, Page{Blocks: a.current})
	a.current = nil
	a.height = 0
}

func (a *PageAccumulator) fits(height float64) bool {
	return a.height+height <= a.capacity-pageEpsilon
}

// Remaining 返回当前页剩余高度（cm）。
func (a *PageAccumulator) Remaining() float64 { return a.capacity - a.height }

// Height 返回当前页已用高度（cm）。
func (a *PageAccumulator) Height() float64 { return a.height }

// Capacity 返回页面容量（cm）。
func (a *PageAccumulator) Capacity() float64 { return a.capacity }

// Empty 报告当前页是否还没有块。
func (a *PageAccumulator) Empty() bool { return len(a.current) == 0 }

// Pages 输出末尾未满的页并返回全部页面。
func (a *PageAccumulator) Pages() []Page {
	a.Flush()
	return a.pages
}
