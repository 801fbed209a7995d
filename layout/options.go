package layout

import "go.uber.org/zap"

// BuildOptions 配置分页阶段所需的依赖，例如测量后端。
type BuildOptions struct {
	Settings Settings
	// Measurer 为空时进入降级模式：段落不折行，整段视为一行。
	Measurer TextMeasurer
	Logger   *zap.Logger
}

// TextMeasurer 返回文本在给定字体与字号（px）下的渲染宽度（px）。
// 同一次渲染内对相同输入必须返回相同结果；实现需可被并发调用。
type TextMeasurer interface {
	Measure(text, fontFamily string, fontSizePx float64) float64
}

// MeasureFunc 把普通函数适配为 TextMeasurer。
type MeasureFunc func(text, fontFamily string, fontSizePx float64) float64

func (f MeasureFunc) Measure(text, fontFamily string, fontSizePx float64) float64 {
	return f(text, fontFamily, fontSizePx)
}
