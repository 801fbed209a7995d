package fonts

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// 内置字体的名称。
const (
	Regular    = "regular"
	Bold       = "bold"
	Italic     = "italic"
	BoldItalic = "bold-italic"
)

var builtin = map[string][]byte{
	Regular:    goregular.TTF,
	Bold:       gobold.TTF,
	Italic:     goitalic.TTF,
	BoldItalic: gobolditalic.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "embed:bold" 或直接 "bold"。
func Load(name string) ([]byte, error) {
	key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "embed:")))
	if key == "" {
		key = Regular
	}
	data, ok := builtin[key]
	if !ok {
		return nil, fmt.Errorf("未知内置字体 %q", name)
	}
	return data, nil
}

// LoadFile 读取磁盘上的 TTF/OTF 文件。
func LoadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取字体文件 %s 失败: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("字体文件 %s 为空", path)
	}
	return data, nil
}

// Resolve 按来源加载字体：空串或 "embed:" 前缀走内置字体，其余视为文件路径。
func Resolve(src string) ([]byte, error) {
	if src == "" || strings.HasPrefix(src, "embed:") {
		return Load(src)
	}
	return LoadFile(src)
}

// StyleName 把粗体/斜体组合映射为内置字体名称。
func StyleName(bold, italic bool) string {
	switch {
	case bold && italic:
		return BoldItalic
	case bold:
		return Bold
	case italic:
		return Italic
	default:
		return Regular
	}
}
