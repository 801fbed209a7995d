package layout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// EncodeDebugJSON 把分页结果以缩进 JSON 写入 w。
func EncodeDebugJSON(w io.Writer, res *Result) error {
	if res == nil {
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(res)
}

// WriteDebugJSON 将分页结果输出到文件，便于调试或可视化。
func WriteDebugJSON(res *Result, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建调试文件 %s 失败: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return EncodeDebugJSON(f, res)
}
