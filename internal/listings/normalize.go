package listings

import (
	"encoding/json"
	"strings"
)

// StringList 接受两种 JSON 形态的有序字符串序列：
// 已拆分的数组，或来自 textarea 的换行分隔整段文本。
// 持久化前统一规整为去掉空白行、逐项 trim 的有序序列。
type StringList []string

// UnmarshalJSON 同时接受 `["a","b"]` 与 `"a\nb"`。
func (l *StringList) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err == nil {
		*l = items
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*l = strings.Split(text, "\n")
	return nil
}

// Normalize 返回 trim 后去除空项的拷贝，保持原有顺序。
func (l StringList) Normalize() []string {
	out := make([]string, 0, len(l))
	for _, item := range l {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
