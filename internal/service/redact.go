package service

import (
	"encoding/json"
	"strings"

	"github.com/eschoolbooks/neox-go/pkg/datauri"
)

// redactDocuments 把输入中的 data URI 替换为 {mimeType,size} 摘要，其余字段原样保留
func redactDocuments(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var tree any
	if err := json.Unmarshal(b, &tree); err != nil {
		return v
	}
	return redactValue(tree)
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			t[k] = redactValue(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = redactValue(child)
		}
		return t
	case string:
		if !strings.HasPrefix(t, "data:") {
			return t
		}
		d, err := datauri.Parse(t)
		if err != nil {
			return t
		}
		return d.Summary()
	default:
		return v
	}
}
