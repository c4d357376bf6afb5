package query

import (
	"encoding/json"
)

// Project 按 Spec 的字段投影裁剪响应里的 JSON key；"id" 永远保留。
// 未指定投影时原样返回。
func Project(v any, spec Spec) (any, error) {
	if len(spec.Fields) == 0 && len(spec.Omit) == 0 {
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	keep := map[string]bool{"id": true}
	for _, f := range spec.Fields {
		keep[f] = true
	}
	omit := map[string]bool{}
	for _, f := range spec.Omit {
		if f != "id" {
			omit[f] = true
		}
	}

	prune := func(m map[string]any) {
		for k := range m {
			if (len(spec.Fields) > 0 && !keep[k]) || omit[k] {
				delete(m, k)
			}
		}
	}
	switch t := generic.(type) {
	case []any:
		for _, it := range t {
			if m, ok := it.(map[string]any); ok {
				prune(m)
			}
		}
	case map[string]any:
		prune(t)
	}
	return generic, nil
}
