package binding

import (
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate 将文本中的 ${field} 替换为 values 中对应字段的值。
// 支持 ${field|默认值}：字段不存在或为空时使用默认值。
// 字段不存在且没有默认值时保留原占位符。
func Interpolate(text string, values map[string]string) string {
	if !strings.Contains(text, "${") {
		return text
	}
	return exprPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := exprPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		key, fallback, hasFallback := splitFallback(groups[1])
		if key == "" {
			return match
		}
		if val, ok := values[key]; ok && (val != "" || !hasFallback) {
			return val
		}
		if hasFallback {
			return fallback
		}
		return match
	})
}

// Fields 返回文本中引用到的字段名（按出现顺序去重）。
func Fields(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, groups := range exprPattern.FindAllStringSubmatch(text, -1) {
		key, _, _ := splitFallback(groups[1])
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

func splitFallback(expr string) (key, fallback string, ok bool) {
	key = expr
	if i := strings.IndexByte(expr, '|'); i != -1 {
		key = expr[:i]
		fallback = expr[i+1:]
		ok = true
	}
	return strings.TrimSpace(key), fallback, ok
}
