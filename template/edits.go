package template

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ByLCY/stencil/binding"
)

// UserEdits 将字段 key 映射为用户输入的值（文本或图片 URL/data URL），仅在一次编辑会话内有效。
type UserEdits map[EditableFieldKey]string

// Clone returns an independent copy.
func (e UserEdits) Clone() UserEdits {
	out := make(UserEdits, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Set stores value under key. Text values are NFC-normalised so that the
// same visible string always measures to the same width.
func (e UserEdits) Set(key EditableFieldKey, value string) {
	if key != FieldLogoURL && !strings.HasPrefix(value, "data:") {
		value = norm.NFC.String(value)
	}
	e[key] = value
}

// Lookup returns the value for key and whether it was present.
func (e UserEdits) Lookup(key EditableFieldKey) (string, bool) {
	if e == nil || key == "" {
		return "", false
	}
	v, ok := e[key]
	return v, ok
}

// Values 以字符串 key 的形式导出，供 ${key} 插值使用。
func (e UserEdits) Values() map[string]string {
	out := make(map[string]string, len(e))
	for k, v := range e {
		out[string(k)] = v
	}
	return out
}

// InitialEdits 以模板默认值初始化编辑值：可编辑文本取其默认文本，可编辑 logo 取其 URL。
func InitialEdits(cfg ImageConfig) UserEdits {
	edits := UserEdits{}
	for _, o := range cfg.Overlays {
		if o.IsEditableByUser && o.EditKey != "" {
			edits[o.EditKey] = o.Text
		}
	}
	if logo := cfg.LogoOverlay; logo != nil && logo.IsEditableByUser && logo.EditKey != "" {
		edits[logo.EditKey] = logo.ImageURL
	}
	return edits
}

// DisplayText 返回叠加层实际要绘制的文本：可编辑且存在非空编辑值时使用编辑值，
// 否则使用模板默认文本；随后展开 ${key} 占位符。
func DisplayText(o TextOverlay, edits UserEdits) string {
	text := o.Text
	if o.IsEditableByUser && o.EditKey != "" {
		if v, ok := edits.Lookup(o.EditKey); ok && v != "" {
			text = v
		}
	}
	if len(edits) == 0 {
		return text
	}
	return binding.Interpolate(text, edits.Values())
}

// LogoURL 返回 logo 实际使用的图片地址。可编辑且 key 存在于编辑值中时以编辑值为准，
// 即使为空（表示用户移除了 logo）。
func LogoURL(logo *LogoOverlay, edits UserEdits) string {
	if logo == nil {
		return ""
	}
	if logo.IsEditableByUser && logo.EditKey != "" {
		if v, ok := edits.Lookup(logo.EditKey); ok {
			return v
		}
	}
	return logo.ImageURL
}
