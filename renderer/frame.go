package renderer

import (
	"image/color"
	"strings"

	"github.com/ByLCY/stencil/template"
)

// TextLayers 把模板叠加层解析为可绘制的文本层：替换编辑值、补齐默认字体并解析颜色。
// 返回的层与 overlays 一一对应，顺序不变。
func TextLayers(overlays []template.TextOverlay, edits template.UserEdits) []TextLayer {
	layers := make([]TextLayer, 0, len(overlays))
	for _, o := range overlays {
		layers = append(layers, TextLayer{
			ID:    o.ID,
			Text:  template.DisplayText(o, edits),
			X:     o.X,
			Y:     o.Y,
			Font:  FontOf(o),
			Color: MustColor(o.Color, color.Black),
		})
	}
	return layers
}

// FontOf returns the face an overlay is drawn with.
func FontOf(o template.TextOverlay) Font {
	f := Font{Family: o.FontFamily, Size: o.FontSize, Weight: o.FontWeight}
	if strings.TrimSpace(f.Family) == "" {
		f.Family = template.DefaultFontFamily
	}
	if f.Size <= 0 {
		f.Size = template.DefaultFontSize
	}
	if f.Weight == "" {
		f.Weight = template.DefaultFontWeight
	}
	return f
}
