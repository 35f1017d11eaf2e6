package renderer

import (
	"image"
	"image/color"

	"github.com/ByLCY/stencil/geom"
	"github.com/ByLCY/stencil/template"
)

// Compositor 将一帧合成为像素缓冲区，并返回本次渲染计算出的文本命中框。
type Compositor interface {
	Compose(frame *Frame) (*Result, error)
}

// Measurer 使用与绘制相同的字体度量测量文本宽度（像素）。
type Measurer interface {
	MeasureText(text string, font Font) (float64, error)
}

// Font selects a face: CSS-like family list, size in pixels and weight.
type Font struct {
	Family string
	Size   float64
	Weight template.FontWeight
}

// Highlight 描述文本叠加层的选中装饰。
type Highlight int

const (
	HighlightNone     Highlight = iota
	HighlightSelected           // 细实线蓝框
	HighlightDragging           // 粗虚线橙框
)

// Ring 描述 logo 的可拖拽指示环。
type Ring int

const (
	RingNone Ring = iota
	RingIdle
	RingDragging
)

// TextLayer is one resolved text overlay ready to draw.
type TextLayer struct {
	ID        string
	Text      string
	X, Y      float64
	Font      Font
	Color     color.Color
	Highlight Highlight
}

// LogoLayer is a resolved logo image clipped to a circle.
type LogoLayer struct {
	Image   image.Image
	X, Y, R float64
	Ring    Ring
}

// Frame 是一次合成的全部输入，按固定 z 序绘制：背景 → logo → 文本。
type Frame struct {
	Width, Height   int
	Background      image.Image // 为 nil 时使用 BackgroundColor 填充
	BackgroundColor color.Color
	Logo            *LogoLayer
	Texts           []TextLayer
}

// Result 是合成输出：像素缓冲区与按文本顺序排列的命中框。
type Result struct {
	Image  *image.RGBA
	Bounds []geom.Bounds
}
