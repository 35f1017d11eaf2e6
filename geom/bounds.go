package geom

// DescentFactor 近似字形下降部：命中框底边位于基线下方 0.2 倍字号处。
const DescentFactor = 0.2

// HighlightPadding is the gap between a selected overlay's hit-box and its outline.
const HighlightPadding = 2.0

// Bounds 是单个文本叠加层的命中框，只在最近一次渲染内有效。
type Bounds struct {
	ID string  `json:"id"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// TextBounds 计算右对齐文本的命中框：锚点 (x, y) 为右侧基线，width 为实测文本宽度。
func TextBounds(id string, x, y, width, fontSize float64) Bounds {
	if width < 0 {
		width = 0
	}
	if fontSize < 0 {
		fontSize = 0
	}
	return Bounds{
		ID: id,
		X1: x - width,
		Y1: y - fontSize,
		X2: x,
		Y2: y + DescentFactor*fontSize,
	}
}

// Contains is inclusive on every edge.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X1 && p.X <= b.X2 && p.Y >= b.Y1 && p.Y <= b.Y2
}

// Width returns X2 - X1.
func (b Bounds) Width() float64 { return b.X2 - b.X1 }

// Height returns Y2 - Y1.
func (b Bounds) Height() float64 { return b.Y2 - b.Y1 }

// Pad grows the box by d on every side.
func (b Bounds) Pad(d float64) Bounds {
	return Bounds{ID: b.ID, X1: b.X1 - d, Y1: b.Y1 - d, X2: b.X2 + d, Y2: b.Y2 + d}
}

// HitTest 按列表顺序返回第一个包含 p 的命中框 id。
func HitTest(bounds []Bounds, p Point) (string, bool) {
	for _, b := range bounds {
		if b.Contains(p) {
			return b.ID, true
		}
	}
	return "", false
}

// Find returns the bounds recorded for id.
func Find(bounds []Bounds, id string) (Bounds, bool) {
	for _, b := range bounds {
		if b.ID == id {
			return b, true
		}
	}
	return Bounds{}, false
}
