// Package geom holds the pure geometry behind the editor: mapping pointer
// coordinates into buffer space, text hit-boxes and circle containment.
package geom

import "math"

// Point is a position in buffer (canvas pixel) space unless stated otherwise.
type Point struct {
	X, Y float64
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Rect 是画布元素在屏幕上的显示矩形（CSS 像素）。
type Rect struct {
	Left, Top, Width, Height float64
}

// Empty reports whether the rectangle has not been laid out yet.
func (r Rect) Empty() bool { return r.Width == 0 || r.Height == 0 }

// ClientToBuffer 将指针事件的客户区坐标映射到画布缓冲区坐标。
// 显示矩形尚未布局（宽或高为 0）时返回 (0,0)。
func ClientToBuffer(client Point, display Rect, bufferWidth, bufferHeight int) Point {
	if display.Empty() {
		return Point{}
	}
	sx := float64(bufferWidth) / display.Width
	sy := float64(bufferHeight) / display.Height
	return Point{
		X: (client.X - display.Left) * sx,
		Y: (client.Y - display.Top) * sy,
	}
}

// BufferToClient is the inverse of ClientToBuffer.
func BufferToClient(buf Point, display Rect, bufferWidth, bufferHeight int) Point {
	if bufferWidth == 0 || bufferHeight == 0 {
		return Point{X: display.Left, Y: display.Top}
	}
	sx := display.Width / float64(bufferWidth)
	sy := display.Height / float64(bufferHeight)
	return Point{
		X: buf.X*sx + display.Left,
		Y: buf.Y*sy + display.Top,
	}
}

// Circle is a logo clip region.
type Circle struct {
	X, Y, R float64
}

// Contains 使用欧氏距离判断，边界上的点视为命中。
func (c Circle) Contains(p Point) bool {
	return math.Hypot(p.X-c.X, p.Y-c.Y) <= c.R
}

// FitSize 在保持宽高比的前提下把 (w, h) 缩放进 maxW×maxH，只缩小不放大，结果四舍五入。
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	ratio := 1.0
	if maxW > 0 && w > maxW {
		ratio = float64(maxW) / float64(w)
	}
	if maxH > 0 && h > maxH {
		ratio = math.Min(ratio, float64(maxH)/float64(h))
	}
	if ratio >= 1 {
		return w, h
	}
	return int(math.Round(float64(w) * ratio)), int(math.Round(float64(h) * ratio))
}
