package editor

import (
	"testing"

	"github.com/ByLCY/stencil/geom"
	"github.com/ByLCY/stencil/template"
)

type recorder struct {
	clicks     []string
	menus      []string
	starts     []string
	ends       []string
	positions  []geom.Point
	logoMoves  []geom.Point
	menuPoints []geom.Point
}

func (r *recorder) handlers() Handlers {
	name := func(o *template.TextOverlay) string {
		if o == nil {
			return ""
		}
		return o.ID
	}
	return Handlers{
		OnLeftClick: func(p geom.Point, target *template.TextOverlay) { r.clicks = append(r.clicks, name(target)) },
		OnContextMenu: func(p, page geom.Point, target *template.TextOverlay) {
			r.menus = append(r.menus, name(target))
			r.menuPoints = append(r.menuPoints, p, page)
		},
		OnOverlayDragStart:      func(id string) { r.starts = append(r.starts, id) },
		OnOverlayDragEnd:        func(id string) { r.ends = append(r.ends, id) },
		OnOverlayPositionUpdate: func(id string, x, y float64) { r.positions = append(r.positions, geom.Point{X: x, Y: y}) },
		OnLogoPositionUpdate:    func(x, y float64) { r.logoMoves = append(r.logoMoves, geom.Point{X: x, Y: y}) },
	}
}

func testView() View {
	overlays := []template.TextOverlay{
		{ID: "a", Text: "aaaaa", X: 100, Y: 100, FontSize: 20},
		{ID: "b", Text: "bbbbb", X: 300, Y: 100, FontSize: 20},
	}
	return View{
		Bounds: []geom.Bounds{
			geom.TextBounds("a", 100, 100, 50, 20),
			geom.TextBounds("b", 300, 100, 50, 20),
		},
		Overlays:        overlays,
		Logo:            &template.LogoOverlay{ID: "logo", X: 200, Y: 200, Radius: 40},
		SelectedID:      "a",
		MovementEnabled: true,
		LogoDraggable:   true,
	}
}

// TestTextDragKeepsClickOffset 验证：按下点与锚点的偏移在拖动中保持不变。
func TestTextDragKeepsClickOffset(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.handlers())
	v := testView()

	if !c.Press(v, geom.Point{X: 95, Y: 100}, ButtonPrimary) {
		t.Fatalf("在选中叠加层命中框内按下应开始拖拽")
	}
	if c.State() != StateDraggingText {
		t.Fatalf("状态错误: %v", c.State())
	}
	d, _ := c.Drag()
	if d.ID != "a" || d.Offset != (geom.Point{X: -5, Y: 0}) {
		t.Fatalf("拖拽上下文错误: %+v", d)
	}
	c.Move(v, geom.Point{X: 150, Y: 120})
	c.Release(v, geom.Point{X: 150, Y: 120}, ButtonPrimary)

	if len(rec.positions) != 1 || rec.positions[0] != (geom.Point{X: 155, Y: 120}) {
		t.Fatalf("位置更新错误: %v", rec.positions)
	}
	if len(rec.starts) != 1 || len(rec.ends) != 1 || rec.ends[0] != "a" {
		t.Fatalf("拖拽开始/结束通知错误: %v %v", rec.starts, rec.ends)
	}
	if len(rec.clicks) != 0 {
		t.Fatalf("发生拖动后不应报告点击: %v", rec.clicks)
	}
	if c.State() != StateIdle {
		t.Fatalf("释放后应回到空闲: %v", c.State())
	}
}

func TestClickWithoutMovementReportsTarget(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.handlers())
	v := testView()
	v.SelectedID = ""

	c.Press(v, geom.Point{X: 280, Y: 95}, ButtonPrimary)
	c.Release(v, geom.Point{X: 280, Y: 95}, ButtonPrimary)
	c.Press(v, geom.Point{X: 10, Y: 10}, ButtonPrimary)
	c.Release(v, geom.Point{X: 10, Y: 10}, ButtonPrimary)

	if len(rec.clicks) != 2 || rec.clicks[0] != "b" || rec.clicks[1] != "" {
		t.Fatalf("点击结果错误: %q", rec.clicks)
	}
}

func TestPressOnSelectedWithoutMoveIsStillClick(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.handlers())
	v := testView()

	c.Press(v, geom.Point{X: 95, Y: 100}, ButtonPrimary)
	c.Release(v, geom.Point{X: 95, Y: 100}, ButtonPrimary)
	if len(rec.ends) != 1 {
		t.Fatalf("拖拽结束应通知: %v", rec.ends)
	}
	if len(rec.clicks) != 1 || rec.clicks[0] != "a" {
		t.Fatalf("未移动的释放应视为点击: %q", rec.clicks)
	}
}

func TestUnselectedOverlayIsNotDraggable(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.handlers())
	v := testView()

	if c.Press(v, geom.Point{X: 280, Y: 95}, ButtonPrimary) {
		t.Fatalf("未选中的叠加层不应开始拖拽")
	}
	v.MovementEnabled = false
	if c.Press(v, geom.Point{X: 95, Y: 100}, ButtonPrimary) {
		t.Fatalf("未允许移动时不应开始文本拖拽")
	}
}

func TestLogoDragUsesCircleDistance(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.handlers())
	v := testView()
	v.SelectedID = ""

	if c.Press(v, geom.Point{X: 260, Y: 260}, ButtonPrimary) {
		t.Fatalf("圆外按下不应开始 logo 拖拽")
	}
	c.Release(v, geom.Point{X: 260, Y: 260}, ButtonPrimary)

	if !c.Press(v, geom.Point{X: 210, Y: 190}, ButtonPrimary) {
		t.Fatalf("圆内按下应开始 logo 拖拽")
	}
	if c.State() != StateDraggingLogo {
		t.Fatalf("状态错误: %v", c.State())
	}
	c.Move(v, geom.Point{X: 230, Y: 210})
	if len(rec.logoMoves) != 1 || rec.logoMoves[0] != (geom.Point{X: 220, Y: 220}) {
		t.Fatalf("logo 位置更新错误: %v", rec.logoMoves)
	}
	c.Release(v, geom.Point{X: 230, Y: 210}, ButtonPrimary)
	if len(rec.ends) != 0 {
		t.Fatalf("logo 拖拽结束不发文本拖拽结束通知: %v", rec.ends)
	}

	v.LogoDraggable = false
	if c.Press(v, geom.Point{X: 210, Y: 190}, ButtonPrimary) {
		t.Fatalf("logo 不可拖拽时不应开始拖拽")
	}
}

func TestTextDragWinsOverLogo(t *testing.T) {
	c := NewController(Handlers{})
	v := testView()
	v.Logo = &template.LogoOverlay{ID: "logo", X: 90, Y: 95, Radius: 30}

	c.Press(v, geom.Point{X: 95, Y: 100}, ButtonPrimary)
	if c.State() != StateDraggingText {
		t.Fatalf("重叠区域应优先拖动选中文本: %v", c.State())
	}
}

func TestOnlyPrimaryButtonStartsDrag(t *testing.T) {
	c := NewController(Handlers{})
	v := testView()
	if c.Press(v, geom.Point{X: 95, Y: 100}, ButtonSecondary) || c.Press(v, geom.Point{X: 95, Y: 100}, ButtonMiddle) {
		t.Fatalf("非主键不应开始拖拽")
	}
}

func TestSecondaryReleaseEndsDragWithoutClick(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.handlers())
	v := testView()

	c.Press(v, geom.Point{X: 95, Y: 100}, ButtonPrimary)
	c.Release(v, geom.Point{X: 95, Y: 100}, ButtonSecondary)
	if c.Dragging() {
		t.Fatalf("任意按键释放都应结束拖拽")
	}
	if len(rec.ends) != 1 || len(rec.clicks) != 0 {
		t.Fatalf("通知错误: ends=%v clicks=%v", rec.ends, rec.clicks)
	}
}

func TestLeaveCancelsDrag(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.handlers())
	v := testView()

	c.Press(v, geom.Point{X: 95, Y: 100}, ButtonPrimary)
	c.Move(v, geom.Point{X: 96, Y: 100})
	c.Leave()
	if c.State() != StateIdle || len(rec.ends) != 1 {
		t.Fatalf("离开画布应结束拖拽: state=%v ends=%v", c.State(), rec.ends)
	}
	// 离开后重新按下、释放，应是一次普通点击
	c.Press(v, geom.Point{X: 280, Y: 95}, ButtonPrimary)
	c.Release(v, geom.Point{X: 280, Y: 95}, ButtonPrimary)
	if len(rec.clicks) != 1 || rec.clicks[0] != "b" {
		t.Fatalf("点击结果错误: %q", rec.clicks)
	}
}

func TestContextMenuSuppressedWhileDragging(t *testing.T) {
	rec := &recorder{}
	c := NewController(rec.handlers())
	v := testView()

	c.ContextMenu(v, geom.Point{X: 280, Y: 95}, geom.Point{X: 600, Y: 400})
	if len(rec.menus) != 1 || rec.menus[0] != "b" {
		t.Fatalf("右键菜单命中错误: %q", rec.menus)
	}
	if rec.menuPoints[1] != (geom.Point{X: 600, Y: 400}) {
		t.Fatalf("页面坐标应原样传递: %v", rec.menuPoints)
	}

	c.Press(v, geom.Point{X: 95, Y: 100}, ButtonPrimary)
	c.ContextMenu(v, geom.Point{X: 280, Y: 95}, geom.Point{})
	if len(rec.menus) != 1 {
		t.Fatalf("拖拽中不应弹出右键菜单: %q", rec.menus)
	}
}

func TestCursorStates(t *testing.T) {
	v := testView()
	c := NewController(Handlers{})
	if got := c.Cursor(v); got != CursorCrosshair {
		t.Fatalf("无点击处理时应为 crosshair: %s", got)
	}

	c = NewController(Handlers{OnLeftClick: func(geom.Point, *template.TextOverlay) {}})
	if got := c.Cursor(v); got != CursorPointer {
		t.Fatalf("可点击时应为 pointer: %s", got)
	}
	c.Move(v, geom.Point{X: 95, Y: 100})
	if got := c.Cursor(v); got != CursorMove {
		t.Fatalf("悬停在可移动的选中叠加层上应为 move: %s", got)
	}
	c.Press(v, geom.Point{X: 95, Y: 100}, ButtonPrimary)
	if got := c.Cursor(v); got != CursorGrabbing {
		t.Fatalf("拖拽中应为 grabbing: %s", got)
	}
	c.Leave()
	if got := c.Cursor(v); got != CursorPointer {
		t.Fatalf("离开后应恢复: %s", got)
	}
}
