// Package editor implements the interactive preview: a Canvas that owns the
// compositor output and the last computed hit-boxes, and a Controller that
// turns pointer events into selection, context-menu and drag notifications.
package editor

import (
	"github.com/ByLCY/stencil/geom"
	"github.com/ByLCY/stencil/template"
)

// Button identifies a pointer button, numbered like DOM MouseEvent.button.
type Button int

const (
	ButtonPrimary   Button = 0
	ButtonMiddle    Button = 1
	ButtonSecondary Button = 2
)

// State is the controller's drag state.
type State int

const (
	StateIdle State = iota
	StateDraggingText
	StateDraggingLogo
)

func (s State) String() string {
	switch s {
	case StateDraggingText:
		return "dragging-text"
	case StateDraggingLogo:
		return "dragging-logo"
	default:
		return "idle"
	}
}

// DragKind 区分拖拽对象。
type DragKind string

const (
	DragText DragKind = "text"
	DragLogo DragKind = "logo"
)

// DragContext 只在一次合格的按下与对应的释放/离开之间存在。
// Offset 为按下点相对锚点的向量，拖动时锚点 = 指针 - Offset，避免元素跳到指针处。
type DragContext struct {
	Kind   DragKind
	ID     string
	Offset geom.Point
}

// 光标样式，取值与 CSS cursor 一致。
const (
	CursorGrabbing  = "grabbing"
	CursorMove      = "move"
	CursorPointer   = "pointer"
	CursorCrosshair = "crosshair"
)

// View 是控制器做命中测试所需的只读快照，Bounds 必须来自最近一次渲染。
type View struct {
	Bounds          []geom.Bounds
	Overlays        []template.TextOverlay
	Logo            *template.LogoOverlay
	SelectedID      string
	MovementEnabled bool
	LogoDraggable   bool
}

// Handlers receive the controller's notifications. Any of them may be nil.
type Handlers struct {
	// OnLeftClick 在一次未发生拖动的主键释放后触发，target 为按列表顺序第一个命中的叠加层。
	OnLeftClick func(p geom.Point, target *template.TextOverlay)
	// OnContextMenu 同时给出缓冲区坐标与页面坐标；拖拽中不会触发。
	OnContextMenu func(p, page geom.Point, target *template.TextOverlay)

	OnOverlayDragStart      func(id string)
	OnOverlayPositionUpdate func(id string, x, y float64)
	OnOverlayDragEnd        func(id string)
	OnLogoPositionUpdate    func(x, y float64)
}

// Controller is the drag/selection state machine. It owns no overlay storage:
// positions flow out through Handlers and come back in the next View.
type Controller struct {
	h       Handlers
	drag    *DragContext
	didDrag bool
	// 指针是否悬停在可移动的选中叠加层上
	hover bool
}

// NewController creates an idle controller.
func NewController(h Handlers) *Controller {
	return &Controller{h: h}
}

// State returns the current drag state.
func (c *Controller) State() State {
	if c.drag == nil {
		return StateIdle
	}
	if c.drag.Kind == DragLogo {
		return StateDraggingLogo
	}
	return StateDraggingText
}

// Drag returns the active drag context, if any.
func (c *Controller) Drag() (DragContext, bool) {
	if c.drag == nil {
		return DragContext{}, false
	}
	return *c.drag, true
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool { return c.drag != nil }

// Press handles a button press at buffer point p and reports whether a drag started.
//
// 只有主键参与拖拽。先尝试拖动当前选中的文本（需要允许移动且按下点位于其命中框内），
// 失败后再尝试 logo（需要 logo 可拖拽且按下点位于裁剪圆内）。未选中的文本不能在同一手势中被拖动。
func (c *Controller) Press(v View, p geom.Point, b Button) bool {
	if b != ButtonPrimary {
		return false
	}
	if c.drag != nil {
		// 单一拖拽槽位
		return false
	}
	c.didDrag = false

	if v.MovementEnabled && v.SelectedID != "" {
		bounds, okB := geom.Find(v.Bounds, v.SelectedID)
		overlay, okO := template.FindOverlay(v.Overlays, v.SelectedID)
		if okB && okO && bounds.Contains(p) {
			c.drag = &DragContext{
				Kind:   DragText,
				ID:     overlay.ID,
				Offset: p.Sub(geom.Point{X: overlay.X, Y: overlay.Y}),
			}
			if c.h.OnOverlayDragStart != nil {
				c.h.OnOverlayDragStart(overlay.ID)
			}
			return true
		}
	}

	if v.LogoDraggable && v.Logo != nil {
		logo := v.Logo
		if (geom.Circle{X: logo.X, Y: logo.Y, R: logo.Radius}).Contains(p) {
			c.drag = &DragContext{
				Kind:   DragLogo,
				ID:     logo.ID,
				Offset: p.Sub(geom.Point{X: logo.X, Y: logo.Y}),
			}
			return true
		}
	}
	return false
}

// Move handles pointer movement. While dragging it emits the new anchor
// position; otherwise it only tracks hover for Cursor.
func (c *Controller) Move(v View, p geom.Point) {
	if c.drag != nil {
		c.didDrag = true
		pos := p.Sub(c.drag.Offset)
		switch c.drag.Kind {
		case DragText:
			if c.h.OnOverlayPositionUpdate != nil {
				c.h.OnOverlayPositionUpdate(c.drag.ID, pos.X, pos.Y)
			}
		case DragLogo:
			if c.h.OnLogoPositionUpdate != nil {
				c.h.OnLogoPositionUpdate(pos.X, pos.Y)
			}
		}
		return
	}
	c.hover = false
	if v.MovementEnabled && v.SelectedID != "" {
		if b, ok := geom.Find(v.Bounds, v.SelectedID); ok && b.Contains(p) {
			c.hover = true
		}
	}
}

// Release handles a button release. Any button ends an active drag; a primary
// release with no movement since the press is reported as a click.
func (c *Controller) Release(v View, p geom.Point, b Button) {
	if b != ButtonPrimary {
		c.endDrag()
		return
	}
	c.endDrag()
	if !c.didDrag && c.h.OnLeftClick != nil {
		c.h.OnLeftClick(p, hitOverlay(v, p))
	}
	c.didDrag = false
}

// Leave 指针离开画布：隐式取消拖拽（文本拖拽会收到结束通知）。
func (c *Controller) Leave() {
	c.endDrag()
	c.hover = false
	c.didDrag = false
}

// ContextMenu handles a secondary-button request. It is suppressed while dragging.
func (c *Controller) ContextMenu(v View, p, page geom.Point) {
	if c.drag != nil || c.h.OnContextMenu == nil {
		return
	}
	c.h.OnContextMenu(p, page, hitOverlay(v, p))
}

// Cursor derives the cursor affordance from the current state.
func (c *Controller) Cursor(v View) string {
	switch {
	case c.drag != nil:
		return CursorGrabbing
	case c.hover && v.MovementEnabled:
		return CursorMove
	case c.h.OnLeftClick != nil:
		return CursorPointer
	default:
		return CursorCrosshair
	}
}

func (c *Controller) endDrag() {
	if c.drag == nil {
		return
	}
	d := c.drag
	c.drag = nil
	if d.Kind == DragText && c.h.OnOverlayDragEnd != nil {
		c.h.OnOverlayDragEnd(d.ID)
	}
}

// hitOverlay 按命中框顺序返回第一个包含 p 且仍存在于叠加层列表中的叠加层。
func hitOverlay(v View, p geom.Point) *template.TextOverlay {
	for _, b := range v.Bounds {
		if !b.Contains(p) {
			continue
		}
		if o, ok := template.FindOverlay(v.Overlays, b.ID); ok {
			return &o
		}
	}
	return nil
}
