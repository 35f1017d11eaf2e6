// Package session hosts one template editing session: it owns the working
// copy of the template, the user's edits and the selection, and wires them
// to the interactive preview and the exporter.
package session

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/ByLCY/stencil/editor"
	"github.com/ByLCY/stencil/export"
	"github.com/ByLCY/stencil/geom"
	"github.com/ByLCY/stencil/renderer"
	"github.com/ByLCY/stencil/template"
)

// Options configures a Session.
type Options struct {
	Compositor      renderer.Compositor
	Images          editor.ImageSource
	MaxWidth        int
	MaxHeight       int
	BackgroundColor color.Color

	// Admin 会话允许选中任意叠加层、拖动 logo，并通过右键菜单修改或删除叠加层。
	Admin bool

	// OnNotice 接收面向用户的非致命提示（例如背景或 logo 加载失败）。
	OnNotice       func(msg string, err error)
	OnDrawComplete func(img *image.RGBA)
	Logger         *slog.Logger
}

// MenuRequest 是一次右键菜单请求：目标叠加层（可能为空）与缓冲区/页面坐标。
type MenuRequest struct {
	Target *template.TextOverlay
	Point  geom.Point
	Page   geom.Point
}

// Session is single-goroutine: every method must be called from the goroutine
// that drives the preview.
type Session struct {
	opts   Options
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	cfg      template.ImageConfig
	edits    template.UserEdits
	selected string
	dragging bool
	bgErr    error
	menu     *MenuRequest

	canvas   *editor.Canvas
	exporter *export.Exporter
}

// Open starts a session on a copy of cfg and seeds the edits with the
// template defaults.
func Open(ctx context.Context, opts Options, cfg template.ImageConfig) (*Session, error) {
	if opts.BackgroundColor == nil {
		opts.BackgroundColor = color.White
	}
	s := &Session{
		opts:  opts,
		log:   opts.Logger,
		cfg:   cfg.Clone(),
		edits: template.InitialEdits(cfg),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	exp, err := export.New(export.Options{
		Compositor:      opts.Compositor,
		Images:          opts.Images,
		BackgroundColor: opts.BackgroundColor,
		Logger:          s.log,
	})
	if err != nil {
		s.cancel()
		return nil, err
	}
	s.exporter = exp

	canvas, err := editor.NewCanvas(s.ctx, editor.Options{
		Compositor:       opts.Compositor,
		Images:           opts.Images,
		MaxWidth:         opts.MaxWidth,
		MaxHeight:        opts.MaxHeight,
		Handlers:         s.handlers(),
		OnDrawComplete:   opts.OnDrawComplete,
		OnImageLoadError: s.onImageLoadError,
		OnLogoLoadError:  s.onLogoLoadError,
		Logger:           s.log,
	}, s.props())
	if err != nil {
		s.cancel()
		return nil, err
	}
	s.canvas = canvas
	s.log.Info("session opened", "template", cfg.ID, "admin", opts.Admin)
	return s, nil
}

// Close cancels outstanding image loads.
func (s *Session) Close() { s.cancel() }

// Canvas exposes the preview.
func (s *Session) Canvas() *editor.Canvas { return s.canvas }

// Config returns a copy of the working template, including drag results.
func (s *Session) Config() template.ImageConfig { return s.cfg.Clone() }

// Edits returns a copy of the current edits.
func (s *Session) Edits() template.UserEdits { return s.edits.Clone() }

// Selected returns the selected overlay id, or "" when nothing is selected.
func (s *Session) Selected() string { return s.selected }

// Dragging reports whether the selected overlay is being dragged.
func (s *Session) Dragging() bool { return s.dragging }

// BackgroundError returns the preview's background load failure, if any.
func (s *Session) BackgroundError() error { return s.bgErr }

// Wait blocks until the preview's images have settled.
func (s *Session) Wait(ctx context.Context) error { return s.canvas.Wait(ctx) }

// Render composites the preview with the current state.
func (s *Session) Render() (*renderer.Result, error) { return s.canvas.Render() }

// SetDisplayRect records the on-screen rectangle of the preview.
func (s *Session) SetDisplayRect(r geom.Rect) { s.canvas.SetDisplayRect(r) }

// Cursor returns the preview's cursor affordance.
func (s *Session) Cursor() string { return s.canvas.Cursor() }

// SetEdit 更新一个字段的值并刷新预览输入。
func (s *Session) SetEdit(key template.EditableFieldKey, value string) error {
	if !key.Valid() {
		return fmt.Errorf("未知的字段 %q", key)
	}
	s.edits.Set(key, value)
	return s.refresh()
}

// Select 直接设置选中项（例如键盘导航）。空字符串表示取消选中。
func (s *Session) Select(id string) error {
	if id == "" {
		s.selected = ""
		return s.refresh()
	}
	o, ok := s.cfg.Overlay(id)
	if !ok {
		return fmt.Errorf("叠加层 %s 不存在", id)
	}
	if !s.selectable(o) {
		return fmt.Errorf("叠加层 %s 不可编辑", id)
	}
	s.selected = id
	return s.refresh()
}

// PointerDown 转发按下事件并重新渲染。
func (s *Session) PointerDown(client geom.Point, b editor.Button) error {
	s.canvas.PointerDown(client, b)
	return s.rerender()
}

// PointerMove 转发移动事件；只有拖拽中才需要重新渲染。
func (s *Session) PointerMove(client geom.Point) error {
	s.canvas.PointerMove(client)
	if !s.canvas.Controller().Dragging() {
		return nil
	}
	return s.rerender()
}

// PointerUp 转发释放事件并重新渲染。
func (s *Session) PointerUp(client geom.Point, b editor.Button) error {
	s.canvas.PointerUp(client, b)
	return s.rerender()
}

// PointerLeave 转发离开事件并重新渲染。
func (s *Session) PointerLeave() error {
	s.canvas.PointerLeave()
	return s.rerender()
}

// ContextMenu 转发右键菜单请求；只有管理会话会记录菜单。
func (s *Session) ContextMenu(client, page geom.Point) {
	s.canvas.ContextMenu(client, page)
}

// Menu returns the pending context-menu request, if any.
func (s *Session) Menu() (MenuRequest, bool) {
	if s.menu == nil {
		return MenuRequest{}, false
	}
	return *s.menu, true
}

// CloseMenu dismisses the pending context menu.
func (s *Session) CloseMenu() { s.menu = nil }

func (s *Session) handlers() editor.Handlers {
	h := editor.Handlers{
		OnLeftClick:             s.onLeftClick,
		OnOverlayDragStart:      s.onDragStart,
		OnOverlayPositionUpdate: s.onPositionUpdate,
		OnOverlayDragEnd:        s.onDragEnd,
	}
	if s.opts.Admin {
		h.OnContextMenu = s.onContextMenu
		h.OnLogoPositionUpdate = s.onLogoPositionUpdate
	}
	return h
}

func (s *Session) onLeftClick(_ geom.Point, target *template.TextOverlay) {
	if s.dragging {
		return
	}
	if target != nil && s.selectable(*target) {
		s.selected = target.ID
	} else {
		s.selected = ""
	}
	s.sync()
}

func (s *Session) onDragStart(id string) {
	if id == s.selected {
		s.dragging = true
	}
}

func (s *Session) onPositionUpdate(id string, x, y float64) {
	if !s.dragging || id != s.selected {
		return
	}
	for i := range s.cfg.Overlays {
		if s.cfg.Overlays[i].ID == id {
			s.cfg.Overlays[i].X, s.cfg.Overlays[i].Y = x, y
		}
	}
	s.sync()
}

func (s *Session) onDragEnd(id string) {
	s.dragging = false
	s.log.Debug("overlay moved", "overlay", id)
}

func (s *Session) onLogoPositionUpdate(x, y float64) {
	if s.cfg.LogoOverlay == nil {
		return
	}
	s.cfg.LogoOverlay.X, s.cfg.LogoOverlay.Y = x, y
	s.sync()
}

func (s *Session) onContextMenu(p, page geom.Point, target *template.TextOverlay) {
	s.menu = &MenuRequest{Target: target, Point: p, Page: page}
}

func (s *Session) onImageLoadError(err error) {
	s.bgErr = err
	s.notice("تعذر تحميل صورة الخلفية.", err)
}

func (s *Session) onLogoLoadError(err error) {
	s.notice("تعذر تحميل صورة الشعار.", err)
}

func (s *Session) notice(msg string, err error) {
	s.log.Warn("session notice", "template", s.cfg.ID, "msg", msg, "err", err)
	if s.opts.OnNotice != nil {
		s.opts.OnNotice(msg, err)
	}
}

// selectable 用户会话只能选中可编辑的叠加层，管理会话可以选中任意叠加层。
func (s *Session) selectable(o template.TextOverlay) bool {
	return s.opts.Admin || o.IsEditableByUser
}

func (s *Session) props() editor.Props {
	return editor.Props{
		ImageURL:        s.cfg.ImageURL,
		Overlays:        s.cfg.Overlays,
		Logo:            s.cfg.LogoOverlay,
		Edits:           s.edits,
		Width:           s.cfg.CanvasWidth,
		Height:          s.cfg.CanvasHeight,
		BackgroundColor: s.opts.BackgroundColor,
		SelectedID:      s.selected,
		MovementEnabled: true,
		LogoDraggable:   s.opts.Admin && s.cfg.LogoOverlay != nil,
	}
}

func (s *Session) sync() {
	if s.canvas != nil {
		s.canvas.SetProps(s.ctx, s.props())
	}
}

// refresh 同步属性并立即重新渲染，保证下一次指针事件命中的是最新的命中框。
func (s *Session) refresh() error {
	s.sync()
	return s.rerender()
}

func (s *Session) rerender() error {
	_, err := s.canvas.Render()
	return err
}
