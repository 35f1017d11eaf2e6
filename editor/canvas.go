package editor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/ByLCY/stencil/geom"
	"github.com/ByLCY/stencil/imageload"
	"github.com/ByLCY/stencil/renderer"
	"github.com/ByLCY/stencil/template"
)

// ImageSource starts asynchronous image resolution. *imageload.Loader implements it.
type ImageSource interface {
	Load(ctx context.Context, src string) *imageload.Future
}

// Props 是宿主每次传入的渲染输入。Canvas 不修改其中的叠加层，位置变化通过 Handlers 交还宿主。
type Props struct {
	ImageURL        string
	Overlays        []template.TextOverlay
	Logo            *template.LogoOverlay
	Edits           template.UserEdits
	Width, Height   int // 显式尺寸；任一为 0 时由背景图推导
	BackgroundColor color.Color
	SelectedID      string
	MovementEnabled bool
	LogoDraggable   bool
}

// Options wires a Canvas to its collaborators.
type Options struct {
	Compositor renderer.Compositor
	Images     ImageSource
	MaxWidth   int
	MaxHeight  int
	Handlers   Handlers

	// OnDrawComplete 在每次合成完成后收到像素缓冲区（例如用于生成缩略图）。
	OnDrawComplete   func(img *image.RGBA)
	OnImageLoadError func(err error)
	OnLogoLoadError  func(err error)

	Logger *slog.Logger
}

// Canvas owns the preview buffer, the most recent hit-boxes and the drag
// controller. It is driven from a single goroutine; only image futures settle
// in the background and are polled before each composite.
type Canvas struct {
	opts Options
	log  *slog.Logger
	ctrl *Controller

	props   Props
	started bool

	bg           *imageload.Future
	bgReported   bool
	logo         *imageload.Future
	logoSrc      string
	logoReported bool

	width, height int
	bounds        []geom.Bounds
	frame         *image.RGBA
	display       geom.Rect
}

// NewCanvas creates a canvas and starts loading the images named by props.
func NewCanvas(ctx context.Context, opts Options, props Props) (*Canvas, error) {
	if opts.Compositor == nil {
		return nil, fmt.Errorf("未指定合成器")
	}
	if opts.Images == nil {
		return nil, fmt.Errorf("未指定图片来源")
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = template.MaxCanvasWidth
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = template.MaxCanvasHeight
	}
	c := &Canvas{opts: opts, log: opts.Logger, ctrl: NewController(opts.Handlers)}
	if c.log == nil {
		c.log = slog.Default()
	}
	c.SetProps(ctx, props)
	c.width, c.height = c.bufferSize(nil)
	return c, nil
}

// SetProps replaces the render inputs. Images are reloaded only when their
// source changed.
func (c *Canvas) SetProps(ctx context.Context, props Props) {
	prevBg := c.props.ImageURL
	first := !c.started
	c.started = true
	c.props = props

	if first || props.ImageURL != prevBg {
		c.bg, c.bgReported = nil, false
		if props.ImageURL != "" {
			c.bg = c.opts.Images.Load(ctx, props.ImageURL)
		}
	}

	logoSrc := template.LogoURL(props.Logo, props.Edits)
	if first || logoSrc != c.logoSrc {
		c.logoSrc = logoSrc
		c.logo, c.logoReported = nil, false
		if logoSrc != "" {
			c.logo = c.opts.Images.Load(ctx, logoSrc)
		}
	}
}

// Props returns the current render inputs.
func (c *Canvas) Props() Props { return c.props }

// Controller exposes the drag/selection state machine.
func (c *Canvas) Controller() *Controller { return c.ctrl }

// Wait blocks until both images have settled or ctx is done. Failures are not
// returned: they surface through the load-error callbacks on the next Render.
func (c *Canvas) Wait(ctx context.Context) error {
	for _, f := range []*imageload.Future{c.bg, c.logo} {
		if f == nil {
			continue
		}
		select {
		case <-f.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// BackgroundFailed reports whether the current background failed to load.
func (c *Canvas) BackgroundFailed() bool {
	return c.bg != nil && c.bg.State() == imageload.Failed
}

// Render composites one frame and publishes its hit-boxes.
//
// 顺序：按背景状态确定缓冲区尺寸 → 背景或纯色 → 圆形 logo（含拖拽指示环）→ 文本与选中框。
// 背景与 logo 的加载失败各自独立降级，并分别通知一次。
func (c *Canvas) Render() (*renderer.Result, error) {
	bgImg := c.pollBackground()
	logoImg := c.pollLogo()

	c.width, c.height = c.bufferSize(bgImg)

	drag, dragging := c.ctrl.Drag()
	frame := &renderer.Frame{
		Width:           c.width,
		Height:          c.height,
		Background:      bgImg,
		BackgroundColor: c.props.BackgroundColor,
		Texts:           renderer.TextLayers(c.props.Overlays, c.props.Edits),
	}
	if logo := c.props.Logo; logo != nil && logoImg != nil {
		layer := &renderer.LogoLayer{Image: logoImg, X: logo.X, Y: logo.Y, R: logo.Radius}
		switch {
		case dragging && drag.Kind == DragLogo:
			layer.Ring = renderer.RingDragging
		case c.props.LogoDraggable && !dragging:
			layer.Ring = renderer.RingIdle
		}
		frame.Logo = layer
	}
	for i := range frame.Texts {
		if frame.Texts[i].ID != c.props.SelectedID {
			continue
		}
		if dragging && drag.Kind == DragText && drag.ID == frame.Texts[i].ID {
			frame.Texts[i].Highlight = renderer.HighlightDragging
		} else {
			frame.Texts[i].Highlight = renderer.HighlightSelected
		}
	}

	res, err := c.opts.Compositor.Compose(frame)
	if err != nil {
		return nil, fmt.Errorf("合成预览失败: %w", err)
	}
	c.bounds = res.Bounds
	c.frame = res.Image
	c.log.Debug("preview rendered", "width", c.width, "height", c.height, "overlays", len(res.Bounds))
	if c.opts.OnDrawComplete != nil {
		c.opts.OnDrawComplete(res.Image)
	}
	return res, nil
}

// Bounds returns a copy of the hit-boxes computed by the last Render.
func (c *Canvas) Bounds() []geom.Bounds {
	return append([]geom.Bounds(nil), c.bounds...)
}

// Image returns the last composited buffer, or nil before the first Render.
func (c *Canvas) Image() *image.RGBA { return c.frame }

// Size returns the current buffer size.
func (c *Canvas) Size() (int, int) { return c.width, c.height }

// SetDisplayRect records where the buffer is shown on screen (CSS pixels).
func (c *Canvas) SetDisplayRect(r geom.Rect) { c.display = r }

// DisplayRect returns the last recorded display rectangle.
func (c *Canvas) DisplayRect() geom.Rect { return c.display }

// ToBuffer maps client coordinates into buffer space.
func (c *Canvas) ToBuffer(client geom.Point) geom.Point {
	return geom.ClientToBuffer(client, c.display, c.width, c.height)
}

// View returns the controller snapshot for the current props and bounds.
func (c *Canvas) View() View {
	return View{
		Bounds:          c.bounds,
		Overlays:        c.props.Overlays,
		Logo:            c.props.Logo,
		SelectedID:      c.props.SelectedID,
		MovementEnabled: c.props.MovementEnabled,
		LogoDraggable:   c.props.LogoDraggable,
	}
}

// PointerDown forwards a press at client coordinates.
func (c *Canvas) PointerDown(client geom.Point, b Button) bool {
	return c.ctrl.Press(c.View(), c.ToBuffer(client), b)
}

// PointerMove forwards a move at client coordinates.
func (c *Canvas) PointerMove(client geom.Point) {
	c.ctrl.Move(c.View(), c.ToBuffer(client))
}

// PointerUp forwards a release at client coordinates.
func (c *Canvas) PointerUp(client geom.Point, b Button) {
	c.ctrl.Release(c.View(), c.ToBuffer(client), b)
}

// PointerLeave forwards the pointer leaving the canvas.
func (c *Canvas) PointerLeave() { c.ctrl.Leave() }

// ContextMenu forwards a context-menu request; page is passed through untouched.
func (c *Canvas) ContextMenu(client, page geom.Point) {
	c.ctrl.ContextMenu(c.View(), c.ToBuffer(client), page)
}

// Cursor returns the cursor affordance for the current state.
func (c *Canvas) Cursor() string { return c.ctrl.Cursor(c.View()) }

func (c *Canvas) pollBackground() image.Image {
	if c.bg == nil {
		return nil
	}
	img, st, err := c.bg.Poll()
	if st == imageload.Failed && !c.bgReported {
		c.bgReported = true
		if c.opts.OnImageLoadError != nil {
			c.opts.OnImageLoadError(err)
		}
	}
	return img
}

func (c *Canvas) pollLogo() image.Image {
	if c.logo == nil {
		return nil
	}
	img, st, err := c.logo.Poll()
	if st == imageload.Failed && !c.logoReported {
		c.logoReported = true
		if c.opts.OnLogoLoadError != nil {
			c.opts.OnLogoLoadError(err)
		}
	}
	return img
}

// bufferSize 计算缓冲区尺寸：显式宽高都给出时直接使用；否则背景已加载时按其原始尺寸
// 等比缩进最大范围；背景未就绪或失败时，缺失的维度取最大范围的一半。
func (c *Canvas) bufferSize(bg image.Image) (int, int) {
	p := c.props
	if p.Width > 0 && p.Height > 0 {
		return p.Width, p.Height
	}
	if bg != nil {
		b := bg.Bounds()
		if !b.Empty() {
			return geom.FitSize(b.Dx(), b.Dy(), c.opts.MaxWidth, c.opts.MaxHeight)
		}
	}
	w, h := p.Width, p.Height
	if w <= 0 {
		w = c.opts.MaxWidth / 2
	}
	if h <= 0 {
		h = c.opts.MaxHeight / 2
	}
	return w, h
}
