package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	xdraw "golang.org/x/image/draw"

	"github.com/ByLCY/stencil/fonts"
	"github.com/ByLCY/stencil/geom"
	"github.com/ByLCY/stencil/renderer"
	"github.com/ByLCY/stencil/template"
)

// 画布以 1mm = 1px 的比例栅格化，因此 canvas 的长度单位即缓冲区像素。
const (
	pxPerMM = 1.0
	mmToPt  = 72.0 / 25.4
)

var (
	highlightSelectedColor = canvas.RGBA(0, 150.0/255.0, 1, 0.7)
	highlightDraggingColor = canvas.RGBA(1, 100.0/255.0, 0, 0.9)
	ringIdleColor          = canvas.RGBA(0, 200.0/255.0, 1, 0.5)
	ringDraggingColor      = highlightDraggingColor
	transparent            = color.RGBA{0, 0, 0, 0}
)

// Renderer composites frames via github.com/tdewolff/canvas.
type Renderer struct {
	baseDir string
	log     *slog.Logger

	// registered font sources, keyed by lower-case family name
	fontSources map[string][]FontResource

	fontMu         sync.Mutex
	fontFamilies   map[string]*fontFamilyEntry
	fallbackFamily *fontFamilyEntry
}

var (
	_ renderer.Compositor = (*Renderer)(nil)
	_ renderer.Measurer   = (*Renderer)(nil)
)

type fontFamilyEntry struct {
	family *canvas.FontFamily
	styles map[canvas.FontStyle]bool
}

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Fonts   []FontResource
	Logger  *slog.Logger
}

// FontResource registers one weight of a font family. Src may be a path
// (relative to BaseDir), "embed:<name>" for a built-in font, or empty when
// Bytes is set.
type FontResource struct {
	Family string
	Weight template.FontWeight
	Src    string
	Bytes  []byte
}

// NewRenderer creates a renderer that only knows the built-in fonts.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with registered font families.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		log:          opts.Logger,
		fontSources:  map[string][]FontResource{},
		fontFamilies: map[string]*fontFamilyEntry{},
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	for _, res := range opts.Fonts {
		key := familyKey(res.Family)
		if key == "" {
			continue
		}
		r.fontSources[key] = append(r.fontSources[key], res)
	}
	return r
}

// Compose 按固定顺序合成一帧：调整缓冲区尺寸、背景（图片或纯色）、圆形 logo、文本与选中框。
func (r *Renderer) Compose(frame *renderer.Frame) (*renderer.Result, error) {
	if frame == nil {
		return nil, fmt.Errorf("渲染帧为空")
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return nil, fmt.Errorf("画布尺寸无效: %dx%d", frame.Width, frame.Height)
	}

	w, h := float64(frame.Width), float64(frame.Height)
	c := canvas.New(w, h)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 左上角为原点，与缓冲区像素坐标一致

	r.drawBackground(ctx, frame)
	r.drawLogo(ctx, frame.Logo)
	bounds, err := r.drawTexts(ctx, frame.Texts)
	if err != nil {
		return nil, err
	}

	img := rasterizer.Draw(c, canvas.DPMM(pxPerMM), canvas.DefaultColorSpace)
	return &renderer.Result{Image: img, Bounds: bounds}, nil
}

// MeasureText 实现 renderer.Measurer，返回文本的像素宽度。
func (r *Renderer) MeasureText(text string, font renderer.Font) (float64, error) {
	face, err := r.fontFace(font, color.Black)
	if err != nil {
		return 0, err
	}
	return face.TextWidth(text), nil
}

func (r *Renderer) drawBackground(ctx *canvas.Context, frame *renderer.Frame) {
	w, h := float64(frame.Width), float64(frame.Height)
	if frame.Background != nil && !frame.Background.Bounds().Empty() {
		// 拉伸铺满，不保持宽高比
		ctx.FitImage(frame.Background, canvas.Rect{X0: 0, Y0: 0, X1: w, Y1: h}, canvas.ImageFill)
		return
	}
	fill := frame.BackgroundColor
	if fill == nil {
		fill = color.White
	}
	ctx.Push()
	ctx.SetFillColor(fill)
	ctx.SetStrokeColor(transparent)
	ctx.DrawPath(0, 0, canvas.Rectangle(w, h))
	ctx.Pop()
}

func (r *Renderer) drawLogo(ctx *canvas.Context, logo *renderer.LogoLayer) {
	if logo == nil || logo.Image == nil || logo.R <= 0 {
		return
	}
	clipped := clipCircle(logo.Image, logo.R)
	ctx.FitImage(clipped, canvas.Rect{
		X0: logo.X - logo.R,
		Y0: logo.Y - logo.R,
		X1: logo.X + logo.R,
		Y1: logo.Y + logo.R,
	}, canvas.ImageFill)

	switch logo.Ring {
	case renderer.RingDragging:
		strokeCircle(ctx, logo.X, logo.Y, logo.R, ringDraggingColor, 3, 4, 2)
	case renderer.RingIdle:
		strokeCircle(ctx, logo.X, logo.Y, logo.R, ringIdleColor, 2, 6, 3)
	}
}

func (r *Renderer) drawTexts(ctx *canvas.Context, texts []renderer.TextLayer) ([]geom.Bounds, error) {
	bounds := make([]geom.Bounds, 0, len(texts))
	for _, tl := range texts {
		col := tl.Color
		if col == nil {
			col = color.Black
		}
		face, err := r.fontFace(tl.Font, col)
		if err != nil {
			return nil, err
		}
		// 右对齐：文本在锚点 (X, Y) 左侧绘制，Y 为基线
		ctx.DrawText(tl.X, tl.Y, canvas.NewTextLine(face, tl.Text, canvas.Right))

		b := geom.TextBounds(tl.ID, tl.X, tl.Y, face.TextWidth(tl.Text), tl.Font.Size)
		bounds = append(bounds, b)

		switch tl.Highlight {
		case renderer.HighlightSelected:
			strokeRect(ctx, b.Pad(geom.HighlightPadding), highlightSelectedColor, 2)
		case renderer.HighlightDragging:
			strokeRect(ctx, b.Pad(geom.HighlightPadding), highlightDraggingColor, 3, 4, 2)
		}
	}
	return bounds, nil
}

func strokeRect(ctx *canvas.Context, b geom.Bounds, col color.Color, width float64, dashes ...float64) {
	ctx.Push()
	defer ctx.Pop()
	ctx.SetFillColor(transparent)
	ctx.SetStrokeColor(col)
	ctx.SetStrokeWidth(width)
	ctx.SetDashes(0, dashes...)
	ctx.DrawPath(b.X1, b.Y1, canvas.Rectangle(b.Width(), b.Height()))
}

func strokeCircle(ctx *canvas.Context, cx, cy, radius float64, col color.Color, width float64, dashes ...float64) {
	ctx.Push()
	defer ctx.Pop()
	ctx.SetFillColor(transparent)
	ctx.SetStrokeColor(col)
	ctx.SetStrokeWidth(width)
	ctx.SetDashes(0, dashes...)
	p := canvas.Circle(radius)
	// 以路径自身的包围盒居中，不依赖 Circle 的原点约定
	pb := p.Bounds()
	ctx.DrawPath(cx-(pb.X0+pb.X1)/2, cy-(pb.Y0+pb.Y1)/2, p)
}

// clipCircle 将 logo 拉伸进直径为 2r 的正方形（不保持宽高比），并把圆外像素置为透明。
func clipCircle(src image.Image, radius float64) *image.RGBA {
	d := int(math.Ceil(2 * radius))
	if d < 1 {
		d = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, d, d))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)

	cr := float64(d) / 2
	for y := 0; y < d; y++ {
		for x := 0; x < d; x++ {
			dist := math.Hypot(float64(x)+0.5-cr, float64(y)+0.5-cr)
			coverage := cr - dist + 0.5 // 边缘一个像素内做线性抗锯齿
			if coverage >= 1 {
				continue
			}
			i := dst.PixOffset(x, y)
			if coverage <= 0 {
				dst.Pix[i+0], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = 0, 0, 0, 0
				continue
			}
			for k := 0; k < 4; k++ {
				dst.Pix[i+k] = uint8(float64(dst.Pix[i+k]) * coverage)
			}
		}
	}
	return dst
}

func (r *Renderer) fontFace(font renderer.Font, col color.Color) (*canvas.FontFace, error) {
	entry, err := r.resolveFamily(font.Family)
	if err != nil {
		return nil, err
	}
	style := canvas.FontRegular
	if font.Weight == template.FontWeightBold && entry.styles[canvas.FontBold] {
		style = canvas.FontBold
	}
	size := font.Size
	if size <= 0 {
		size = template.DefaultFontSize
	}
	// 字号为像素（=mm），canvas 字体面需要 pt
	return entry.family.Face(size*mmToPt, col, style, canvas.FontNormal), nil
}

// resolveFamily 按 CSS 字体列表顺序查找已注册的字体族，都不存在时使用内置字体。
func (r *Renderer) resolveFamily(families string) (*fontFamilyEntry, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	for _, name := range strings.Split(families, ",") {
		key := familyKey(name)
		if key == "" {
			continue
		}
		if entry, ok := r.fontFamilies[key]; ok {
			return entry, nil
		}
		sources, ok := r.fontSources[key]
		if !ok {
			continue
		}
		entry, err := r.loadFamily(key, sources)
		if err != nil {
			// 注册的字体不可用时继续尝试列表中的下一个
			r.log.Warn("font family unavailable", "family", key, "err", err)
			delete(r.fontSources, key)
			continue
		}
		r.fontFamilies[key] = entry
		return entry, nil
	}
	return r.fallback()
}

func (r *Renderer) loadFamily(name string, sources []FontResource) (*fontFamilyEntry, error) {
	family := canvas.NewFontFamily(name)
	entry := &fontFamilyEntry{family: family, styles: map[canvas.FontStyle]bool{}}
	for _, res := range sources {
		data, err := r.loadFontBytes(res)
		if err != nil {
			return nil, err
		}
		style := parseFontStyle(res.Weight)
		if err := family.LoadFont(data, 0, style); err != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", name, err)
		}
		entry.styles[style] = true
	}
	if !entry.styles[canvas.FontRegular] {
		return nil, fmt.Errorf("字体 %s 缺少常规字重", name)
	}
	return entry, nil
}

func (r *Renderer) loadFontBytes(res FontResource) ([]byte, error) {
	if len(res.Bytes) > 0 {
		return res.Bytes, nil
	}
	src := res.Src
	if src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", res.Family)
	}
	if strings.HasPrefix(src, "embed:") {
		return fonts.Load(src)
	}
	path := src
	if r.baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 embed: 或绝对路径）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

// fallback 返回内置 Go 字体族（常规 + 粗体），调用方需持有 fontMu。
func (r *Renderer) fallback() (*fontFamilyEntry, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	entry, err := r.loadFamily("stencil-fallback", []FontResource{
		{Family: "stencil-fallback", Weight: template.FontWeightNormal, Src: "embed:" + fonts.Regular},
		{Family: "stencil-fallback", Weight: template.FontWeightBold, Src: "embed:" + fonts.Bold},
	})
	if err != nil {
		return nil, err
	}
	r.fallbackFamily = entry
	return entry, nil
}

func parseFontStyle(weight template.FontWeight) canvas.FontStyle {
	if weight == template.FontWeightBold {
		return canvas.FontBold
	}
	return canvas.FontRegular
}

func familyKey(name string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(name), `"'`))
}
