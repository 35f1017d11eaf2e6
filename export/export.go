// Package export renders a template at its full resolution, independent of
// the (possibly downscaled) interactive preview, and writes it as PNG.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ByLCY/stencil/imageload"
	"github.com/ByLCY/stencil/renderer"
	"github.com/ByLCY/stencil/template"
)

// ErrExport 标记导出失败：任一图片无法解析或合成失败时中止，不产生部分结果。
var ErrExport = errors.New("export failed")

// ImageSource starts asynchronous image resolution. *imageload.Loader implements it.
type ImageSource interface {
	Load(ctx context.Context, src string) *imageload.Future
}

// Options configures an Exporter.
type Options struct {
	Compositor      renderer.Compositor
	Images          ImageSource
	BackgroundColor color.Color
	Logger          *slog.Logger
}

// Exporter replays compositing onto an offscreen buffer.
type Exporter struct {
	comp   renderer.Compositor
	images ImageSource
	bg     color.Color
	log    *slog.Logger
}

// Request 是一次导出的输入。Config 中的叠加层位置应已包含会话内的拖拽结果。
type Request struct {
	Config template.ImageConfig
	Edits  template.UserEdits
}

// New creates an Exporter.
func New(opts Options) (*Exporter, error) {
	if opts.Compositor == nil || opts.Images == nil {
		return nil, fmt.Errorf("导出器缺少合成器或图片来源")
	}
	e := &Exporter{comp: opts.Compositor, images: opts.Images, bg: opts.BackgroundColor, log: opts.Logger}
	if e.bg == nil {
		e.bg = color.White
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e, nil
}

// Export 以模板的权威分辨率重新合成。背景与 logo 依次重新解析并等待完成，
// 任一失败都以 ErrExport 中止。导出图不含选中框与拖拽指示环。
func (e *Exporter) Export(ctx context.Context, req Request) (*image.RGBA, error) {
	cfg := req.Config
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return nil, fmt.Errorf("%w: 模板尺寸无效 %dx%d", ErrExport, cfg.CanvasWidth, cfg.CanvasHeight)
	}

	bg, err := e.images.Load(ctx, cfg.ImageURL).Await(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: 背景: %w", ErrExport, err)
	}

	frame := &renderer.Frame{
		Width:           cfg.CanvasWidth,
		Height:          cfg.CanvasHeight,
		Background:      bg,
		BackgroundColor: e.bg,
		Texts:           renderer.TextLayers(cfg.Overlays, req.Edits),
	}

	if logo := cfg.LogoOverlay; logo != nil {
		if src := template.LogoURL(logo, req.Edits); src != "" {
			img, err := e.images.Load(ctx, src).Await(ctx)
			if err != nil {
				return nil, fmt.Errorf("%w: logo: %w", ErrExport, err)
			}
			frame.Logo = &renderer.LogoLayer{Image: img, X: logo.X, Y: logo.Y, R: logo.Radius}
		}
	}

	res, err := e.comp.Compose(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	e.log.Info("template exported", "template", cfg.ID, "width", cfg.CanvasWidth, "height", cfg.CanvasHeight)
	return res.Image, nil
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("%w: 编码 PNG 失败: %w", ErrExport, err)
	}
	return nil
}

// Filename returns the download name for a template.
func Filename(cfg template.ImageConfig) string {
	return template.ExportFilename(cfg.Name)
}

// WriteFile exports req into dir under Filename and returns the written path.
// 先写入临时文件再重命名，失败时目录中不会留下部分文件。
func (e *Exporter) WriteFile(ctx context.Context, dir string, req Request) (string, error) {
	img, err := e.Export(ctx, req)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, Filename(req.Config))
	if err := writeAtomic(path, img); err != nil {
		return "", err
	}
	return path, nil
}

// WritePNG 原子地把 img 写到 path。
func WritePNG(path string, img image.Image) error {
	return writeAtomic(path, img)
}

func writeAtomic(path string, img image.Image) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.png")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	defer os.Remove(tmp.Name())
	if err := Encode(tmp, img); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %w", ErrExport, err)
	}
	return nil
}
