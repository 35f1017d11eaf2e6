package export

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ByLCY/stencil/imageload"
	"github.com/ByLCY/stencil/renderer"
	canvasrenderer "github.com/ByLCY/stencil/renderer/canvas"
	"github.com/ByLCY/stencil/template"
)

type fakeImages map[string]image.Image

func (m fakeImages) Load(_ context.Context, src string) *imageload.Future {
	if img, ok := m[src]; ok {
		return imageload.Resolved(src, img)
	}
	return imageload.Rejected(src, errors.New("unreachable"))
}

type recordingCompositor struct {
	frame *renderer.Frame
}

func (r *recordingCompositor) Compose(fr *renderer.Frame) (*renderer.Result, error) {
	r.frame = fr
	return &renderer.Result{Image: image.NewRGBA(image.Rect(0, 0, fr.Width, fr.Height))}, nil
}

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func sampleConfig() template.ImageConfig {
	return template.ImageConfig{
		ID:           "cert",
		Name:         "شهادة تقدير  2024",
		ImageURL:     "bg.png",
		CanvasWidth:  800,
		CanvasHeight: 600,
		Overlays: []template.TextOverlay{
			{ID: "name", Text: "Name", X: 700, Y: 300, FontSize: 32, IsEditableByUser: true, EditKey: template.FieldTeacherName},
		},
		LogoOverlay: &template.LogoOverlay{ID: "logo", ImageURL: "logo.png", X: 100, Y: 100, Radius: 50, IsEditableByUser: true, EditKey: template.FieldLogoURL},
	}
}

func TestExportFailsWhenBackgroundUnresolvable(t *testing.T) {
	comp := &recordingCompositor{}
	e, err := New(Options{Compositor: comp, Images: fakeImages{"logo.png": solid(4, 4, color.White)}})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	_, err = e.WriteFile(context.Background(), dir, Request{Config: sampleConfig()})
	if !errors.Is(err, ErrExport) || !errors.Is(err, imageload.ErrImageLoad) {
		t.Fatalf("期望 ErrExport 包装的图片错误，得到 %v", err)
	}
	if comp.frame != nil {
		t.Fatalf("背景失败时不应进行合成")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("失败的导出不应留下文件: %v", entries)
	}
}

func TestExportFailsWhenLogoUnresolvable(t *testing.T) {
	e, _ := New(Options{Compositor: &recordingCompositor{}, Images: fakeImages{"bg.png": solid(4, 4, color.White)}})
	_, err := e.Export(context.Background(), Request{Config: sampleConfig()})
	if !errors.Is(err, ErrExport) {
		t.Fatalf("logo 失败应中止导出: %v", err)
	}
}

func TestExportUsesTemplateResolutionAndEdits(t *testing.T) {
	comp := &recordingCompositor{}
	images := fakeImages{
		"bg.png":        solid(4, 3, color.White),
		"logo.png":      solid(2, 2, color.Black),
		"user-logo.png": solid(3, 3, color.Black),
	}
	e, _ := New(Options{Compositor: comp, Images: images})
	cfg := sampleConfig()
	cfg.Overlays[0].X = 650 // 会话内拖拽后的位置
	edits := template.UserEdits{template.FieldTeacherName: "Ahmad", template.FieldLogoURL: "user-logo.png"}

	img, err := e.Export(context.Background(), Request{Config: cfg, Edits: edits})
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
		t.Fatalf("导出尺寸错误: %v", img.Bounds())
	}
	fr := comp.frame
	if fr.Texts[0].Text != "Ahmad" || fr.Texts[0].X != 650 {
		t.Fatalf("导出应使用编辑值与拖拽位置: %+v", fr.Texts[0])
	}
	if fr.Texts[0].Highlight != renderer.HighlightNone {
		t.Fatalf("导出不应包含选中装饰")
	}
	if fr.Logo == nil || fr.Logo.Image.Bounds().Dx() != 3 || fr.Logo.Ring != renderer.RingNone {
		t.Fatalf("导出应使用用户 logo 且不画指示环: %+v", fr.Logo)
	}

	edits[template.FieldLogoURL] = ""
	if _, err := e.Export(context.Background(), Request{Config: cfg, Edits: edits}); err != nil {
		t.Fatal(err)
	}
	if comp.frame.Logo != nil {
		t.Fatalf("logo 编辑值为空时不应绘制 logo")
	}
}

func TestExportRejectsMissingSize(t *testing.T) {
	e, _ := New(Options{Compositor: &recordingCompositor{}, Images: fakeImages{}})
	cfg := sampleConfig()
	cfg.CanvasWidth = 0
	if _, err := e.Export(context.Background(), Request{Config: cfg}); !errors.Is(err, ErrExport) {
		t.Fatalf("尺寸无效应报 ErrExport: %v", err)
	}
}

func TestWriteFileProducesNamedPNG(t *testing.T) {
	e, err := New(Options{
		Compositor: canvasrenderer.NewRenderer(""),
		Images:     fakeImages{"bg.png": solid(8, 6, color.RGBA{0, 0, 255, 255}), "logo.png": solid(4, 4, color.White)},
	})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	path, err := e.WriteFile(context.Background(), dir, Request{Config: sampleConfig()})
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if filepath.Base(path) != "شهادة_تقدير_2024_modified.png" {
		t.Fatalf("文件名错误: %s", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("输出不是合法 PNG: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
		t.Fatalf("PNG 尺寸错误: %v", img.Bounds())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("目录中应只有导出文件: %v", entries)
	}
}

func TestThumbnail(t *testing.T) {
	src := solid(1200, 600, color.White)
	th := Thumbnail(src, 300, 300)
	if th.Bounds().Dx() != 300 || th.Bounds().Dy() != 150 {
		t.Fatalf("缩略图尺寸错误: %v", th.Bounds())
	}
	small := Thumbnail(solid(10, 10, color.White), 300, 300)
	if small.Bounds().Dx() != 10 {
		t.Fatalf("缩略图不应放大: %v", small.Bounds())
	}
}

func TestWriteBoundsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bounds.json")
	if err := WriteBoundsJSON(nil, path); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "[]" {
		t.Fatalf("空命中框应输出 []: %s", data)
	}
}
