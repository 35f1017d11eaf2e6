package session

import (
	"context"
	"errors"
	"image"
	"testing"
	"unicode/utf8"

	"github.com/ByLCY/stencil/editor"
	"github.com/ByLCY/stencil/export"
	"github.com/ByLCY/stencil/geom"
	"github.com/ByLCY/stencil/imageload"
	"github.com/ByLCY/stencil/renderer"
	"github.com/ByLCY/stencil/template"
)

type fakeCompositor struct{}

func (fakeCompositor) Compose(fr *renderer.Frame) (*renderer.Result, error) {
	bounds := make([]geom.Bounds, 0, len(fr.Texts))
	for _, t := range fr.Texts {
		bounds = append(bounds, geom.TextBounds(t.ID, t.X, t.Y, 10*float64(utf8.RuneCountInString(t.Text)), t.Font.Size))
	}
	return &renderer.Result{Image: image.NewRGBA(image.Rect(0, 0, fr.Width, fr.Height)), Bounds: bounds}, nil
}

type fakeImages map[string]image.Image

func (m fakeImages) Load(_ context.Context, src string) *imageload.Future {
	if img, ok := m[src]; ok {
		return imageload.Resolved(src, img)
	}
	return imageload.Rejected(src, errors.New("not found"))
}

func images() fakeImages {
	return fakeImages{
		"bg.png":   image.NewRGBA(image.Rect(0, 0, 800, 600)),
		"logo.png": image.NewRGBA(image.Rect(0, 0, 8, 8)),
	}
}

func sampleConfig() template.ImageConfig {
	return template.ImageConfig{
		ID:           "t1",
		Name:         "Grades sheet",
		Category:     template.CategoryGrades,
		ImageURL:     "bg.png",
		CanvasWidth:  800,
		CanvasHeight: 600,
		Overlays: []template.TextOverlay{
			{ID: "teacher", Text: "Teacher", X: 400, Y: 100, FontSize: 20, IsEditableByUser: true, EditKey: template.FieldTeacherName},
			{ID: "title", Text: "Title", X: 400, Y: 200, FontSize: 20},
		},
		LogoOverlay: &template.LogoOverlay{ID: "logo", ImageURL: "logo.png", X: 100, Y: 500, Radius: 40, IsEditableByUser: true, EditKey: template.FieldLogoURL},
	}
}

func open(t *testing.T, opts Options, cfg template.ImageConfig) *Session {
	t.Helper()
	if opts.Compositor == nil {
		opts.Compositor = fakeCompositor{}
	}
	if opts.Images == nil {
		opts.Images = images()
	}
	s, err := Open(context.Background(), opts, cfg)
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	t.Cleanup(s.Close)
	s.SetDisplayRect(geom.Rect{Width: 800, Height: 600})
	if _, err := s.Render(); err != nil {
		t.Fatal(err)
	}
	return s
}

func click(t *testing.T, s *Session, p geom.Point) {
	t.Helper()
	if err := s.PointerDown(p, editor.ButtonPrimary); err != nil {
		t.Fatal(err)
	}
	if err := s.PointerUp(p, editor.ButtonPrimary); err != nil {
		t.Fatal(err)
	}
}

func TestOpenSeedsEdits(t *testing.T) {
	s := open(t, Options{}, sampleConfig())
	edits := s.Edits()
	if edits[template.FieldTeacherName] != "Teacher" || edits[template.FieldLogoURL] != "logo.png" {
		t.Fatalf("初始编辑值错误: %v", edits)
	}
	if _, ok := edits[template.FieldSchoolYear]; ok {
		t.Fatalf("未绑定的字段不应出现: %v", edits)
	}
}

func TestClickSelectsOnlyEditableOverlays(t *testing.T) {
	s := open(t, Options{}, sampleConfig())

	click(t, s, geom.Point{X: 380, Y: 95})
	if s.Selected() != "teacher" {
		t.Fatalf("应选中可编辑叠加层: %q", s.Selected())
	}
	click(t, s, geom.Point{X: 380, Y: 195})
	if s.Selected() != "" {
		t.Fatalf("点击不可编辑叠加层应取消选中: %q", s.Selected())
	}
	click(t, s, geom.Point{X: 380, Y: 95})
	click(t, s, geom.Point{X: 10, Y: 10})
	if s.Selected() != "" {
		t.Fatalf("点击空白应取消选中: %q", s.Selected())
	}
}

func TestDragMovesSelectedOverlayOnly(t *testing.T) {
	cfg := sampleConfig()
	s := open(t, Options{}, cfg)
	click(t, s, geom.Point{X: 380, Y: 95})

	if err := s.PointerDown(geom.Point{X: 380, Y: 95}, editor.ButtonPrimary); err != nil {
		t.Fatal(err)
	}
	if !s.Dragging() {
		t.Fatalf("应进入拖拽")
	}
	if got := s.Cursor(); got != editor.CursorGrabbing {
		t.Fatalf("拖拽中光标错误: %s", got)
	}
	s.PointerMove(geom.Point{X: 330, Y: 145})
	s.PointerUp(geom.Point{X: 330, Y: 145}, editor.ButtonPrimary)
	if s.Dragging() {
		t.Fatalf("释放后应结束拖拽")
	}

	o, _ := s.Config().Overlay("teacher")
	if o.X != 350 || o.Y != 150 {
		t.Fatalf("拖拽后位置错误: (%g, %g)", o.X, o.Y)
	}
	if cfg.Overlays[0].X != 400 {
		t.Fatalf("会话内的拖拽不应修改原模板")
	}
	if s.Selected() != "teacher" {
		t.Fatalf("拖拽后仍应保持选中")
	}
	// 新位置的命中框应已更新
	click(t, s, geom.Point{X: 10, Y: 10})
	click(t, s, geom.Point{X: 340, Y: 145})
	if s.Selected() != "teacher" {
		t.Fatalf("应能在新位置点中叠加层")
	}
}

func TestUserSessionCannotDragLogoOrOpenMenu(t *testing.T) {
	s := open(t, Options{}, sampleConfig())
	s.PointerDown(geom.Point{X: 100, Y: 500}, editor.ButtonPrimary)
	s.PointerMove(geom.Point{X: 150, Y: 500})
	s.PointerUp(geom.Point{X: 150, Y: 500}, editor.ButtonPrimary)
	if s.Config().LogoOverlay.X != 100 {
		t.Fatalf("用户会话不应移动 logo")
	}
	s.ContextMenu(geom.Point{X: 380, Y: 95}, geom.Point{})
	if _, ok := s.Menu(); ok {
		t.Fatalf("用户会话不应打开右键菜单")
	}
	if err := s.DeleteOverlay("title"); !errors.Is(err, ErrAdminOnly) {
		t.Fatalf("期望 ErrAdminOnly: %v", err)
	}
}

func TestSetEdit(t *testing.T) {
	s := open(t, Options{}, sampleConfig())
	if err := s.SetEdit(template.FieldTeacherName, "Sara"); err != nil {
		t.Fatal(err)
	}
	if s.Edits()[template.FieldTeacherName] != "Sara" {
		t.Fatalf("编辑值未更新")
	}
	if err := s.SetEdit("nickname", "x"); err == nil {
		t.Fatalf("未知字段应报错")
	}
	if err := s.Select("title"); err == nil {
		t.Fatalf("用户会话不能选中不可编辑叠加层")
	}
}

func drag(t *testing.T, s *Session, from, to geom.Point) {
	t.Helper()
	if err := s.PointerDown(from, editor.ButtonPrimary); err != nil {
		t.Fatal(err)
	}
	if !s.Dragging() {
		t.Fatalf("在 (%g, %g) 按下应进入拖拽", from.X, from.Y)
	}
	if err := s.PointerMove(to); err != nil {
		t.Fatal(err)
	}
	if err := s.PointerUp(to, editor.ButtonPrimary); err != nil {
		t.Fatal(err)
	}
}

func TestEditedTextIsHitImmediately(t *testing.T) {
	s := open(t, Options{}, sampleConfig())
	click(t, s, geom.Point{X: 380, Y: 95})
	if err := s.SetEdit(template.FieldTeacherName, "A much longer teacher name xyz"); err != nil {
		t.Fatal(err)
	}

	// (150, 95) 只落在编辑后变长的文本范围内
	drag(t, s, geom.Point{X: 150, Y: 95}, geom.Point{X: 170, Y: 115})
	o, _ := s.Config().Overlay("teacher")
	if o.X != 420 || o.Y != 120 {
		t.Fatalf("拖拽后位置错误: (%g, %g)", o.X, o.Y)
	}
}

func TestSelectRendersHighlightBeforeNextEvent(t *testing.T) {
	var frames int
	s := open(t, Options{OnDrawComplete: func(*image.RGBA) { frames++ }}, sampleConfig())
	before := frames
	if err := s.Select("teacher"); err != nil {
		t.Fatal(err)
	}
	if frames != before+1 {
		t.Fatalf("Select 后应立即重新渲染: %d -> %d", before, frames)
	}
	drag(t, s, geom.Point{X: 380, Y: 95}, geom.Point{X: 390, Y: 105})
	if o, _ := s.Config().Overlay("teacher"); o.X != 410 || o.Y != 110 {
		t.Fatalf("拖拽后位置错误: (%g, %g)", o.X, o.Y)
	}
}

func TestAddedOverlayIsDraggableRightAway(t *testing.T) {
	s := open(t, Options{Admin: true}, sampleConfig())
	id, err := s.AddOverlay("Added", 500, 300)
	if err != nil {
		t.Fatal(err)
	}
	drag(t, s, geom.Point{X: 480, Y: 295}, geom.Point{X: 500, Y: 315})
	o, _ := s.Config().Overlay(id)
	if o.X != 520 || o.Y != 320 {
		t.Fatalf("新建叠加层拖拽后位置错误: (%g, %g)", o.X, o.Y)
	}
}

func TestExportRefusedAfterBackgroundFailure(t *testing.T) {
	var notices []string
	cfg := sampleConfig()
	cfg.ImageURL = "missing.png"
	s := open(t, Options{OnNotice: func(msg string, err error) { notices = append(notices, msg) }}, cfg)
	if len(notices) != 1 {
		t.Fatalf("背景失败应提示一次: %v", notices)
	}
	if s.BackgroundError() == nil {
		t.Fatalf("应记录背景错误")
	}
	before := s.Config()
	if _, err := s.WriteExport(context.Background(), t.TempDir()); !errors.Is(err, export.ErrExport) {
		t.Fatalf("期望 ErrExport: %v", err)
	}
	if after := s.Config(); after.Overlays[0] != before.Overlays[0] {
		t.Fatalf("导出失败不应改变会话状态")
	}
}

func TestExportUsesSessionState(t *testing.T) {
	s := open(t, Options{}, sampleConfig())
	s.SetEdit(template.FieldTeacherName, "Sara")
	img, err := s.Export(context.Background())
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	if img.Bounds().Dx() != 800 || img.Bounds().Dy() != 600 {
		t.Fatalf("导出尺寸错误: %v", img.Bounds())
	}
}

func TestAdminOverlayEditing(t *testing.T) {
	s := open(t, Options{Admin: true}, sampleConfig())

	s.ContextMenu(geom.Point{X: 380, Y: 195}, geom.Point{X: 900, Y: 700})
	menu, ok := s.Menu()
	if !ok || menu.Target == nil || menu.Target.ID != "title" || menu.Page != (geom.Point{X: 900, Y: 700}) {
		t.Fatalf("右键菜单请求错误: %+v", menu)
	}

	updated := *menu.Target
	updated.Text = "New title"
	updated.IsEditableByUser = true
	updated.EditKey = template.FieldSubject
	if err := s.UpdateOverlay(updated); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Menu(); ok {
		t.Fatalf("保存后应关闭菜单")
	}
	o, _ := s.Config().Overlay("title")
	if o.Text != "New title" || o.EditKey != template.FieldSubject {
		t.Fatalf("叠加层未更新: %+v", o)
	}
	if s.Edits()[template.FieldSubject] != "New title" {
		t.Fatalf("新绑定的字段应以默认文本初始化")
	}

	updated.IsEditableByUser = false
	s.UpdateOverlay(updated)
	if o, _ := s.Config().Overlay("title"); o.EditKey != "" {
		t.Fatalf("取消可编辑时应清除 editKey")
	}

	click(t, s, geom.Point{X: 380, Y: 195})
	if s.Selected() != "title" {
		t.Fatalf("管理会话可以选中任意叠加层: %q", s.Selected())
	}
	if err := s.DeleteOverlay("title"); err != nil {
		t.Fatal(err)
	}
	if s.Selected() != "" || len(s.Config().Overlays) != 1 {
		t.Fatalf("删除后应取消选中并移除叠加层")
	}
	if err := s.DeleteOverlay("title"); err == nil {
		t.Fatalf("重复删除应报错")
	}

	id, err := s.AddOverlay("Added", 500, 300)
	if err != nil || s.Selected() != id {
		t.Fatalf("新建叠加层应被选中: %q %v", id, err)
	}
}

func TestAdminLogoDrag(t *testing.T) {
	s := open(t, Options{Admin: true}, sampleConfig())
	s.PointerDown(geom.Point{X: 110, Y: 510}, editor.ButtonPrimary)
	s.PointerMove(geom.Point{X: 210, Y: 410})
	s.PointerLeave()
	logo := s.Config().LogoOverlay
	if logo.X != 200 || logo.Y != 400 {
		t.Fatalf("logo 拖拽后位置错误: (%g, %g)", logo.X, logo.Y)
	}
}
