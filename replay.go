package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ByLCY/stencil/dsl"
	"github.com/ByLCY/stencil/editor"
	"github.com/ByLCY/stencil/geom"
	"github.com/ByLCY/stencil/session"
	"github.com/ByLCY/stencil/template"
)

// displayRect 默认把预览按缓冲区原始尺寸显示在 (0, 0)。
func displayRect(w, h int) geom.Rect {
	return geom.Rect{Width: float64(w), Height: float64(h)}
}

// replay 依次把脚本中的手势交给会话，每一步之后都会重新渲染。
func replay(ctx context.Context, s *session.Session, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("无法打开手势脚本 %s: %w", path, err)
	}
	defer file.Close()

	script, err := dsl.ParseScript(path, file)
	if err != nil {
		return fmt.Errorf("解析手势脚本失败: %w", err)
	}
	for _, step := range script.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := apply(s, step); err != nil {
			return fmt.Errorf("%s: %s: %w", step.Pos, step.Kind(), err)
		}
	}
	return nil
}

func apply(s *session.Session, step *dsl.Step) error {
	switch {
	case step.Display != nil:
		d := step.Display
		s.SetDisplayRect(geom.Rect{Left: d.Left, Top: d.Top, Width: d.Width, Height: d.Height})
		return nil
	case step.Click != nil:
		p := geom.Point{X: step.Click.X, Y: step.Click.Y}
		b, err := button(step.Click.Button)
		if err != nil {
			return err
		}
		if err := s.PointerDown(p, b); err != nil {
			return err
		}
		return s.PointerUp(p, b)
	case step.Press != nil:
		b, err := button(step.Press.Button)
		if err != nil {
			return err
		}
		return s.PointerDown(geom.Point{X: step.Press.X, Y: step.Press.Y}, b)
	case step.Move != nil:
		return s.PointerMove(geom.Point{X: step.Move.X, Y: step.Move.Y})
	case step.Release != nil:
		b, err := button(step.Release.Button)
		if err != nil {
			return err
		}
		return s.PointerUp(geom.Point{X: step.Release.X, Y: step.Release.Y}, b)
	case step.Context != nil:
		c := step.Context
		client := geom.Point{X: c.X, Y: c.Y}
		page := client
		if c.Page != nil {
			page = geom.Point{X: c.Page.X, Y: c.Page.Y}
		}
		s.ContextMenu(client, page)
		if menu, ok := s.Menu(); ok && menu.Target != nil {
			fmt.Printf("右键菜单：%s (%.0f, %.0f)\n", menu.Target.ID, menu.Point.X, menu.Point.Y)
		}
		return nil
	case step.Leave:
		return s.PointerLeave()
	case step.Select != nil:
		id := *step.Select
		if id == "none" {
			id = ""
		}
		return s.Select(id)
	case step.Edit != nil:
		return s.SetEdit(template.EditableFieldKey(step.Edit.Key), string(step.Edit.Value))
	}
	return fmt.Errorf("未知的手势")
}

func button(name string) (editor.Button, error) {
	switch name {
	case "", "primary":
		return editor.ButtonPrimary, nil
	case "middle":
		return editor.ButtonMiddle, nil
	case "secondary":
		return editor.ButtonSecondary, nil
	}
	return 0, fmt.Errorf("未知的按键 %q", name)
}
