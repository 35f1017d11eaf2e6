package session

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ByLCY/stencil/template"
)

// ErrAdminOnly 表示操作只允许在管理会话中执行。
var ErrAdminOnly = errors.New("需要管理员会话")

// AddOverlay 以默认字体在 (x, y) 新建一个叠加层并选中它，返回新叠加层的 id。
func (s *Session) AddOverlay(text string, x, y float64) (string, error) {
	if !s.opts.Admin {
		return "", ErrAdminOnly
	}
	o := template.TextOverlay{
		ID:         s.nextOverlayID(),
		Text:       text,
		X:          x,
		Y:          y,
		FontFamily: template.DefaultFontFamily,
		FontSize:   template.DefaultFontSize,
		Color:      template.DefaultFontColor,
		FontWeight: template.DefaultFontWeight,
	}
	s.cfg.Overlays = append(s.cfg.Overlays, o)
	s.selected = o.ID
	if err := s.refresh(); err != nil {
		return "", err
	}
	return o.ID, nil
}

// UpdateOverlay 用 o 整体替换同 id 的叠加层（右键菜单的“保存”）。
// 取消可编辑时同时清除 EditKey。
func (s *Session) UpdateOverlay(o template.TextOverlay) error {
	if !s.opts.Admin {
		return ErrAdminOnly
	}
	if !o.IsEditableByUser {
		o.EditKey = ""
	}
	if o.EditKey != "" && !o.EditKey.Valid() {
		return fmt.Errorf("叠加层 %s 的 editKey %q 无效", o.ID, o.EditKey)
	}
	for i := range s.cfg.Overlays {
		if s.cfg.Overlays[i].ID == o.ID {
			s.cfg.Overlays[i] = o
			if o.IsEditableByUser && o.EditKey != "" {
				if _, ok := s.edits.Lookup(o.EditKey); !ok {
					s.edits[o.EditKey] = o.Text
				}
			}
			s.menu = nil
			return s.refresh()
		}
	}
	return fmt.Errorf("叠加层 %s 不存在", o.ID)
}

// DeleteOverlay 删除叠加层；若它正被选中则取消选中。
func (s *Session) DeleteOverlay(id string) error {
	if !s.opts.Admin {
		return ErrAdminOnly
	}
	for i := range s.cfg.Overlays {
		if s.cfg.Overlays[i].ID != id {
			continue
		}
		s.cfg.Overlays = append(s.cfg.Overlays[:i:i], s.cfg.Overlays[i+1:]...)
		if s.selected == id {
			s.selected = ""
		}
		s.menu = nil
		return s.refresh()
	}
	return fmt.Errorf("叠加层 %s 不存在", id)
}

func (s *Session) nextOverlayID() string {
	for n := len(s.cfg.Overlays) + 1; ; n++ {
		id := "overlay-" + strconv.Itoa(n)
		if _, exists := s.cfg.Overlay(id); !exists {
			return id
		}
	}
}
