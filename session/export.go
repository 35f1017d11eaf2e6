package session

import (
	"context"
	"fmt"
	"image"

	"github.com/ByLCY/stencil/export"
)

// Export 以模板分辨率导出当前会话。预览中背景已加载失败时直接拒绝，
// 会话状态在任何情况下都不受影响。
func (s *Session) Export(ctx context.Context) (*image.RGBA, error) {
	if s.bgErr != nil {
		return nil, fmt.Errorf("%w: 模板背景图加载失败，无法导出: %w", export.ErrExport, s.bgErr)
	}
	return s.exporter.Export(ctx, s.request())
}

// WriteExport exports into dir and returns the written file path.
func (s *Session) WriteExport(ctx context.Context, dir string) (string, error) {
	if s.bgErr != nil {
		return "", fmt.Errorf("%w: 模板背景图加载失败，无法导出: %w", export.ErrExport, s.bgErr)
	}
	return s.exporter.WriteFile(ctx, dir, s.request())
}

func (s *Session) request() export.Request {
	return export.Request{Config: s.cfg.Clone(), Edits: s.edits.Clone()}
}
