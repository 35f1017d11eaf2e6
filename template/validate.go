package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportFilename 生成导出文件名：模板名中的连续空白替换为下划线，并追加 _modified.png。
func ExportFilename(name string) string {
	return whitespaceRun.ReplaceAllString(name, "_") + "_modified.png"
}

// Validate 检查模板配置的结构性错误，返回所有问题的合并错误。
func Validate(cfg ImageConfig) error {
	var errs []error
	if strings.TrimSpace(cfg.ID) == "" {
		errs = append(errs, fmt.Errorf("模板缺少 id"))
	}
	if cfg.CanvasWidth < 0 || cfg.CanvasHeight < 0 {
		errs = append(errs, fmt.Errorf("模板 %s 的画布尺寸不能为负: %dx%d", cfg.ID, cfg.CanvasWidth, cfg.CanvasHeight))
	}
	if cfg.Category != "" && !cfg.Category.Valid() {
		errs = append(errs, fmt.Errorf("模板 %s 的分类 %q 未定义", cfg.ID, cfg.Category))
	}
	seen := map[string]bool{}
	for i, o := range cfg.Overlays {
		if o.ID == "" {
			errs = append(errs, fmt.Errorf("第 %d 个文本叠加层缺少 id", i))
		} else if seen[o.ID] {
			errs = append(errs, fmt.Errorf("文本叠加层 id %s 重复", o.ID))
		}
		seen[o.ID] = true
		if o.FontSize <= 0 {
			errs = append(errs, fmt.Errorf("文本叠加层 %s 的字号必须为正数", o.ID))
		}
		if o.FontWeight != "" && o.FontWeight != FontWeightNormal && o.FontWeight != FontWeightBold {
			errs = append(errs, fmt.Errorf("文本叠加层 %s 的字重 %q 无效", o.ID, o.FontWeight))
		}
		if o.EditKey != "" && !o.EditKey.Valid() {
			errs = append(errs, fmt.Errorf("文本叠加层 %s 的编辑字段 %q 未定义", o.ID, o.EditKey))
		}
	}
	if logo := cfg.LogoOverlay; logo != nil {
		if logo.Radius < 0 {
			errs = append(errs, fmt.Errorf("logo %s 的半径不能为负", logo.ID))
		}
		if logo.EditKey != "" && logo.EditKey != FieldLogoURL {
			errs = append(errs, fmt.Errorf("logo %s 只能绑定 %s 字段", logo.ID, FieldLogoURL))
		}
	}
	return errors.Join(errs...)
}

// Normalize 为缺省字段填入默认值（字体、字号、颜色、字重）。
func Normalize(cfg *ImageConfig) {
	for i := range cfg.Overlays {
		o := &cfg.Overlays[i]
		if o.FontFamily == "" {
			o.FontFamily = DefaultFontFamily
		}
		if o.FontSize == 0 {
			o.FontSize = DefaultFontSize
		}
		if o.Color == "" {
			o.Color = DefaultFontColor
		}
		if o.FontWeight == "" {
			o.FontWeight = DefaultFontWeight
		}
		if !o.IsEditableByUser {
			o.EditKey = ""
		}
	}
}
