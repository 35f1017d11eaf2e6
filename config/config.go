// Package config loads the editor settings from YAML.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ByLCY/stencil/renderer"
	canvasrenderer "github.com/ByLCY/stencil/renderer/canvas"
	"github.com/ByLCY/stencil/template"
)

// Font registers one weight of a font family for the compositor.
type Font struct {
	Family string              `yaml:"family"`
	Weight template.FontWeight `yaml:"weight"`
	Src    string              `yaml:"src"`
}

// Settings 是编辑器的全部可配置项。
type Settings struct {
	MaxCanvasWidth  int           `yaml:"maxCanvasWidth"`
	MaxCanvasHeight int           `yaml:"maxCanvasHeight"`
	BackgroundColor string        `yaml:"backgroundColor"`
	HTTPTimeout     time.Duration `yaml:"httpTimeout"`
	Fonts           []Font        `yaml:"fonts"`
	Store           string        `yaml:"store"`
	AssetsDir       string        `yaml:"assetsDir"`
	Thumbnail       int           `yaml:"thumbnail"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		MaxCanvasWidth:  template.MaxCanvasWidth,
		MaxCanvasHeight: template.MaxCanvasHeight,
		BackgroundColor: "#ffffff",
		HTTPTimeout:     10 * time.Second,
		Thumbnail:       240,
	}
}

// Load 读取 YAML 配置并与默认值合并。文件不存在时返回默认值；
// 相对路径（store、assetsDir）以配置文件所在目录为基准。
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("读取配置失败: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("解析配置 %s 失败: %w", path, err)
	}
	base := filepath.Dir(path)
	s.Store = resolve(base, s.Store)
	s.AssetsDir = resolve(base, s.AssetsDir)
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// Validate reports invalid values.
func (s Settings) Validate() error {
	var errs []error
	if s.MaxCanvasWidth <= 0 || s.MaxCanvasHeight <= 0 {
		errs = append(errs, fmt.Errorf("最大画布尺寸必须为正数: %dx%d", s.MaxCanvasWidth, s.MaxCanvasHeight))
	}
	if s.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("httpTimeout 必须为正数"))
	}
	if _, err := renderer.ParseColor(s.BackgroundColor); err != nil {
		errs = append(errs, err)
	}
	for i, f := range s.Fonts {
		if f.Family == "" || f.Src == "" {
			errs = append(errs, fmt.Errorf("第 %d 个字体缺少 family 或 src", i))
		}
		if f.Weight != "" && f.Weight != template.FontWeightNormal && f.Weight != template.FontWeightBold {
			errs = append(errs, fmt.Errorf("字体 %s 的字重 %q 无效", f.Family, f.Weight))
		}
	}
	return errors.Join(errs...)
}

// Background returns the parsed fallback fill color.
func (s Settings) Background() color.Color {
	return renderer.MustColor(s.BackgroundColor, color.White)
}

// FontResources converts the font list for the canvas compositor.
func (s Settings) FontResources() []canvasrenderer.FontResource {
	out := make([]canvasrenderer.FontResource, 0, len(s.Fonts))
	for _, f := range s.Fonts {
		weight := f.Weight
		if weight == "" {
			weight = template.FontWeightNormal
		}
		out = append(out, canvasrenderer.FontResource{Family: f.Family, Weight: weight, Src: f.Src})
	}
	return out
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
