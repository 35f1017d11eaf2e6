package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ByLCY/stencil/config"
	"github.com/ByLCY/stencil/export"
	"github.com/ByLCY/stencil/imageload"
	canvasrenderer "github.com/ByLCY/stencil/renderer/canvas"
	"github.com/ByLCY/stencil/session"
	"github.com/ByLCY/stencil/store"
	"github.com/ByLCY/stencil/template"
	"github.com/ByLCY/stencil/upload"
)

// options 汇总命令行参数。
type options struct {
	configPath string
	storePath  string
	templateID string
	edits      []string
	logoPath   string
	gestures   string
	admin      bool
	outDir     string
	preview    string
	thumb      string
	debug      string
	list       bool
	watch      bool
	verbose    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "stencil.yaml", "YAML 配置文件路径")
	flag.StringVar(&opts.storePath, "store", "", "模板文件（.json 或 .tpl），覆盖配置中的 store")
	flag.StringVar(&opts.templateID, "template", "", "模板 id 或名称（模糊匹配）")
	flag.Func("set", "字段值 key=value，可重复", func(v string) error {
		opts.edits = append(opts.edits, v)
		return nil
	})
	flag.StringVar(&opts.logoPath, "logo", "", "上传的 logo 图片路径")
	flag.StringVar(&opts.gestures, "gestures", "", "指针手势脚本路径")
	flag.BoolVar(&opts.admin, "admin", false, "以管理员会话回放手势")
	flag.StringVar(&opts.outDir, "out", "output", "导出目录")
	flag.StringVar(&opts.preview, "preview", "", "预览 PNG 输出路径")
	flag.StringVar(&opts.thumb, "thumb", "", "缩略图 PNG 输出路径")
	flag.StringVar(&opts.debug, "debug", "", "命中框调试 JSON 输出路径")
	flag.BoolVar(&opts.list, "list", false, "列出模板后退出")
	flag.BoolVar(&opts.watch, "watch", false, "监听模板文件变化并输出模板列表")
	flag.BoolVar(&opts.verbose, "v", false, "输出调试日志")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	settings, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if opts.storePath != "" {
		settings.Store = opts.storePath
	}
	if settings.Store == "" {
		log.Fatalf("未指定模板文件（-store 或配置中的 store）")
	}

	src, err := store.OpenFile(settings.Store, logger)
	if err != nil {
		log.Fatalf("加载模板失败: %v", err)
	}

	switch {
	case opts.watch:
		if err := watch(ctx, src); err != nil {
			log.Fatalf("监听模板失败: %v", err)
		}
		return
	case opts.list:
		printTemplates(src.Current())
		return
	}

	path, err := run(ctx, settings, src.Current(), opts, logger)
	if err != nil {
		log.Fatalf("导出失败: %v", err)
	}
	fmt.Printf("已导出：%s\n", path)
}

// run 串联模板选择、编辑、手势回放、预览与导出。
func run(ctx context.Context, settings config.Settings, snap store.Snapshot, opts options, logger *slog.Logger) (string, error) {
	cfg, err := pickTemplate(snap, opts.templateID)
	if err != nil {
		return "", err
	}

	baseDir := settings.AssetsDir
	if baseDir == "" {
		baseDir = filepath.Dir(settings.Store)
	}
	loader := imageload.NewLoader(imageload.Options{
		BaseDir: baseDir,
		Timeout: settings.HTTPTimeout,
		Logger:  logger,
	})
	compositor := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		BaseDir: baseDir,
		Fonts:   settings.FontResources(),
		Logger:  logger,
	})

	var lastFrame *image.RGBA
	s, err := session.Open(ctx, session.Options{
		Compositor:      compositor,
		Images:          loader,
		MaxWidth:        settings.MaxCanvasWidth,
		MaxHeight:       settings.MaxCanvasHeight,
		BackgroundColor: settings.Background(),
		Admin:           opts.admin,
		OnNotice: func(msg string, err error) {
			fmt.Printf("提示：%s\n", msg)
		},
		OnDrawComplete: func(img *image.RGBA) { lastFrame = img },
		Logger:         logger,
	}, cfg)
	if err != nil {
		return "", err
	}
	defer s.Close()

	if err := applyEdits(s, opts); err != nil {
		return "", err
	}

	if err := s.Wait(ctx); err != nil {
		return "", err
	}
	res, err := s.Render()
	if err != nil {
		return "", err
	}
	w, h := res.Image.Bounds().Dx(), res.Image.Bounds().Dy()
	s.SetDisplayRect(displayRect(w, h))

	if opts.gestures != "" {
		if err := replay(ctx, s, opts.gestures); err != nil {
			return "", err
		}
		if res, err = s.Render(); err != nil {
			return "", err
		}
	}

	if opts.debug != "" {
		if err := ensureDir(opts.debug); err != nil {
			return "", err
		}
		if err := export.WriteBoundsJSON(res.Bounds, opts.debug); err != nil {
			return "", fmt.Errorf("输出调试 JSON 失败: %w", err)
		}
	}
	if opts.preview != "" && lastFrame != nil {
		if err := writePNG(opts.preview, lastFrame); err != nil {
			return "", err
		}
	}
	if opts.thumb != "" && lastFrame != nil {
		if err := writePNG(opts.thumb, export.Thumbnail(lastFrame, settings.Thumbnail, settings.Thumbnail)); err != nil {
			return "", err
		}
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %w", err)
	}
	return s.WriteExport(ctx, opts.outDir)
}

func pickTemplate(snap store.Snapshot, pattern string) (template.ImageConfig, error) {
	matches := snap.Find(pattern)
	switch {
	case len(matches) == 0:
		return template.ImageConfig{}, fmt.Errorf("找不到模板 %q", pattern)
	case len(matches) > 1 && pattern == "":
		return template.ImageConfig{}, fmt.Errorf("存在 %d 个模板，请用 -template 指定", len(matches))
	}
	return matches[0], nil
}

func applyEdits(s *session.Session, opts options) error {
	for _, kv := range opts.edits {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("字段值格式应为 key=value: %q", kv)
		}
		if err := s.SetEdit(template.EditableFieldKey(strings.TrimSpace(key)), value); err != nil {
			return err
		}
	}
	if opts.logoPath != "" {
		dataURL, err := upload.ReadFile(opts.logoPath)
		if err != nil {
			if msg := upload.UserMessage(err); msg != "" {
				fmt.Printf("提示：%s\n", msg)
			}
			return err
		}
		if err := s.SetEdit(template.FieldLogoURL, dataURL); err != nil {
			return err
		}
	}
	return nil
}

func watch(ctx context.Context, src *store.FileSource) error {
	unsubscribe := src.Subscribe(func(snap store.Snapshot, err error) {
		if err != nil {
			fmt.Printf("提示：模板源出错，列表已清空：%v\n", err)
			return
		}
		printTemplates(snap)
	})
	defer unsubscribe()
	return src.Watch(ctx)
}

func printTemplates(snap store.Snapshot) {
	fmt.Printf("模板（版本 %d）：\n", snap.Version)
	for _, cat := range template.Categories {
		for _, t := range snap.ByCategory(cat) {
			fmt.Printf("  [%s] %s  %s  %dx%d\n", cat, t.ID, t.Name, t.CanvasWidth, t.CanvasHeight)
		}
	}
	for _, t := range snap.ByCategory("") {
		if !t.Category.Valid() {
			fmt.Printf("  [-] %s  %s  %dx%d\n", t.ID, t.Name, t.CanvasWidth, t.CanvasHeight)
		}
	}
}

func writePNG(path string, img image.Image) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	return export.WritePNG(path, img)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	return nil
}
