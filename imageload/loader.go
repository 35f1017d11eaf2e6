package imageload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultMaxBytes = 32 << 20
)

// ErrImageLoad 标记所有图片解析失败（背景或 logo）。
var ErrImageLoad = errors.New("image load failed")

// LoadError 记录失败的来源与原因，errors.Is(err, ErrImageLoad) 恒为真。
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("加载图片 %s 失败: %v", Describe(e.Source), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes every LoadError match ErrImageLoad.
func (e *LoadError) Is(target error) bool { return target == ErrImageLoad }

// Options configures where images may come from.
type Options struct {
	BaseDir  string            // 相对路径的解析目录；为空时禁止相对路径
	Images   map[string][]byte // built-in:<name> 资源
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
	Logger   *slog.Logger
}

// Loader 按来源解析图片：http(s) URL、data: URL、built-in: 资源或文件路径。
type Loader struct {
	baseDir  string
	images   map[string][]byte
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	log      *slog.Logger

	group singleflight.Group
}

// NewLoader creates a loader from opts, filling defaults.
func NewLoader(opts Options) *Loader {
	l := &Loader{
		baseDir:  opts.BaseDir,
		images:   map[string][]byte{},
		client:   opts.Client,
		timeout:  opts.Timeout,
		maxBytes: opts.MaxBytes,
		log:      opts.Logger,
	}
	for name, blob := range opts.Images {
		if name == "" || len(blob) == 0 {
			continue
		}
		l.images[name] = blob
	}
	if l.timeout <= 0 {
		l.timeout = defaultTimeout
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: l.timeout}
	}
	if l.maxBytes <= 0 {
		l.maxBytes = defaultMaxBytes
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	return l
}

// Load starts resolving src in the background and returns immediately.
// Concurrent loads of the same source share one fetch.
// 共享的解析不受任何一个调用方取消的影响（仍受超时限制）；
// 调用方的 ctx 结束时只有它自己的 Future 失败。
func (l *Loader) Load(ctx context.Context, src string) *Future {
	f := newFuture(src)
	shared := context.WithoutCancel(ctx)
	ch := l.group.DoChan(src, func() (interface{}, error) {
		return l.Resolve(shared, src)
	})
	go func() {
		select {
		case res := <-ch:
			if res.Err != nil {
				l.log.Warn("image load failed", "source", Describe(src), "err", res.Err)
				f.settle(nil, res.Err)
				return
			}
			f.settle(res.Val.(image.Image), nil)
		case <-ctx.Done():
			l.log.Debug("image load abandoned", "source", Describe(src), "err", ctx.Err())
			f.settle(nil, &LoadError{Source: src, Err: ctx.Err()})
		}
	}()
	return f
}

// Resolve 同步解析 src；所有错误都包装为 *LoadError。
func (l *Loader) Resolve(ctx context.Context, src string) (image.Image, error) {
	data, err := l.fetch(ctx, src)
	if err != nil {
		return nil, &LoadError{Source: src, Err: err}
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &LoadError{Source: src, Err: fmt.Errorf("解码失败: %w", err)}
	}
	return img, nil
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	switch {
	case src == "":
		return nil, errors.New("图片地址为空")
	case strings.HasPrefix(src, "data:"):
		return decodeDataURL(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetchHTTP(ctx, src)
	case strings.HasPrefix(src, "built-in:"), strings.HasPrefix(src, "builtin:"):
		name := strings.TrimPrefix(strings.TrimPrefix(src, "built-in:"), "builtin:")
		blob, ok := l.images[name]
		if !ok {
			return nil, fmt.Errorf("找不到内置图片资源 built-in:%s", name)
		}
		return blob, nil
	default:
		return l.readFile(src)
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, src string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("http status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("图片超过 %d 字节上限", l.maxBytes)
	}
	return data, nil
}

func (l *Loader) readFile(src string) ([]byte, error) {
	path := strings.TrimPrefix(src, "file://")
	if l.baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用路径：%s（请改用 built-in: 或绝对路径）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.baseDir, path)
	}
	return os.ReadFile(path)
}

// decodeDataURL 解析 data:[<mediatype>][;base64],<data>。
func decodeDataURL(src string) ([]byte, error) {
	rest := strings.TrimPrefix(src, "data:")
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return nil, errors.New("data URL 缺少逗号分隔符")
	}
	meta, payload := rest[:comma], rest[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// 兼容省略填充的写法
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, fmt.Errorf("data URL base64 解码失败: %w", err)
			}
		}
		return data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URL 解码失败: %w", err)
	}
	return []byte(text), nil
}

// Describe shortens inline data URLs for logs and messages.
func Describe(src string) string {
	if strings.HasPrefix(src, "data:") {
		if i := strings.IndexByte(src, ','); i >= 0 {
			return src[:i] + ",…"
		}
	}
	if len(src) > 120 {
		return src[:120] + "…"
	}
	return src
}
