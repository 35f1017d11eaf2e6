package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/ByLCY/stencil/dsl"
	"github.com/ByLCY/stencil/template"
)

// document 是模板存储的 JSON 形状：{"imageTemplates": {"<id>": ImageConfig}}。
type document struct {
	ImageTemplates map[string]template.ImageConfig `json:"imageTemplates"`
}

// FileSource is a Source backed by a JSON document or a .tpl file.
type FileSource struct {
	*Memory
	path string
	log  *slog.Logger
}

// OpenFile loads path once. The initial load must succeed.
func OpenFile(path string, logger *slog.Logger) (*FileSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	templates, err := readFile(path)
	if err != nil {
		return nil, err
	}
	f := &FileSource{Memory: NewMemory(logger, templates), path: path, log: logger}
	f.log.Info("templates loaded", "path", path, "count", len(f.Current().Templates))
	return f, nil
}

// Path returns the backing file.
func (f *FileSource) Path() string { return f.path }

// Reload 重新读取文件并推送新快照；失败时快照被清空并返回 ErrSubscription。
func (f *FileSource) Reload() error {
	templates, err := readFile(f.path)
	if err != nil {
		f.Fail(err)
		return fmt.Errorf("%w: %w", ErrSubscription, err)
	}
	f.Replace(templates)
	f.log.Info("templates reloaded", "path", f.path, "count", len(f.Current().Templates))
	return nil
}

// Watch reloads whenever the file is written, created or renamed into place,
// until ctx is done. 监听所在目录，以便兼容编辑器的原子替换写入。
func (f *FileSource) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubscription, err)
	}
	defer w.Close()

	dir := filepath.Dir(f.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("%w: 监听 %s 失败: %w", ErrSubscription, dir, err)
	}
	target := filepath.Clean(f.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			f.Fail(err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				_ = f.Reload()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				f.Fail(fmt.Errorf("模板文件 %s 已被移除", f.path))
			}
		}
	}
}

func readFile(path string) (map[string]template.ImageConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取模板文件失败: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".tpl") {
		cfgs, err := dsl.ParseTemplates(path, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		out := make(map[string]template.ImageConfig, len(cfgs))
		for _, c := range cfgs {
			out[c.ID] = c
		}
		return out, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("解析模板文件 %s 失败: %w", path, err)
	}
	if doc.ImageTemplates == nil {
		doc.ImageTemplates = map[string]template.ImageConfig{}
	}
	return doc.ImageTemplates, nil
}

// Encode 以与 OpenFile 相同的 JSON 形状写出快照，供管理端保存。
func Encode(snap Snapshot) ([]byte, error) {
	doc := document{ImageTemplates: make(map[string]template.ImageConfig, len(snap.Templates))}
	for _, t := range snap.Templates {
		doc.ImageTemplates[t.ID] = t
	}
	return json.MarshalIndent(doc, "", "  ")
}
