// Package store provides the template source consumed by the editor: an
// immutable snapshot plus change notification. Every push replaces the whole
// template list; the editor never writes back.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/ByLCY/stencil/template"
)

// ErrSubscription 表示模板源推送失败；此时快照被重置为空，而不是保留旧数据。
var ErrSubscription = errors.New("template subscription failed")

// Snapshot is an immutable, id-ordered template list.
type Snapshot struct {
	Version   uint64
	Templates []template.ImageConfig
}

// Get returns the template with the given id.
func (s Snapshot) Get(id string) (template.ImageConfig, bool) {
	for _, t := range s.Templates {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return template.ImageConfig{}, false
}

// ByCategory returns the templates of one category; an empty category returns all.
func (s Snapshot) ByCategory(cat template.TemplateCategory) []template.ImageConfig {
	out := make([]template.ImageConfig, 0, len(s.Templates))
	for _, t := range s.Templates {
		if cat == "" || t.Category == cat {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Find 先按 id 精确匹配，否则对模板名做模糊匹配，按匹配度降序返回。
func (s Snapshot) Find(pattern string) []template.ImageConfig {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return s.ByCategory("")
	}
	if t, ok := s.Get(pattern); ok {
		return []template.ImageConfig{t}
	}
	names := make([]string, len(s.Templates))
	for i, t := range s.Templates {
		names[i] = t.Name
	}
	matches := fuzzy.Find(pattern, names)
	out := make([]template.ImageConfig, 0, len(matches))
	for _, m := range matches {
		out = append(out, s.Templates[m.Index].Clone())
	}
	return out
}

// Listener receives every new snapshot. err is non-nil (wrapping ErrSubscription)
// when the push failed and the snapshot was reset.
type Listener func(snap Snapshot, err error)

// Source is the read-only template source interface the editor depends on.
type Source interface {
	Current() Snapshot
	Subscribe(fn Listener) (unsubscribe func())
}

// Memory is an in-process Source fed by Replace/Fail.
type Memory struct {
	log *slog.Logger

	mu      sync.RWMutex
	snap    Snapshot
	subs    map[int]Listener
	nextSub int
}

var _ Source = (*Memory)(nil)

// NewMemory creates a source holding templates.
func NewMemory(logger *slog.Logger, templates map[string]template.ImageConfig) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Memory{log: logger, subs: map[int]Listener{}}
	m.snap = Snapshot{Templates: normalize(logger, templates)}
	return m
}

// Current returns the latest snapshot.
func (m *Memory) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Subscribe registers fn. fn is invoked with the current snapshot right away
// and again after every Replace/Fail.
func (m *Memory) Subscribe(fn Listener) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	snap := m.snap
	m.mu.Unlock()

	fn(snap, nil)
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Replace 以 templates 整体替换当前快照并通知所有订阅者。
func (m *Memory) Replace(templates map[string]template.ImageConfig) {
	m.publish(normalize(m.log, templates), nil)
}

// Fail 把快照重置为空并通知订阅者。
func (m *Memory) Fail(cause error) {
	err := fmt.Errorf("%w: %w", ErrSubscription, cause)
	m.log.Warn("template source failed", "err", cause)
	m.publish(nil, err)
}

func (m *Memory) publish(templates []template.ImageConfig, err error) {
	m.mu.Lock()
	m.snap = Snapshot{Version: m.snap.Version + 1, Templates: templates}
	snap := m.snap
	subs := make([]Listener, 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		fn(snap, err)
	}
}

// normalize 为缺少 id 的模板补上 key，丢弃校验失败的模板，并按 id 排序。
func normalize(log *slog.Logger, templates map[string]template.ImageConfig) []template.ImageConfig {
	out := make([]template.ImageConfig, 0, len(templates))
	for key, cfg := range templates {
		if cfg.ID == "" {
			cfg.ID = key
		}
		template.Normalize(&cfg)
		if err := template.Validate(cfg); err != nil {
			log.Warn("template skipped", "template", key, "err", err)
			continue
		}
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
