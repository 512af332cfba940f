package desensitize

import (
	"slices"
	"sync"
)

// Hook 按添加顺序依次应用的脱敏规则。同名规则替换旧规则并保留其位置。
// 规则切片写时复制，Apply 不持锁遍历快照
type Hook struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewHook 创建脱敏钩子
func NewHook(rules ...Rule) *Hook {
	h := &Hook{}
	h.AddBuiltin(rules...)
	return h
}

// AddRule 添加脱敏规则
func (h *Hook) AddRule(rule Rule) {
	if rule == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if i := h.index(rule.Name()); i >= 0 {
		rules := slices.Clone(h.rules)
		rules[i] = rule
		h.rules = rules
		return
	}
	h.rules = append(slices.Clip(h.rules), rule)
}

// AddContentRule 添加基于内容匹配的脱敏规则
func (h *Hook) AddContentRule(name, pattern, replacement string) error {
	rule, err := NewContentRule(name, pattern, replacement)
	if err != nil {
		return err
	}
	h.AddRule(rule)
	return nil
}

// AddFieldRule 添加基于 JSON 字段名匹配的脱敏规则
func (h *Hook) AddFieldRule(name, pattern, replacement string, fields ...string) error {
	rule, err := NewFieldRule(name, pattern, replacement, fields...)
	if err != nil {
		return err
	}
	h.AddRule(rule)
	return nil
}

// AddBuiltin 批量添加规则
func (h *Hook) AddBuiltin(rules ...Rule) {
	for _, rule := range rules {
		h.AddRule(rule)
	}
}

// RemoveRule 移除脱敏规则
func (h *Hook) RemoveRule(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := h.index(name)
	if i < 0 {
		return false
	}
	h.rules = slices.Concat(h.rules[:i], h.rules[i+1:])
	return true
}

// EnableRule 启用规则
func (h *Hook) EnableRule(name string) bool {
	return h.setEnabled(name, true)
}

// DisableRule 禁用规则
func (h *Hook) DisableRule(name string) bool {
	return h.setEnabled(name, false)
}

func (h *Hook) setEnabled(name string, enabled bool) bool {
	rule, ok := h.GetRule(name)
	if ok {
		rule.SetEnabled(enabled)
	}
	return ok
}

// GetRule 获取指定规则
func (h *Hook) GetRule(name string) (Rule, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if i := h.index(name); i >= 0 {
		return h.rules[i], true
	}
	return nil, false
}

// Rules 按应用顺序列出规则名称
func (h *Hook) Rules() []string {
	rules := h.snapshot()
	names := make([]string, len(rules))
	for i, rule := range rules {
		names[i] = rule.Name()
	}
	return names
}

// RuleCount 返回规则数量
func (h *Hook) RuleCount() int {
	return len(h.snapshot())
}

// Clear 清空所有规则
func (h *Hook) Clear() {
	h.mu.Lock()
	h.rules = nil
	h.mu.Unlock()
}

// Apply 依次应用启用的规则。无规则命中时返回 p 本身且 changed 为 false
func (h *Hook) Apply(p []byte) (out []byte, changed bool) {
	out = p
	for _, rule := range h.snapshot() {
		if !rule.Enabled() {
			continue
		}
		var hit bool
		if out, hit = rule.Process(out); hit {
			changed = true
		}
	}
	return out, changed
}

// Desensitize 对字符串进行脱敏处理
func (h *Hook) Desensitize(s string) string {
	if s == "" {
		return s
	}
	out, changed := h.Apply([]byte(s))
	if !changed {
		return s
	}
	return string(out)
}

func (h *Hook) snapshot() []Rule {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rules
}

// index 调用方需持有锁
func (h *Hook) index(name string) int {
	return slices.IndexFunc(h.rules, func(r Rule) bool { return r.Name() == name })
}
