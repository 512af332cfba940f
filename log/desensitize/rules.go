package desensitize

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
)

// Rule 脱敏规则
type Rule interface {
	Name() string
	Enabled() bool
	SetEnabled(enabled bool)
	// Process 返回处理后的内容，未命中时返回 p 本身且 hit 为 false
	Process(p []byte) (out []byte, hit bool)
}

type ruleState struct {
	name    string
	enabled atomic.Bool
}

func (s *ruleState) init(name string) error {
	if name == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	s.name = name
	s.enabled.Store(true)
	return nil
}

func (s *ruleState) Name() string            { return s.name }
func (s *ruleState) Enabled() bool           { return s.enabled.Load() }
func (s *ruleState) SetEnabled(enabled bool) { s.enabled.Store(enabled) }

// ContentRule 按正则替换整段内容，replacement 支持 $1 形式的分组引用
type ContentRule struct {
	ruleState
	pattern     *regexp.Regexp
	replacement []byte
}

// NewContentRule 创建基于内容匹配的脱敏规则
func NewContentRule(name, pattern, replacement string) (*ContentRule, error) {
	r := &ContentRule{replacement: []byte(replacement)}
	if err := r.init(name); err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, fmt.Errorf("rule %s: pattern cannot be empty", name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %s: invalid pattern %q: %w", name, pattern, err)
	}
	r.pattern = re
	return r, nil
}

// MustNewContentRule 创建规则，失败时 panic
func MustNewContentRule(name, pattern, replacement string) *ContentRule {
	rule, err := NewContentRule(name, pattern, replacement)
	if err != nil {
		panic(err)
	}
	return rule
}

func (r *ContentRule) Process(p []byte) ([]byte, bool) {
	if !r.pattern.Match(p) {
		return p, false
	}
	return r.pattern.ReplaceAll(p, r.replacement), true
}

// FieldRule 对 JSON 中指定字段的字符串值做替换，字段名与引号保持不变
type FieldRule struct {
	ruleState
	value       *regexp.Regexp
	replacement []byte
	field       *regexp.Regexp
}

// NewFieldRule 创建基于字段名匹配的脱敏规则，pattern 作用于字段值
func NewFieldRule(name, pattern, replacement string, fields ...string) (*FieldRule, error) {
	r := &FieldRule{replacement: []byte(replacement)}
	if err := r.init(name); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("rule %s: no field names", name)
	}
	if pattern == "" {
		return nil, fmt.Errorf("rule %s: pattern cannot be empty", name)
	}
	value, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("rule %s: invalid pattern %q: %w", name, pattern, err)
	}

	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	// 分组: 1 字段名及冒号，2 字段值
	r.field = regexp.MustCompile(`("(?:` + strings.Join(quoted, "|") + `)"\s*:\s*")([^"]*)"`)
	r.value = value
	return r, nil
}

// MustNewFieldRule 创建规则，失败时 panic
func MustNewFieldRule(name, pattern, replacement string, fields ...string) *FieldRule {
	rule, err := NewFieldRule(name, pattern, replacement, fields...)
	if err != nil {
		panic(err)
	}
	return rule
}

func (r *FieldRule) Process(p []byte) ([]byte, bool) {
	matches := r.field.FindAllSubmatchIndex(p, -1)
	if len(matches) == 0 {
		return p, false
	}

	out := make([]byte, 0, len(p))
	last := 0
	for _, m := range matches {
		// m[2:4] 为前缀分组，m[4:6] 为字段值
		out = append(out, p[last:m[4]]...)
		out = append(out, r.value.ReplaceAll(p[m[4]:m[5]], r.replacement)...)
		out = append(out, '"')
		last = m[1]
	}
	return append(out, p[last:]...), true
}
