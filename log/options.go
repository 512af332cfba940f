package log

import (
	"github.com/rs/zerolog"

	"github.com/kochabx/gmkit/log/desensitize"
)

type options struct {
	level      *zerolog.Level
	caller     bool
	callerSkip int
	hook       *desensitize.Hook
	fields     map[string]any
}

type Option func(*options)

func WithLevel(level zerolog.Level) Option {
	return func(o *options) { o.level = &level }
}

// WithCaller 记录调用位置
func WithCaller() Option {
	return func(o *options) { o.caller = true }
}

// WithCallerSkip 记录调用位置并额外跳过 skip 帧，用于封装过的日志函数
func WithCallerSkip(skip int) Option {
	return func(o *options) {
		o.caller = true
		o.callerSkip = skip
	}
}

// WithDesensitize 输出前经 hook 脱敏，nil 关闭
func WithDesensitize(hook *desensitize.Hook) Option {
	return func(o *options) { o.hook = hook }
}

// WithFields 每条日志附带的固定字段
func WithFields(fields map[string]any) Option {
	return func(o *options) {
		if o.fields == nil {
			o.fields = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			o.fields[k] = v
		}
	}
}

// DefaultHook 内置规则：私钥字段、d/k 标量与常见凭证
func DefaultHook() *desensitize.Hook {
	return desensitize.NewHook(desensitize.BuiltinRules()...)
}
