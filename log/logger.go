package log

import (
	"io"
	"time"

	"github.com/creasty/defaults"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"

	"github.com/kochabx/gmkit/errors"
	"github.com/kochabx/gmkit/log/desensitize"
	"github.com/kochabx/gmkit/log/writer"
)

// Logger zerolog 记录器，可选脱敏与文件输出
type Logger struct {
	zerolog.Logger
	hook   *desensitize.Hook
	closer io.Closer
}

func init() {
	zerolog.TimeFieldFormat = time.DateTime
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
}

// Hook 返回脱敏钩子，未启用时为 nil。运行时增删规则立即生效
func (l *Logger) Hook() *desensitize.Hook {
	return l.hook
}

// Close 释放文件句柄，控制台输出时为空操作
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func newLogger(w io.Writer, closer io.Closer, opts ...Option) *Logger {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// 脱敏作用于 zerolog 编码后的字节，writer 需在构建前包装
	if o.hook != nil {
		w = desensitize.NewWriter(w, o.hook)
	}
	ctx := zerolog.New(w).With().Timestamp()
	if len(o.fields) > 0 {
		ctx = ctx.Fields(o.fields)
	}
	if o.caller {
		ctx = ctx.CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + o.callerSkip)
	}
	zl := ctx.Logger()
	if o.level != nil {
		zl = zl.Level(*o.level)
	}
	return &Logger{Logger: zl, hook: o.hook, closer: closer}
}

// New 输出到控制台
func New(opts ...Option) *Logger {
	return newLogger(writer.Console(nil), nil, opts...)
}

func NewWithWriter(w io.Writer, opts ...Option) *Logger {
	return newLogger(w, nil, opts...)
}

// NewFile 输出到轮转文件
func NewFile(c FileConfig, opts ...Option) (*Logger, error) {
	fw, err := fileWriter(&c)
	if err != nil {
		return nil, err
	}
	return newLogger(fw, fw, opts...), nil
}

// NewMulti 同时输出到轮转文件和控制台
func NewMulti(c FileConfig, opts ...Option) (*Logger, error) {
	fw, err := fileWriter(&c)
	if err != nil {
		return nil, err
	}
	return newLogger(zerolog.MultiLevelWriter(fw, writer.Console(nil)), fw, opts...), nil
}

// NewFromConfig 按 Output 选择输出
func NewFromConfig(c Config) (*Logger, error) {
	if err := defaults.Set(&c); err != nil {
		return nil, errors.Internal("log: apply defaults").WithCause(err)
	}
	switch c.Output {
	case "file":
		return NewFile(c.File, c.options()...)
	case "multi":
		return NewMulti(c.File, c.options()...)
	default:
		return New(c.options()...), nil
	}
}

func fileWriter(c *FileConfig) (io.WriteCloser, error) {
	if err := defaults.Set(c); err != nil {
		return nil, errors.Internal("log: apply defaults").WithCause(err)
	}
	w, err := writer.File(c.toWriterConfig())
	if err != nil {
		return nil, errors.Internal("log: create file writer").WithCause(err)
	}
	return w, nil
}
