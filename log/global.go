package log

import (
	"github.com/rs/zerolog"
)

// G 全局日志实例，输出到控制台并启用内置脱敏规则
var G = New(WithDesensitize(DefaultHook()))

// SetGlobalLogger 替换全局日志实例，nil 被忽略
func SetGlobalLogger(logger *Logger) {
	if logger != nil {
		G = logger
	}
}

// SetGlobalLevel 设置全局日志级别
func SetGlobalLevel(level zerolog.Level) {
	G.Logger = G.Logger.Level(level)
}

func Debug() *zerolog.Event { return G.Debug() }

func Info() *zerolog.Event { return G.Info() }

func Warn() *zerolog.Event { return G.Warn() }

// Error 带堆栈
func Error() *zerolog.Event { return G.Error().Stack() }
