package redis

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/gmkit/log"
)

// DebugHook 记录连接、命令与慢查询。只记录命令名与参数个数，
// 限流 key 中的客户端地址不会写入日志
type DebugHook struct {
	logger *log.Logger
	slow   time.Duration // 0 表示不检测慢查询
}

// NewDebugHook 创建调试钩子
func NewDebugHook(logger *log.Logger, slow time.Duration) *DebugHook {
	return &DebugHook{logger: logger, slow: slow}
}

func (h *DebugHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()
		conn, err := next(ctx, network, addr)
		event := h.logger.Debug()
		if err != nil {
			event = h.logger.Error().Err(err)
		}
		event.Str("addr", addr).Dur("duration", time.Since(start)).Msg("redis dial")
		return conn, err
	}
}

func (h *DebugHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.observe([]string{cmd.FullName()}, len(cmd.Args()), time.Since(start), err)
		return err
	}
}

func (h *DebugHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		names := make([]string, len(cmds))
		args := 0
		for i, cmd := range cmds {
			names[i] = cmd.FullName()
			args += len(cmd.Args())
		}
		h.observe(names, args, time.Since(start), err)
		return err
	}
}

func (h *DebugHook) observe(cmds []string, args int, elapsed time.Duration, err error) {
	switch {
	case h.slow > 0 && elapsed > h.slow:
		h.logger.Warn().Strs("cmds", cmds).Int("args", args).Dur("duration", elapsed).
			Dur("threshold", h.slow).Msg("redis slow query")
	case err != nil && !expected(err):
		h.logger.Warn().Strs("cmds", cmds).Dur("duration", elapsed).Err(err).Msg("redis command failed")
	default:
		h.logger.Debug().Strs("cmds", cmds).Dur("duration", elapsed).Msg("redis command")
	}
}

// expected 不属于故障的返回：key 不存在，以及 Script.Run 在 EVALSHA 未命中时的回退
func expected(err error) bool {
	return err == redis.Nil || strings.HasPrefix(err.Error(), "NOSCRIPT")
}
