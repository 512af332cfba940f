package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/kochabx/gmkit/errors"
	"github.com/kochabx/gmkit/log"
)

var (
	ErrInvalidConfig = errors.BadRequest("redis: invalid configuration")
	ErrUnavailable   = errors.Internal("redis: server unavailable")
)

// Client 按 Config 选择单机、集群或哨兵模式的客户端
type Client struct {
	rdb    redis.UniversalClient
	mode   string
	logger *log.Logger
}

type options struct {
	logger *log.Logger
	name   string
	hooks  []redis.Hook
}

type Option func(*options)

func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClientName 连接建立时执行 CLIENT SETNAME，默认 gmkit
func WithClientName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithHooks 追加命令钩子，位于 Debug 钩子之后
func WithHooks(hooks ...redis.Hook) Option {
	return func(o *options) { o.hooks = append(o.hooks, hooks...) }
}

// New 校验配置、建立连接并 Ping。ctx 没有截止时间时 Ping 以 DialTimeout 为限
func New(ctx context.Context, cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{logger: log.G, name: "gmkit"}
	for _, opt := range opts {
		opt(&o)
	}

	rdb := redis.NewUniversalClient(cfg.universal(o.name))
	if cfg.Debug {
		rdb.AddHook(NewDebugHook(o.logger, cfg.SlowQuery))
	}
	for _, h := range o.hooks {
		rdb.AddHook(h)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, ErrUnavailable.WithMetadata(map[string]string{"mode": cfg.mode()}).WithCause(err)
	}

	c := &Client{rdb: rdb, mode: cfg.mode(), logger: o.logger}
	c.logger.Debug().Str("mode", c.mode).Strs("addrs", cfg.Addrs).Msg("redis connected")
	return c, nil
}

// UniversalClient 底层 go-redis 客户端，供限流器等直接执行命令
func (c *Client) UniversalClient() redis.UniversalClient {
	return c.rdb
}

// Ping 可直接用作健康检查
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return ErrUnavailable.WithCause(err)
	}
	return nil
}

// Stats 连接池统计
func (c *Client) Stats() *redis.PoolStats {
	return c.rdb.PoolStats()
}

// Close 关闭连接池并记录统计
func (c *Client) Close() error {
	st := c.rdb.PoolStats()
	err := c.rdb.Close()
	c.logger.Debug().
		Str("mode", c.mode).
		Uint32("hits", st.Hits).
		Uint32("misses", st.Misses).
		Uint32("timeouts", st.Timeouts).
		Err(err).
		Msg("redis closed")
	return err
}
