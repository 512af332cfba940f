package redis

import (
	"runtime"
	"time"

	"github.com/creasty/defaults"
	"github.com/redis/go-redis/v9"

	"github.com/kochabx/gmkit/core/validator"
	"github.com/kochabx/gmkit/errors"
)

// Config Redis 配置（单机/集群/哨兵）
//
//	单机: addrs: ["localhost:6379"]
//	集群: addrs: ["node1:6379", "node2:6379"]
//	哨兵: addrs: ["sentinel1:26379"], master_name: mymaster
type Config struct {
	Addrs      []string `json:"addrs" mapstructure:"addrs" validate:"required,min=1,dive,hostname_port"`
	MasterName string   `json:"master_name" mapstructure:"master_name"`
	Username   string   `json:"username" mapstructure:"username"`
	Password   string   `json:"password" mapstructure:"password"`
	DB         int      `json:"db" mapstructure:"db" validate:"gte=0,lte=15"`
	Protocol   int      `json:"protocol" mapstructure:"protocol" default:"3" validate:"oneof=2 3"`

	DialTimeout  time.Duration `json:"dial_timeout" mapstructure:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `json:"read_timeout" mapstructure:"read_timeout" default:"3s"`
	WriteTimeout time.Duration `json:"write_timeout" mapstructure:"write_timeout" default:"3s"`

	PoolSize     int           `json:"pool_size" mapstructure:"pool_size"` // 0 为 10 * GOMAXPROCS
	MinIdleConns int           `json:"min_idle_conns" mapstructure:"min_idle_conns"`
	MaxIdleTime  time.Duration `json:"max_idle_time" mapstructure:"max_idle_time" default:"5m"`
	PoolTimeout  time.Duration `json:"pool_timeout" mapstructure:"pool_timeout" default:"4s"`
	MaxRetries   int           `json:"max_retries" mapstructure:"max_retries"` // -1 禁用重试

	// Debug 记录每条命令，SlowQuery 大于 0 时超过阈值的命令记为警告
	Debug     bool          `json:"debug" mapstructure:"debug"`
	SlowQuery time.Duration `json:"slow_query" mapstructure:"slow_query"`
}

// Single 单机配置
func Single(addr string) *Config {
	return &Config{Addrs: []string{addr}}
}

// Validate 应用默认值并校验
func (c *Config) Validate() error {
	if err := defaults.Set(c); err != nil {
		return errors.Internal("redis: apply defaults").WithCause(err)
	}
	if err := validator.Validate.Struct(c); err != nil {
		return ErrInvalidConfig.WithCause(err)
	}
	return nil
}

func (c *Config) mode() string {
	switch {
	case c.MasterName != "":
		return "sentinel"
	case len(c.Addrs) > 1:
		return "cluster"
	default:
		return "single"
	}
}

// universal 零值 PoolSize 按 10 * GOMAXPROCS 计算，name 写入 CLIENT SETNAME
func (c *Config) universal(name string) *redis.UniversalOptions {
	pool := c.PoolSize
	if pool == 0 {
		pool = 10 * runtime.GOMAXPROCS(0)
	}
	return &redis.UniversalOptions{
		Addrs:           c.Addrs,
		MasterName:      c.MasterName,
		ClientName:      name,
		Username:        c.Username,
		Password:        c.Password,
		DB:              c.DB,
		Protocol:        c.Protocol,
		DialTimeout:     c.DialTimeout,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		PoolSize:        pool,
		MinIdleConns:    c.MinIdleConns,
		ConnMaxIdleTime: c.MaxIdleTime,
		PoolTimeout:     c.PoolTimeout,
		MaxRetries:      c.MaxRetries,
	}
}
