package http

import (
	"context"
	"time"

	"github.com/creasty/defaults"
)

type MetricsOption struct {
	Enabled            bool   `json:"enabled" mapstructure:"enabled"`
	Path               string `json:"path" mapstructure:"path" default:"/metrics"`
	GoCollector        bool   `json:"go_collector" mapstructure:"go_collector"`
	BuildInfoCollector bool   `json:"build_info_collector" mapstructure:"build_info_collector"`
}

// HealthOption 健康检查路由。注册了 HealthCheck 时任一检查失败返回 503
type HealthOption struct {
	Enabled bool          `json:"enabled" mapstructure:"enabled"`
	Path    string        `json:"path" mapstructure:"path" default:"/health"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" default:"2s"`
}

// HealthCheck 单项就绪检查，如 Redis Ping
type HealthCheck struct {
	Name  string
	Check func(context.Context) error
}

// Timeouts http.Server 的超时设置，零值字段使用默认值
type Timeouts struct {
	ReadHeader time.Duration `json:"read_header" mapstructure:"read_header" default:"5s"`
	Read       time.Duration `json:"read" mapstructure:"read" default:"30s"`
	Write      time.Duration `json:"write" mapstructure:"write" default:"30s"`
	Idle       time.Duration `json:"idle" mapstructure:"idle" default:"2m"`
}

type options struct {
	name     string
	metrics  MetricsOption
	health   HealthOption
	checks   []HealthCheck
	timeouts Timeouts
}

func (o *options) init() error {
	for _, v := range []any{&o.metrics, &o.health, &o.timeouts} {
		if err := defaults.Set(v); err != nil {
			return err
		}
	}
	return nil
}
