package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kochabx/gmkit/log"
	"github.com/kochabx/gmkit/transport"
	"github.com/kochabx/gmkit/transport/http/metrics"
)

var _ transport.Server = (*Server)(nil)

type Server struct {
	opts   options
	prom   *metrics.Prometheus
	logger *log.Logger
	server *http.Server
}

type Option func(*Server)

// WithName 日志中的服务器名称，默认 http
func WithName(name string) Option {
	return func(s *Server) { s.opts.name = name }
}

func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetricsOptions(opt MetricsOption) Option {
	return func(s *Server) { s.opts.metrics = opt }
}

// WithPrometheus 使用 p 替代全局 metrics.Prom
func WithPrometheus(p *metrics.Prometheus) Option {
	return func(s *Server) {
		if p != nil {
			s.prom = p
		}
	}
}

func WithHealthOptions(opt HealthOption) Option {
	return func(s *Server) { s.opts.health = opt }
}

// WithHealthCheck 追加就绪检查，nil 检查被忽略
func WithHealthCheck(name string, check func(context.Context) error) Option {
	return func(s *Server) {
		if check != nil {
			s.opts.checks = append(s.opts.checks, HealthCheck{Name: name, Check: check})
		}
	}
}

func WithTimeouts(t Timeouts) Option {
	return func(s *Server) { s.opts.timeouts = t }
}

// NewServer 创建服务器。handler 为 *gin.Engine 时注册 metrics 与健康检查路由
func NewServer(addr string, handler http.Handler, opts ...Option) *Server {
	s := &Server{
		opts:   options{name: "http"},
		prom:   metrics.Prom,
		logger: log.G,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.opts.init(); err != nil {
		s.logger.Error().Err(err).Str("server", s.opts.name).Msg("apply server defaults")
	}

	if r, ok := handler.(*gin.Engine); ok {
		s.routeMetrics(r)
		s.routeHealth(r)
	}

	t := s.opts.timeouts
	s.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: t.ReadHeader,
		ReadTimeout:       t.Read,
		WriteTimeout:      t.Write,
		IdleTimeout:       t.Idle,
	}
	return s
}

// Handler 根 handler，包含 metrics 与健康检查路由
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run 校验地址后监听，阻塞到 Shutdown
func (s *Server) Run() error {
	if _, _, err := transport.ParseAddress(s.server.Addr); err != nil {
		return err
	}
	s.logger.Info().Str("server", s.opts.name).Str("addr", s.server.Addr).Msg("server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Str("server", s.opts.name).Msg("server shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) routeMetrics(r *gin.Engine) {
	m := s.opts.metrics
	if !m.Enabled {
		return
	}
	if m.GoCollector {
		s.prom.WithGoCollectorRuntimeMetrics()
	}
	if m.BuildInfoCollector {
		s.prom.WithBuildInfoCollector()
	}
	r.GET(m.Path, gin.WrapH(promhttp.HandlerFor(s.prom.Registry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))
}

func (s *Server) routeHealth(r *gin.Engine) {
	h := s.opts.health
	if !h.Enabled {
		return
	}
	checks := s.opts.checks
	r.GET(h.Path, func(c *gin.Context) {
		if len(checks) == 0 {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.Timeout)
		defer cancel()

		var (
			mu     sync.Mutex
			failed = map[string]string{}
			eg     errgroup.Group
		)
		for _, hc := range checks {
			eg.Go(func() error {
				if err := hc.Check(ctx); err != nil {
					mu.Lock()
					failed[hc.Name] = err.Error()
					mu.Unlock()
				}
				return nil
			})
		}
		eg.Wait()

		if len(failed) > 0 {
			s.logger.Warn().Str("server", s.opts.name).Interface("checks", failed).Msg("health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
