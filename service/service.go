package service

import (
	"context"

	"github.com/creasty/defaults"
	"github.com/gin-gonic/gin"

	"github.com/kochabx/gmkit/app"
	"github.com/kochabx/gmkit/config"
	"github.com/kochabx/gmkit/core/auth/jwt"
	"github.com/kochabx/gmkit/core/crypto/sm2"
	"github.com/kochabx/gmkit/core/rate"
	"github.com/kochabx/gmkit/core/validator"
	"github.com/kochabx/gmkit/errors"
	middleware "github.com/kochabx/gmkit/middleware/http"
	"github.com/kochabx/gmkit/store/redis"
	transport "github.com/kochabx/gmkit/transport/http"
	"github.com/kochabx/gmkit/transport/http/metrics"
)

// Service is an SM2 engine served over HTTP.
type Service struct {
	*app.Application
	Engine *config.Engine
	Router *gin.Engine
	Server *transport.Server
}

type options struct {
	prom    *metrics.Prometheus
	appOpts []app.Option
}

type Option func(*options)

// WithPrometheus records engine metrics into p instead of metrics.Prom.
func WithPrometheus(p *metrics.Prometheus) Option {
	return func(o *options) {
		o.prom = p
	}
}

// WithAppOptions passes options to the underlying application.
func WithAppOptions(opts ...app.Option) Option {
	return func(o *options) {
		o.appOpts = append(o.appOpts, opts...)
	}
}

// New builds the engine, routes and server described by cfg.
func New(cfg *Config, opts ...Option) (*Service, error) {
	o := &options{prom: metrics.Prom}
	for _, opt := range opts {
		opt(o)
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Internal("service: apply defaults").WithCause(err)
	}
	if err := validator.Validate.Struct(cfg); err != nil {
		return nil, errors.BadRequest("service: invalid config").WithCause(err)
	}

	engine, err := cfg.Build(sm2.WithObserver(o.prom))
	if err != nil {
		return nil, err
	}

	verifier, err := sm2.NewBatchVerifier(cfg.HTTP.Workers)
	if err != nil {
		engine.Close()
		return nil, err
	}

	skip := []string{"/health", "/metrics"}
	router := gin.New()
	router.Use(
		middleware.Recovery(middleware.RecoveryConfig{StackTrace: true, Logger: engine.Logger}),
		middleware.Logger(middleware.LoggerConfig{SkipPaths: skip, Logger: engine.Logger}),
	)

	group := router.Group(cfg.HTTP.Prefix)
	if cfg.HTTP.SignaturePublicKey != "" {
		sv, err := middleware.SM2Verifier(engine.Engine, cfg.HTTP.SignaturePublicKey)
		if err != nil {
			verifier.Release()
			engine.Close()
			return nil, err
		}
		sc := middleware.DefaultSignatureConfig(sv)
		sc.Logger = engine.Logger
		group.Use(middleware.Signature(sc))
	}

	var (
		guard []gin.HandlerFunc
		rdb   *redis.Client
	)
	if cfg.HTTP.Auth != nil {
		auth, err := jwt.New(*cfg.HTTP.Auth)
		if err != nil {
			verifier.Release()
			engine.Close()
			return nil, err
		}
		guard = append(guard, middleware.Auth(middleware.AuthConfig{
			Authenticator: auth,
			Logger:        engine.Logger,
		}))
	}
	if rl := cfg.HTTP.RateLimit; rl.Redis != nil {
		if rdb, err = redis.New(context.Background(), rl.Redis, redis.WithLogger(engine.Logger)); err != nil {
			verifier.Release()
			engine.Close()
			return nil, err
		}
		guard = append(guard, middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: rate.NewTokenBucketLimiter(rdb.UniversalClient(), rl.Prefix, rl.Capacity, rl.Rate),
			Logger:  engine.Logger,
		}))
	}

	h := &handler{
		engine:   engine,
		verifier: verifier,
		maxBatch: cfg.HTTP.MaxBatch,
	}
	h.register(group, guard...)

	serverOpts := []transport.Option{
		transport.WithName(cfg.HTTP.Name),
		transport.WithLogger(engine.Logger),
		transport.WithPrometheus(o.prom),
		transport.WithMetricsOptions(transport.MetricsOption{Enabled: !cfg.HTTP.NoMetrics}),
		transport.WithHealthOptions(transport.HealthOption{Enabled: !cfg.HTTP.NoHealth}),
	}
	if rdb != nil {
		serverOpts = append(serverOpts, transport.WithHealthCheck("redis", rdb.Ping))
	}
	server := transport.NewServer(cfg.HTTP.Addr, router, serverOpts...)

	appOpts := append([]app.Option{
		app.WithServer(server),
		app.WithLogger(engine.Logger),
		app.WithClose("sm2-engine", func(context.Context) error {
			verifier.Release()
			if rdb != nil {
				rdb.Close()
			}
			return engine.Close()
		}, 0),
	}, o.appOpts...)

	return &Service{
		Application: app.New(appOpts...),
		Engine:      engine,
		Router:      router,
		Server:      server,
	}, nil
}

// Load reads a Config from name in paths and builds the service.
func Load(name string, paths []string, opts ...Option) (*Service, error) {
	cfg, err := config.New[Config](config.WithFile(name, paths...), config.WithEnvPrefix("GMKIT")).Load()
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}
