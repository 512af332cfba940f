package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kochabx/gmkit/errors"
	"github.com/kochabx/gmkit/log"
	"github.com/kochabx/gmkit/transport"
)

var (
	ErrAlreadyStarted = errors.Internal("application already started")
	ErrClosePanic     = errors.Internal("close function panicked")
	ErrNilServer      = errors.BadRequest("server cannot be nil")
	ErrNilClose       = errors.BadRequest("close function cannot be nil")
)

const defaultTimeout = 30 * time.Second

type state uint8

const (
	stateIdle state = iota
	stateRunning
	stateDone
)

// CloseFunc 释放资源的函数，Timeout 为 0 时使用应用的默认值
type CloseFunc struct {
	Name    string
	Fn      func(context.Context) error
	Timeout time.Duration
}

// Application 运行一组服务器，退出时按注册的逆序执行关闭函数。
// 后注册的资源通常依赖先注册的资源，逆序释放保证依赖方先关闭
type Application struct {
	parent          context.Context
	stop            context.CancelFunc
	logger          *log.Logger
	shutdownTimeout time.Duration
	closeTimeout    time.Duration
	signals         []os.Signal
	beforeStart     []func(context.Context) error

	mu      sync.Mutex
	state   state
	servers []transport.Server
	closers []CloseFunc
}

type Option func(*Application)

// WithContext 设置根上下文，其取消等同于 Stop
func WithContext(ctx context.Context) Option {
	return func(a *Application) {
		if ctx != nil {
			a.parent = ctx
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(a *Application) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithShutdownTimeout 每个服务器优雅关闭的时限
func WithShutdownTimeout(d time.Duration) Option {
	return func(a *Application) {
		if d > 0 {
			a.shutdownTimeout = d
		}
	}
}

// WithCloseTimeout 关闭函数的默认时限
func WithCloseTimeout(d time.Duration) Option {
	return func(a *Application) {
		if d > 0 {
			a.closeTimeout = d
		}
	}
}

// WithSignals 替换默认的 SIGINT、SIGTERM、SIGQUIT
func WithSignals(signals ...os.Signal) Option {
	return func(a *Application) {
		if len(signals) > 0 {
			a.signals = signals
		}
	}
}

func WithServer(server transport.Server) Option {
	return WithServers(server)
}

// WithServers 添加服务器，nil 被忽略
func WithServers(servers ...transport.Server) Option {
	return func(a *Application) {
		for _, s := range servers {
			if s != nil {
				a.servers = append(a.servers, s)
			}
		}
	}
}

// WithClose 注册关闭函数，nil 被忽略
func WithClose(name string, fn func(context.Context) error, timeout time.Duration) Option {
	return func(a *Application) {
		if fn != nil {
			a.closers = append(a.closers, CloseFunc{Name: name, Fn: fn, Timeout: timeout})
		}
	}
}

// WithBeforeStart 启动服务器前按顺序执行，首个错误终止启动
func WithBeforeStart(fn func(context.Context) error) Option {
	return func(a *Application) {
		if fn != nil {
			a.beforeStart = append(a.beforeStart, fn)
		}
	}
}

func New(opts ...Option) *Application {
	a := &Application{
		parent:          context.Background(),
		shutdownTimeout: defaultTimeout,
		closeTimeout:    defaultTimeout,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT},
	}
	for _, opt := range opts {
		opt(a)
	}
	// Stop 在 Start 之前调用也有效
	a.parent, a.stop = context.WithCancel(a.parent)
	return a
}

func (a *Application) log() *log.Logger {
	if a.logger != nil {
		return a.logger
	}
	return log.G
}

// AddServer 在启动前添加服务器
func (a *Application) AddServer(server transport.Server) error {
	if server == nil {
		return ErrNilServer
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != stateIdle {
		return ErrAlreadyStarted
	}
	a.servers = append(a.servers, server)
	return nil
}

// RegisterClose 注册关闭函数，运行期间注册的函数同样会在退出时执行
func (a *Application) RegisterClose(name string, fn func(context.Context) error, timeout time.Duration) error {
	if fn == nil {
		return ErrNilClose
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, CloseFunc{Name: name, Fn: fn, Timeout: timeout})
	return nil
}

// Start 运行全部服务器，阻塞到收到信号、Stop 被调用或任一服务器出错。
// 返回值合并了服务器错误与关闭函数的错误
func (a *Application) Start() error {
	a.mu.Lock()
	if a.state != stateIdle {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.state = stateRunning
	servers := a.servers
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.state = stateDone
		a.mu.Unlock()
	}()

	for _, check := range a.beforeStart {
		if err := check(a.parent); err != nil {
			return errors.Join(err, a.close())
		}
	}

	ctx, stopSignals := signal.NotifyContext(a.parent, a.signals...)
	defer stopSignals()

	eg, egCtx := errgroup.WithContext(ctx)
	for _, s := range servers {
		eg.Go(func() error {
			if err := s.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
			defer cancel()
			return s.Shutdown(sctx)
		})
	}

	if len(servers) == 0 {
		<-ctx.Done()
	}
	err := eg.Wait()
	if ctx.Err() != nil && a.parent.Err() == nil {
		a.log().Info().Msg("received shutdown signal")
	}
	a.stop()

	return errors.Join(err, a.close())
}

// Stop 触发优雅关闭
func (a *Application) Stop() {
	a.stop()
}

// close 逆序执行关闭函数，单个失败不影响后续
func (a *Application) close() error {
	a.mu.Lock()
	closers := a.closers
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := a.runClose(closers[i]); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", closers[i].Name, err))
		}
	}
	return errors.Join(errs...)
}

func (a *Application) runClose(cf CloseFunc) error {
	timeout := cf.Timeout
	if timeout <= 0 {
		timeout = a.closeTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- ErrClosePanic.WithMetadata(map[string]string{"panic": fmt.Sprint(r)})
			}
		}()
		done <- cf.Fn(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		a.log().Error().Err(err).Str("close", cf.Name).Msg("close function failed")
	}
	return err
}

// Info 应用状态
type Info struct {
	Started     bool `json:"started"`
	ServerCount int  `json:"server_count"`
	CloseCount  int  `json:"close_count"`
}

func (a *Application) Info() Info {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Info{
		Started:     a.state != stateIdle,
		ServerCount: len(a.servers),
		CloseCount:  len(a.closers),
	}
}
