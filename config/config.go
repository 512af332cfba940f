package config

import (
	"sync"
	"sync/atomic"

	"github.com/spf13/viper"

	"github.com/kochabx/gmkit/log"
)

// Config loads a T and keeps the last valid value. Every load decodes into
// a fresh T, so a reload that fails leaves Get returning the previous one.
type Config[T any] struct {
	loader  Loader
	logger  *log.Logger
	current atomic.Pointer[T]

	mu       sync.Mutex
	onChange []func(old, cur *T)
}

// New creates a Config. Without WithLoader, a FileLoader reads
// "config.yaml" from the working directory.
func New[T any](opts ...Option) *Config[T] {
	o := options{name: "config.yaml", paths: []string{"."}}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Config[T]{loader: o.loader, logger: o.logger}
	if c.loader == nil {
		v := o.viper
		if v == nil {
			v = viper.New()
		}
		c.loader = NewFileLoader(v, o.validator(), o.envPrefix, o.name, o.paths...)
	}
	if c.logger == nil {
		c.logger = log.G
	}
	return c
}

// Load reads the source into a new T and makes it current.
func (c *Config[T]) Load() (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load()
}

func (c *Config[T]) load() (*T, error) {
	cfg := new(T)
	if err := c.loader.Load(cfg); err != nil {
		return nil, err
	}
	c.current.Store(cfg)
	return cfg, nil
}

// Get returns the current value, nil before the first successful Load.
func (c *Config[T]) Get() *T {
	return c.current.Load()
}

// OnChange registers fn to run after each successful Reload.
func (c *Config[T]) OnChange(fn func(old, cur *T)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.onChange = append(c.onChange, fn)
	c.mu.Unlock()
}

// Reload loads the source again and runs the OnChange callbacks.
func (c *Config[T]) Reload() error {
	c.mu.Lock()
	old := c.current.Load()
	cur, err := c.load()
	callbacks := c.onChange
	c.mu.Unlock()
	if err != nil {
		return err
	}

	for _, fn := range callbacks {
		fn(old, cur)
	}
	return nil
}

// Watch reloads on every change reported by the loader.
func (c *Config[T]) Watch() error {
	return c.loader.Watch(func() {
		if err := c.Reload(); err != nil {
			c.logger.Error().Err(err).Msg("config reload failed, keeping previous value")
			return
		}
		c.logger.Info().Msg("config reloaded")
	})
}
