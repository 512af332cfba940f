package config

import (
	"github.com/spf13/viper"

	"github.com/kochabx/gmkit/core/validator"
	"github.com/kochabx/gmkit/log"
)

type options struct {
	viper     *viper.Viper
	validate  validator.Validator
	noVerify  bool
	loader    Loader
	logger    *log.Logger
	name      string
	paths     []string
	envPrefix string
}

func (o *options) validator() validator.Validator {
	switch {
	case o.noVerify:
		return nil
	case o.validate != nil:
		return o.validate
	default:
		return validator.Validate
	}
}

type Option func(*options)

func WithViper(v *viper.Viper) Option {
	return func(o *options) { o.viper = v }
}

// WithValidator replaces the default validator. nil disables validation.
func WithValidator(v validator.Validator) Option {
	return func(o *options) {
		o.validate = v
		o.noVerify = v == nil
	}
}

// WithLoader replaces the file loader; WithFile, WithViper and
// WithEnvPrefix are then ignored.
func WithLoader(loader Loader) Option {
	return func(o *options) { o.loader = loader }
}

// WithFile reads name from paths, "." when none are given.
func WithFile(name string, paths ...string) Option {
	return func(o *options) {
		o.name = name
		if len(paths) > 0 {
			o.paths = paths
		}
	}
}

// WithEnvPrefix requires environment overrides to carry prefix, so with
// "GMKIT" the key sm2.cipher_mode is read from GMKIT_SM2_CIPHER_MODE.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) { o.envPrefix = prefix }
}

// WithLogger sets the logger used for reload events.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}
