package config

import (
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/kochabx/gmkit/core/validator"
	"github.com/kochabx/gmkit/errors"
)

// Loader fills a target from a configuration source and reports changes.
type Loader interface {
	Load(target any) error
	// Watch invokes callback after each detected change.
	Watch(callback func()) error
}

// FileLoader reads one file through viper. Order of precedence, lowest
// first: `default` struct tags, the file, environment variables.
type FileLoader struct {
	viper    *viper.Viper
	validate validator.Validator
	name     string
}

// NewFileLoader creates a loader for name in paths. The format follows the
// file extension. Environment keys replace dots with underscores and are
// upper-cased (sm2.cipher_mode -> SM2_CIPHER_MODE), prefixed with
// envPrefix when it is not empty.
func NewFileLoader(v *viper.Viper, validate validator.Validator, envPrefix, name string, paths ...string) *FileLoader {
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	ext := filepath.Ext(name)
	v.SetConfigName(strings.TrimSuffix(name, ext))
	v.SetConfigType(strings.TrimPrefix(ext, "."))

	if envPrefix != "" {
		v.SetEnvPrefix(envPrefix)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &FileLoader{viper: v, validate: validate, name: name}
}

func (l *FileLoader) Load(target any) error {
	if err := defaults.Set(target); err != nil {
		return errors.Internal("config: apply defaults").WithCause(err)
	}

	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return errors.NotFound("config: %s not found", l.name).WithCause(err)
		}
		return errors.BadRequest("config: parse %s", l.name).WithCause(err)
	}

	if err := l.viper.Unmarshal(target); err != nil {
		return errors.BadRequest("config: decode %s", l.name).WithCause(err)
	}

	if l.validate != nil {
		if err := l.validate.Struct(target); err != nil {
			return errors.BadRequest("config: invalid %s", l.name).WithCause(err)
		}
	}
	return nil
}

// Watch registers callback for writes and re-creations of the file, which
// covers editors that save by rename.
func (l *FileLoader) Watch(callback func()) error {
	if callback == nil {
		return errors.BadRequest("config: nil watch callback")
	}
	l.viper.OnConfigChange(func(e fsnotify.Event) {
		if e.Has(fsnotify.Write) || e.Has(fsnotify.Create) {
			callback()
		}
	})
	l.viper.WatchConfig()
	return nil
}
