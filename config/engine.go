package config

import (
	"github.com/kochabx/gmkit/core/crypto/sm2"
	"github.com/kochabx/gmkit/log"
)

// EngineConfig is the file layout of an SM2 service:
//
//	log:
//	  level: debug
//	sm2:
//	  user_id: "1234567812345678"
//	  cipher_mode: C1C3C2
//	  private_key: 3945208f...
type EngineConfig struct {
	Log log.Config `json:"log" mapstructure:"log"`
	SM2 sm2.Config `json:"sm2" mapstructure:"sm2"`
}

// Engine is a loaded engine together with its logger and configured keys.
type Engine struct {
	*sm2.Engine
	Logger     *log.Logger
	PrivateKey *sm2.PrivateKey
	PublicKey  *sm2.PublicKey
}

// Close destroys the private key and closes the logger.
func (e *Engine) Close() error {
	if e.PrivateKey != nil {
		e.PrivateKey.Destroy()
	}
	return e.Logger.Close()
}

// Build creates the logger, the engine and parses the configured keys.
func (c *EngineConfig) Build(opts ...sm2.EngineOption) (*Engine, error) {
	logger, err := log.NewFromConfig(c.Log)
	if err != nil {
		return nil, err
	}

	engine, err := sm2.NewEngineFromConfig(c.SM2, append([]sm2.EngineOption{sm2.WithLogger(logger)}, opts...)...)
	if err != nil {
		logger.Close()
		return nil, err
	}

	priv, pub, err := c.SM2.Keys()
	if err != nil {
		logger.Close()
		return nil, err
	}

	logger.Debug().
		Str("cipher_mode", c.SM2.CipherMode).
		Str("signature_encoding", c.SM2.SignatureEncoding).
		Bool("private_key", priv != nil).
		Msg("sm2 engine ready")

	return &Engine{
		Engine:     engine,
		Logger:     logger,
		PrivateKey: priv,
		PublicKey:  pub,
	}, nil
}

// LoadEngine loads an EngineConfig from name in paths and builds it.
func LoadEngine(name string, paths ...string) (*Engine, error) {
	cfg, err := New[EngineConfig](WithFile(name, paths...)).Load()
	if err != nil {
		return nil, err
	}
	return cfg.Build()
}
