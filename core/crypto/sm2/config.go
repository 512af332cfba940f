package sm2

import (
	"github.com/creasty/defaults"

	"github.com/kochabx/gmkit/errors"
)

// Config is the file/env configuration of an Engine and its key pair.
type Config struct {
	UserID            string `json:"user_id" mapstructure:"user_id" default:"1234567812345678" validate:"max=8191"`
	CipherMode        string `json:"cipher_mode" mapstructure:"cipher_mode" default:"C1C3C2" validate:"sm2_cipher_mode"`
	SignatureEncoding string `json:"signature_encoding" mapstructure:"signature_encoding" default:"raw" validate:"oneof=raw der"`
	C1Tag             bool   `json:"c1_tag" mapstructure:"c1_tag"`
	CacheSize         int    `json:"cache_size" mapstructure:"cache_size" default:"64" validate:"gte=1"`
	PrivateKey        string `json:"private_key" mapstructure:"private_key" validate:"omitempty,sm2_private_key"`
	PublicKey         string `json:"public_key" mapstructure:"public_key" validate:"omitempty,sm2_public_key"`
}

// ApplyDefaults fills zero fields from their default tags.
func (c *Config) ApplyDefaults() error {
	if err := defaults.Set(c); err != nil {
		return errors.Internal("sm2: apply config defaults").WithCause(err)
	}
	return nil
}

// Mode parses CipherMode.
func (c *Config) Mode() (CipherMode, error) {
	return ParseCipherMode(c.CipherMode)
}

// NewEngineFromConfig builds an Engine from c. Extra options are applied
// after the configured ones.
func NewEngineFromConfig(c Config, opts ...EngineOption) (*Engine, error) {
	if err := c.ApplyDefaults(); err != nil {
		return nil, err
	}
	mode, err := c.Mode()
	if err != nil {
		return nil, err
	}
	if len(c.UserID) > maxUserIDLength {
		return nil, ErrUserIDTooLong
	}

	base := []EngineOption{
		WithDefaultUserID([]byte(c.UserID)),
		WithDefaultMode(mode),
		WithSignatureDER(c.SignatureEncoding == "der"),
		WithCiphertextC1Tag(c.C1Tag),
		WithPrecomputeCache(NewPrecomputeCache(c.CacheSize)),
	}
	return NewEngine(append(base, opts...)...), nil
}

// Keys parses the configured key pair. Either key may be absent; when only
// the private key is set the public key is derived from it. A configured
// public key that does not match the private key is rejected.
func (c *Config) Keys() (*PrivateKey, *PublicKey, error) {
	var (
		priv *PrivateKey
		pub  *PublicKey
		err  error
	)
	if c.PrivateKey != "" {
		if priv, err = NewPrivateKeyFromHex(c.PrivateKey); err != nil {
			return nil, nil, err
		}
		pub = priv.PublicKey()
	}
	if c.PublicKey != "" {
		configured, err := NewPublicKeyFromHex(c.PublicKey)
		if err != nil {
			return nil, nil, err
		}
		if pub != nil && !pub.Equal(configured) {
			return nil, nil, ErrInvalidPublicKey.WithMetadata(map[string]string{"reason": "does not match private key"})
		}
		pub = configured
	}
	return priv, pub, nil
}
