package sm2

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/kochabx/gmkit/core/crypto/sm2/internal/curve"
	"github.com/kochabx/gmkit/log"
)

// Observer receives the outcome of every Engine operation.
type Observer interface {
	ObserveOperation(operation string, success bool, elapsed time.Duration)
}

// Engine bundles the capabilities an SM2 operation needs from the outside
// (randomness, hash, logger) with default per-call options, and exposes the
// hex string boundary API. An Engine is safe for concurrent use.
type Engine struct {
	random   io.Reader
	hash     HashFunc
	userID   []byte
	mode     CipherMode
	der      bool
	c1Tag    bool
	logger   *log.Logger
	observer Observer
	cache    *PrecomputeCache
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRandom sets the random source. Defaults to crypto/rand.Reader.
func WithRandom(r io.Reader) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.random = r
		}
	}
}

// WithHash sets the hash. Defaults to SM3.
func WithHash(h HashFunc) EngineOption {
	return func(e *Engine) {
		if h != nil {
			e.hash = h
		}
	}
}

// WithDefaultUserID sets the signer identity used when a call gives none.
func WithDefaultUserID(uid []byte) EngineOption {
	return func(e *Engine) {
		e.userID = append([]byte(nil), uid...)
	}
}

// WithDefaultMode sets the layout used by Encrypt and Decrypt.
func WithDefaultMode(mode CipherMode) EngineOption {
	return func(e *Engine) {
		e.mode = mode
	}
}

// WithSignatureDER makes signatures DER encoded by default.
func WithSignatureDER(der bool) EngineOption {
	return func(e *Engine) {
		e.der = der
	}
}

// WithCiphertextC1Tag keeps the 0x04 tag on C1 by default.
func WithCiphertextC1Tag(tag bool) EngineOption {
	return func(e *Engine) {
		e.c1Tag = tag
	}
}

// WithLogger sets the logger. Defaults to log.G.
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver registers an operation observer, e.g. a metrics collector.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithPrecomputeCache shares a precomputed key cache with the engine.
func WithPrecomputeCache(c *PrecomputeCache) EngineOption {
	return func(e *Engine) {
		e.cache = c
	}
}

// NewEngine creates an engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		random: rand.Reader,
		hash:   DefaultHash,
		userID: defaultUserID,
		mode:   C1C3C2,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewPrecomputeCache(DefaultCacheSize)
	}
	return e
}

var (
	defaultEngine     *Engine
	defaultEngineOnce sync.Once
)

// Default returns the shared engine with default settings.
func Default() *Engine {
	defaultEngineOnce.Do(func() {
		defaultEngine = NewEngine()
	})
	return defaultEngine
}

// options prepends the engine defaults to the caller's options.
func (e *Engine) options(mode CipherMode, extra []Option) []Option {
	opts := make([]Option, 0, len(extra)+5)
	opts = append(opts, WithHashFunc(e.hash), WithUserID(e.userID), WithMode(mode))
	if e.der {
		opts = append(opts, WithDER())
	}
	if e.c1Tag {
		opts = append(opts, WithC1Tag())
	}
	return append(opts, extra...)
}

func (e *Engine) observe(operation string, start time.Time, err error) {
	if e.observer != nil {
		e.observer.ObserveOperation(operation, err == nil, time.Since(start))
	}
	if err != nil {
		e.log().Debug().Str("operation", operation).Err(err).Msg("sm2 operation failed")
	}
}

func (e *Engine) log() *log.Logger {
	if e.logger != nil {
		return e.logger
	}
	return log.G
}

// KeyPairHex is a key pair in hex: 64 digits of private key and 130 digits
// of uncompressed public key.
type KeyPairHex struct {
	PrivateKey string `json:"privateKey"`
	PublicKey  string `json:"publicKey"`
}

// PointHex is an affine point as two 64-digit hex coordinates.
type PointHex struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// RandomPointHex is a fresh key pair k, k·G together with the scalar and the
// x-coordinate of the point.
type RandomPointHex struct {
	KeyPairHex
	K  string `json:"k"`
	X1 string `json:"x1"`
}

// GenerateKey generates a key pair with the engine's random source.
func (e *Engine) GenerateKey() (priv *PrivateKey, err error) {
	start := time.Now()
	defer func() { e.observe("generate_key", start, err) }()
	return GenerateKey(e.random)
}

// GenerateKeyPairHex generates a key pair and returns it hex encoded.
func (e *Engine) GenerateKeyPairHex() (*KeyPairHex, error) {
	priv, err := e.GenerateKey()
	if err != nil {
		return nil, err
	}
	defer priv.Destroy()
	return &KeyPairHex{
		PrivateKey: priv.Hex(),
		PublicKey:  priv.PublicKey().Hex(false),
	}, nil
}

// Encrypt encrypts msg to pub with the engine's default layout. A table
// built by PrecomputePublicKeyHex is used when one is cached.
func (e *Engine) Encrypt(pub *PublicKey, msg []byte, opts ...Option) (ct []byte, err error) {
	start := time.Now()
	defer func() { e.observe("encrypt", start, err) }()
	if pk, ok := e.cache.Lookup(pub); ok {
		return pk.Encrypt(e.random, msg, e.options(e.mode, opts)...)
	}
	return Encrypt(e.random, pub, msg, e.options(e.mode, opts)...)
}

// Decrypt decrypts with the engine's default layout.
func (e *Engine) Decrypt(priv *PrivateKey, ciphertext []byte, opts ...Option) (msg []byte, err error) {
	start := time.Now()
	defer func() { e.observe("decrypt", start, err) }()
	return Decrypt(priv, ciphertext, e.options(e.mode, opts)...)
}

// EncryptHex encrypts msg to a hex public key and returns the ciphertext
// as lowercase hex.
func (e *Engine) EncryptHex(msg []byte, publicKeyHex string, mode CipherMode, opts ...Option) (string, error) {
	pub, err := NewPublicKeyFromHex(publicKeyHex)
	if err != nil {
		e.observe("encrypt", time.Now(), err)
		return "", err
	}
	ct, err := e.Encrypt(pub, msg, append([]Option{WithMode(mode)}, opts...)...)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ct), nil
}

// EncryptString encrypts the UTF-8 bytes of msg.
func (e *Engine) EncryptString(msg string, publicKeyHex string, mode CipherMode, opts ...Option) (string, error) {
	return e.EncryptHex([]byte(msg), publicKeyHex, mode, opts...)
}

// DecryptHex decrypts a hex ciphertext with a hex private key and returns
// the plaintext bytes.
func (e *Engine) DecryptHex(ciphertextHex, privateKeyHex string, mode CipherMode, opts ...Option) ([]byte, error) {
	priv, err := NewPrivateKeyFromHex(privateKeyHex)
	if err != nil {
		e.observe("decrypt", time.Now(), err)
		return nil, err
	}
	defer priv.Destroy()

	ct, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		err = ErrDecode.WithCause(err)
		e.observe("decrypt", time.Now(), err)
		return nil, err
	}
	return e.Decrypt(priv, ct, append([]Option{WithMode(mode)}, opts...)...)
}

// DecryptHexString is DecryptHex with the plaintext returned as a string.
func (e *Engine) DecryptHexString(ciphertextHex, privateKeyHex string, mode CipherMode, opts ...Option) (string, error) {
	msg, err := e.DecryptHex(ciphertextHex, privateKeyHex, mode, opts...)
	if err != nil {
		return "", err
	}
	return string(msg), nil
}

// Sign signs msg with the engine defaults.
func (e *Engine) Sign(priv *PrivateKey, msg []byte, opts ...Option) (sig *Signature, err error) {
	start := time.Now()
	defer func() { e.observe("sign", start, err) }()
	return Sign(e.random, priv, msg, e.options(e.mode, opts)...)
}

// SignHex signs msg with a hex private key and returns the hex signature,
// raw r || s unless DER is selected.
func (e *Engine) SignHex(msg []byte, privateKeyHex string, opts ...Option) (string, error) {
	priv, err := NewPrivateKeyFromHex(privateKeyHex)
	if err != nil {
		e.observe("sign", time.Now(), err)
		return "", err
	}
	defer priv.Destroy()
	return e.SignToHex(priv, msg, opts...)
}

// SignToHex signs msg with priv and returns the hex signature in the
// engine's encoding.
func (e *Engine) SignToHex(priv *PrivateKey, msg []byte, opts ...Option) (string, error) {
	sig, err := e.Sign(priv, msg, opts...)
	if err != nil {
		return "", err
	}
	b, err := encodeSignatureWith(newOptions(e.options(e.mode, opts)), sig)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ParseSignatureHex decodes a hex signature in the engine's encoding.
func (e *Engine) ParseSignatureHex(signatureHex string, opts ...Option) (*Signature, error) {
	raw, err := hex.DecodeString(signatureHex)
	if err != nil {
		return nil, ErrDecode.WithCause(err)
	}
	return parseSignatureWith(newOptions(e.options(e.mode, opts)), raw)
}

// Verify verifies sig with the engine defaults. Keys precomputed through
// PrecomputePublicKeyHex take the table path; other keys never build one.
func (e *Engine) Verify(pub *PublicKey, msg []byte, sig *Signature, opts ...Option) bool {
	start := time.Now()
	var ok bool
	if pk, cached := e.cache.Lookup(pub); cached {
		ok = pk.Verify(msg, sig, e.options(e.mode, opts)...)
	} else {
		ok = Verify(pub, msg, sig, e.options(e.mode, opts)...)
	}
	e.observeVerify(start, ok)
	return ok
}

func (e *Engine) observeVerify(start time.Time, ok bool) {
	if e.observer != nil {
		e.observer.ObserveOperation("verify", ok, time.Since(start))
	}
}

// VerifyHex verifies a hex signature against a hex public key. Any
// malformed input yields false.
func (e *Engine) VerifyHex(msg []byte, signatureHex, publicKeyHex string, opts ...Option) bool {
	pub, err := NewPublicKeyFromHex(publicKeyHex)
	if err != nil {
		e.observeVerify(time.Now(), false)
		return false
	}
	sig, err := e.ParseSignatureHex(signatureHex, opts...)
	if err != nil {
		e.observeVerify(time.Now(), false)
		return false
	}
	return e.Verify(pub, msg, sig, opts...)
}

// CompressPublicKeyHex returns the 66-digit compressed form of a hex
// public key.
func (e *Engine) CompressPublicKeyHex(publicKeyHex string) (string, error) {
	pub, err := NewPublicKeyFromHex(publicKeyHex)
	if err != nil {
		return "", err
	}
	return pub.Hex(true), nil
}

// ComparePublicKeyHex reports whether two hex public keys, compressed or
// not, are the same point.
func (e *Engine) ComparePublicKeyHex(a, b string) bool {
	ka, err := NewPublicKeyFromHex(a)
	if err != nil {
		return false
	}
	kb, err := NewPublicKeyFromHex(b)
	if err != nil {
		return false
	}
	return ka.Equal(kb)
}

// VerifyPublicKeyHex reports whether a hex string is a valid public key.
func (e *Engine) VerifyPublicKeyHex(publicKeyHex string) bool {
	_, err := NewPublicKeyFromHex(publicKeyHex)
	return err == nil
}

// PrecomputePublicKeyHex returns the precomputed form of a hex public key,
// shared through the engine cache.
func (e *Engine) PrecomputePublicKeyHex(publicKeyHex string) (*PrecomputedKey, error) {
	pub, err := NewPublicKeyFromHex(publicKeyHex)
	if err != nil {
		return nil, err
	}
	return e.cache.Get(pub)
}

// VerifyPrecomputedHex verifies a hex signature with a precomputed key.
func (e *Engine) VerifyPrecomputedHex(pk *PrecomputedKey, msg []byte, signatureHex string, opts ...Option) bool {
	start := time.Now()
	ok := pk != nil && pk.VerifyHex(msg, signatureHex, e.options(e.mode, opts)...)
	e.observeVerify(start, ok)
	return ok
}

// GetBasePoint returns the coordinates of G.
func (e *Engine) GetBasePoint() PointHex {
	return PointHex{
		X: hex.EncodeToString(curve.Gx()),
		Y: hex.EncodeToString(curve.Gy()),
	}
}

// GetPoint draws a random k and returns k, k·G and the x-coordinate of k·G.
func (e *Engine) GetPoint() (*RandomPointHex, error) {
	priv, err := e.GenerateKey()
	if err != nil {
		return nil, err
	}
	defer priv.Destroy()
	return &RandomPointHex{
		KeyPairHex: KeyPairHex{
			PrivateKey: priv.Hex(),
			PublicKey:  priv.PublicKey().Hex(false),
		},
		K:  priv.Hex(),
		X1: hex.EncodeToString(priv.PublicKey().x),
	}, nil
}
