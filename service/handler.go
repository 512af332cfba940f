package service

import (
	"encoding/hex"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/gmkit/config"
	"github.com/kochabx/gmkit/core/crypto/sm2"
	"github.com/kochabx/gmkit/core/validator"
	"github.com/kochabx/gmkit/errors"
	transport "github.com/kochabx/gmkit/transport/http"
)

var (
	ErrPrivateKeyNotConfigured = errors.NotFound("private key not configured")
	ErrPublicKeyNotConfigured  = errors.NotFound("public key not configured")
	ErrBatchTooLarge           = errors.BadRequest("too many items")
)

// requestValidator 错误字段名与请求 JSON 一致
var requestValidator = validator.New(validator.WithFieldNameTag("json"))

type handler struct {
	engine   *config.Engine
	verifier *sm2.BatchVerifier
	maxBatch int
}

// register 挂载路由，私钥操作经过 guard（认证、限流）
func (h *handler) register(r gin.IRouter, guard ...gin.HandlerFunc) {
	private := r.Group("", guard...)
	private.POST("/keypair", h.generateKeyPair)
	private.POST("/decrypt", h.decrypt)
	private.POST("/sign", h.sign)

	r.GET("/point/base", h.basePoint)
	r.GET("/public-key", h.publicKey)
	r.POST("/public-key/compress", h.compressPublicKey)
	r.POST("/public-key/compare", h.comparePublicKeys)
	r.POST("/public-key/validate", h.validatePublicKey)
	r.POST("/encrypt", h.encrypt)
	r.POST("/verify", h.verify)
	r.POST("/verify/batch", h.verifyBatch)
}

// bind 解析 JSON 请求体并按 validate 标签校验
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		transport.GinError(c, errors.BadRequest("invalid request body").WithCause(err))
		return false
	}
	if err := requestValidator.Struct(req); err != nil {
		transport.GinError(c, validator.AsError(err))
		return false
	}
	return true
}

func (h *handler) basePoint(c *gin.Context) {
	transport.GinJSON(c, h.engine.GetBasePoint())
}

func (h *handler) publicKey(c *gin.Context) {
	if h.engine.PublicKey == nil {
		transport.GinError(c, ErrPublicKeyNotConfigured)
		return
	}
	transport.GinJSON(c, gin.H{
		"public_key": h.engine.PublicKey.Hex(false),
		"compressed": h.engine.PublicKey.Hex(true),
	})
}

func (h *handler) generateKeyPair(c *gin.Context) {
	pair, err := h.engine.GenerateKeyPairHex()
	if err != nil {
		transport.GinError(c, err)
		return
	}
	transport.GinJSON(c, gin.H{
		"private_key": pair.PrivateKey,
		"public_key":  pair.PublicKey,
	})
}

type publicKeyRequest struct {
	PublicKey string `json:"public_key" validate:"required"`
}

func (h *handler) compressPublicKey(c *gin.Context) {
	var req publicKeyRequest
	if !bind(c, &req) {
		return
	}
	compressed, err := h.engine.CompressPublicKeyHex(req.PublicKey)
	if err != nil {
		transport.GinError(c, err)
		return
	}
	transport.GinJSON(c, gin.H{"public_key": compressed})
}

func (h *handler) validatePublicKey(c *gin.Context) {
	var req publicKeyRequest
	if !bind(c, &req) {
		return
	}
	transport.GinJSON(c, gin.H{"valid": h.engine.VerifyPublicKeyHex(req.PublicKey)})
}

type compareRequest struct {
	A string `json:"a" validate:"required"`
	B string `json:"b" validate:"required"`
}

func (h *handler) comparePublicKeys(c *gin.Context) {
	var req compareRequest
	if !bind(c, &req) {
		return
	}
	transport.GinJSON(c, gin.H{"equal": h.engine.ComparePublicKeyHex(req.A, req.B)})
}

type encryptRequest struct {
	Plaintext  string `json:"plaintext"`
	Hex        bool   `json:"hex"` // plaintext 为 hex 编码
	PublicKey  string `json:"public_key" validate:"omitempty,sm2_public_key"`
	CipherMode string `json:"cipher_mode" validate:"omitempty,sm2_cipher_mode"`
	ASN1       bool   `json:"asn1"`
}

func (h *handler) encrypt(c *gin.Context) {
	var req encryptRequest
	if !bind(c, &req) {
		return
	}

	pub := h.engine.PublicKey
	if req.PublicKey != "" {
		var err error
		if pub, err = sm2.NewPublicKeyFromHex(req.PublicKey); err != nil {
			transport.GinError(c, err)
			return
		}
	}
	if pub == nil {
		transport.GinError(c, ErrPublicKeyNotConfigured)
		return
	}

	msg := []byte(req.Plaintext)
	if req.Hex {
		var err error
		if msg, err = hex.DecodeString(req.Plaintext); err != nil {
			transport.GinError(c, sm2.ErrDecode.WithCause(err))
			return
		}
	}

	opts, err := cipherOptions(req.CipherMode, req.ASN1)
	if err != nil {
		transport.GinError(c, err)
		return
	}
	ct, err := h.engine.Encrypt(pub, msg, opts...)
	if err != nil {
		transport.GinError(c, err)
		return
	}
	transport.GinJSON(c, gin.H{"ciphertext": hex.EncodeToString(ct)})
}

type decryptRequest struct {
	Ciphertext string `json:"ciphertext" validate:"required,hexadecimal"`
	CipherMode string `json:"cipher_mode" validate:"omitempty,sm2_cipher_mode"`
	ASN1       bool   `json:"asn1"`
	Hex        bool   `json:"hex"` // 以 hex 返回明文
}

func (h *handler) decrypt(c *gin.Context) {
	var req decryptRequest
	if !bind(c, &req) {
		return
	}
	if h.engine.PrivateKey == nil {
		transport.GinError(c, ErrPrivateKeyNotConfigured)
		return
	}

	ct, err := hex.DecodeString(req.Ciphertext)
	if err != nil {
		transport.GinError(c, sm2.ErrDecode.WithCause(err))
		return
	}
	opts, err := cipherOptions(req.CipherMode, req.ASN1)
	if err != nil {
		transport.GinError(c, err)
		return
	}
	msg, err := h.engine.Decrypt(h.engine.PrivateKey, ct, opts...)
	if err != nil {
		transport.GinError(c, err)
		return
	}
	if req.Hex {
		transport.GinJSON(c, gin.H{"plaintext": hex.EncodeToString(msg)})
		return
	}
	transport.GinJSON(c, gin.H{"plaintext": string(msg)})
}

func cipherOptions(mode string, asn1 bool) ([]sm2.Option, error) {
	var opts []sm2.Option
	if mode != "" {
		m, err := sm2.ParseCipherMode(mode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, sm2.WithMode(m))
	}
	if asn1 {
		opts = append(opts, sm2.WithASN1())
	}
	return opts, nil
}

type signOptions struct {
	UserID string `json:"user_id" validate:"max=8191"`
	DER    bool   `json:"der"`
	// Hash 为 true 时 message 是 hex 编码的摘要，跳过 ZA 与 SM3
	Hash bool `json:"hash"`
}

func (o signOptions) options(pub *sm2.PublicKey) []sm2.Option {
	var opts []sm2.Option
	if o.UserID != "" {
		opts = append(opts, sm2.WithUserID([]byte(o.UserID)))
	}
	if o.DER {
		opts = append(opts, sm2.WithDER())
	}
	if o.Hash {
		opts = append(opts, sm2.WithPrehashed())
	}
	if pub != nil {
		opts = append(opts, sm2.WithPublicKey(pub))
	}
	return opts
}

// message Hash 为 true 时按 hex 解码摘要
func (o signOptions) message(m string) ([]byte, error) {
	if !o.Hash {
		return []byte(m), nil
	}
	digest, err := hex.DecodeString(m)
	if err != nil {
		return nil, errors.Decode("message: malformed digest hex").WithCause(err)
	}
	return digest, nil
}

type signRequest struct {
	signOptions
	Message string `json:"message"`
}

func (h *handler) sign(c *gin.Context) {
	var req signRequest
	if !bind(c, &req) {
		return
	}
	if h.engine.PrivateKey == nil {
		transport.GinError(c, ErrPrivateKeyNotConfigured)
		return
	}

	msg, err := req.message(req.Message)
	if err != nil {
		transport.GinError(c, err)
		return
	}
	sig, err := h.engine.SignToHex(h.engine.PrivateKey, msg, req.options(h.engine.PublicKey)...)
	if err != nil {
		transport.GinError(c, err)
		return
	}
	transport.GinJSON(c, gin.H{"signature": sig})
}

type verifyRequest struct {
	signOptions
	Message   string `json:"message"`
	Signature string `json:"signature" validate:"required"`
	PublicKey string `json:"public_key"`
}

// verify 对任何格式错误的输入返回 valid=false
func (h *handler) verify(c *gin.Context) {
	var req verifyRequest
	if !bind(c, &req) {
		return
	}

	pubHex := req.PublicKey
	if pubHex == "" {
		if h.engine.PublicKey == nil {
			transport.GinError(c, ErrPublicKeyNotConfigured)
			return
		}
		pubHex = h.engine.PublicKey.Hex(false)
	}
	msg, err := req.message(req.Message)
	if err != nil {
		transport.GinJSON(c, gin.H{"valid": false})
		return
	}
	valid := h.engine.VerifyHex(msg, req.Signature, pubHex, req.options(nil)...)
	transport.GinJSON(c, gin.H{"valid": valid})
}

type batchItem struct {
	Message   string `json:"message"`
	Signature string `json:"signature" validate:"required"`
}

type batchRequest struct {
	signOptions
	PublicKey string      `json:"public_key" validate:"omitempty,sm2_public_key"`
	Items     []batchItem `json:"items" validate:"required,min=1,dive"`
}

func (h *handler) verifyBatch(c *gin.Context) {
	var req batchRequest
	if !bind(c, &req) {
		return
	}
	if len(req.Items) > h.maxBatch {
		transport.GinError(c, ErrBatchTooLarge.WithMetadata(map[string]string{"max": strconv.Itoa(h.maxBatch)}))
		return
	}

	key, err := h.batchKey(req.PublicKey)
	if err != nil {
		transport.GinError(c, err)
		return
	}

	opts := req.options(nil)

	// 无法解析的签名不进入协程池，直接判为 false
	items := make([]sm2.BatchItem, 0, len(req.Items))
	index := make([]int, 0, len(req.Items))
	for i, item := range req.Items {
		sig, err := h.engine.ParseSignatureHex(item.Signature, opts...)
		if err != nil {
			continue
		}
		msg, err := req.message(item.Message)
		if err != nil {
			continue
		}
		items = append(items, sm2.BatchItem{Message: msg, Signature: sig})
		index = append(index, i)
	}

	checked, err := h.engine.BatchVerify(c.Request.Context(), h.verifier, key, items, opts...)
	if err != nil {
		transport.GinError(c, errors.Internal("batch verify interrupted").WithCause(err))
		return
	}

	results := make([]bool, len(req.Items))
	for i, ok := range checked {
		results[index[i]] = ok
	}
	transport.GinJSON(c, gin.H{"results": results})
}

// batchKey 只有配置的公钥进入引擎的预计算缓存，调用方传入的公钥单独预计算，
// 避免挤出缓存中的常用公钥
func (h *handler) batchKey(pubHex string) (*sm2.PrecomputedKey, error) {
	if pubHex == "" {
		if h.engine.PublicKey == nil {
			return nil, ErrPublicKeyNotConfigured
		}
		return h.engine.PrecomputePublicKeyHex(h.engine.PublicKey.Hex(true))
	}
	pub, err := sm2.NewPublicKeyFromHex(pubHex)
	if err != nil {
		return nil, err
	}
	if h.engine.PublicKey != nil && h.engine.PublicKey.Equal(pub) {
		return h.engine.PrecomputePublicKeyHex(pubHex)
	}
	return sm2.Precompute(pub)
}
