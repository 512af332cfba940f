package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"maps"
	"net/http"

	"github.com/kochabx/gmkit/core/crypto/sm2"
	"github.com/kochabx/gmkit/errors"
	transport "github.com/kochabx/gmkit/transport/http"
)

var ErrEncodeBody = errors.Internal("http: encode request body failed")

const ContentTypeJSON = "application/json"

// Client 发送 SM2 签名、加密请求的 HTTP 客户端
type Client struct {
	client     *http.Client
	engine     *sm2.Engine
	signKey    *sm2.PrivateKey
	signOpts   []sm2.Option
	encryptKey *sm2.PublicKey
	encoding   transport.BodyEncoding
	header     string
	parts      transport.SignedParts
}

type Option func(*Client)

func WithClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithEngine 设置 SM2 引擎，默认 sm2.Default()
func WithEngine(engine *sm2.Engine) Option {
	return func(c *Client) {
		c.engine = engine
	}
}

// WithSigningKey 用 priv 对每个请求签名，签名写入签名头
func WithSigningKey(priv *sm2.PrivateKey, opts ...sm2.Option) Option {
	return func(c *Client) {
		c.signKey = priv
		c.signOpts = opts
	}
}

// WithEncryptionKey 用 pub 加密请求体，encoding 须与服务端 CryptoConfig.Encoding 一致
func WithEncryptionKey(pub *sm2.PublicKey, encoding transport.BodyEncoding) Option {
	return func(c *Client) {
		c.encryptKey = pub
		c.encoding = encoding
	}
}

func WithSignatureHeader(name string) Option {
	return func(c *Client) {
		c.header = name
	}
}

// WithSignedParts 设置参与签名的请求部分，须与服务端 SignatureConfig.Parts 一致
func WithSignedParts(parts transport.SignedParts) Option {
	return func(c *Client) {
		c.parts = parts
	}
}

// New 创建客户端
func New(opts ...Option) *Client {
	c := &Client{
		client:   &http.Client{},
		engine:   sm2.Default(),
		encoding: transport.BodyBase64,
		header:   transport.SignatureHeader,
		parts:    transport.DefaultSignedParts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestOption 单次请求选项
type RequestOption struct {
	ctx      context.Context
	header   map[string]string
	response any
}

func WithContext(ctx context.Context) func(*RequestOption) {
	return func(opt *RequestOption) {
		opt.ctx = ctx
	}
}

func WithHeader(header map[string]string) func(*RequestOption) {
	return func(opt *RequestOption) {
		maps.Copy(opt.header, header)
	}
}

// WithResponse 将响应体按 JSON 解码到 response
func WithResponse(response any) func(*RequestOption) {
	return func(opt *RequestOption) {
		opt.response = response
	}
}

// Request 发送请求。body 为 nil、[]byte、string、io.Reader，其它类型按 JSON 编码。
// 先加密再签名，签名覆盖实际发送的请求体
func (c *Client) Request(method, rawURL string, body any, opts ...func(*RequestOption)) (*http.Response, error) {
	opt := &RequestOption{
		ctx:    context.Background(),
		header: map[string]string{"Content-Type": ContentTypeJSON},
	}
	for _, o := range opts {
		o(opt)
	}

	// 请求体在 Do 返回后仍可能被传输层读取，不复用缓冲区
	var buf bytes.Buffer
	if err := writeBody(&buf, body); err != nil {
		return nil, err
	}
	payload := buf.Bytes()

	if c.encryptKey != nil && len(payload) > 0 {
		ct, err := c.engine.Encrypt(c.encryptKey, payload)
		if err != nil {
			return nil, err
		}
		payload = c.encoding.Encode(ct)
		opt.header["Content-Type"] = c.encoding.ContentType()
	}

	req, err := http.NewRequestWithContext(opt.ctx, method, rawURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for k, v := range opt.header {
		req.Header.Set(k, v)
	}

	if c.signKey != nil {
		sig, err := c.engine.SignToHex(c.signKey, transport.CanonicalRequest(c.parts, req.Method, req.URL.Path, req.URL.Query(), payload), c.signOpts...)
		if err != nil {
			return nil, err
		}
		req.Header.Set(c.header, sig)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if opt.response == nil {
		return resp, nil
	}

	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(opt.response); err != nil {
		return nil, err
	}
	return resp, nil
}

func writeBody(buf *bytes.Buffer, body any) error {
	var err error
	switch v := body.(type) {
	case nil:
	case []byte:
		buf.Write(v)
	case string:
		buf.WriteString(v)
	case io.Reader:
		_, err = buf.ReadFrom(v)
	default:
		err = json.NewEncoder(buf).Encode(v)
	}
	if err != nil {
		return ErrEncodeBody.WithCause(err)
	}
	return nil
}

func (c *Client) Get(url string, opts ...func(*RequestOption)) (*http.Response, error) {
	return c.Request(http.MethodGet, url, nil, opts...)
}

func (c *Client) Post(url string, body any, opts ...func(*RequestOption)) (*http.Response, error) {
	return c.Request(http.MethodPost, url, body, opts...)
}

func (c *Client) Put(url string, body any, opts ...func(*RequestOption)) (*http.Response, error) {
	return c.Request(http.MethodPut, url, body, opts...)
}

func (c *Client) Delete(url string, opts ...func(*RequestOption)) (*http.Response, error) {
	return c.Request(http.MethodDelete, url, nil, opts...)
}
