package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/gmkit/core/crypto/sm2"
	middleware "github.com/kochabx/gmkit/middleware/http"
	transport "github.com/kochabx/gmkit/transport/http"
)

type echo struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Body string `json:"body"`
}

func newServer(t *testing.T, signPub string, decryptPriv string, encoding transport.BodyEncoding) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := sm2.Default()

	r := gin.New()
	if signPub != "" {
		verifier, err := middleware.SM2Verifier(engine, signPub)
		require.NoError(t, err)
		r.Use(middleware.Signature(middleware.DefaultSignatureConfig(verifier)))
	}
	if decryptPriv != "" {
		r.Use(middleware.Crypto(middleware.CryptoConfig{
			Decryptor: middleware.MustSM2Decryptor(engine, decryptPriv, sm2.C1C3C2),
			Encoding:  encoding,
		}))
	}
	r.Any("/echo", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.JSON(http.StatusOK, echo{Code: 200, Body: string(body)})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func keyPair(t *testing.T) (*sm2.PrivateKey, *sm2.KeyPairHex) {
	t.Helper()
	pair, err := sm2.Default().GenerateKeyPairHex()
	require.NoError(t, err)
	priv, err := sm2.NewPrivateKeyFromHex(pair.PrivateKey)
	require.NoError(t, err)
	return priv, pair
}

func TestSignedRequest(t *testing.T) {
	priv, pair := keyPair(t)
	srv := newServer(t, pair.PublicKey, "", "")

	cli := New(WithSigningKey(priv))
	var out echo
	_, err := cli.Post(srv.URL+"/echo?b=2&a=1", map[string]string{"to": "bob"}, WithResponse(&out))
	require.NoError(t, err)
	assert.Equal(t, 200, out.Code)
	assert.JSONEq(t, `{"to":"bob"}`, out.Body)

	out = echo{}
	_, err = cli.Get(srv.URL+"/echo?x=1", WithResponse(&out))
	require.NoError(t, err)
	assert.Equal(t, 200, out.Code)

	other, _ := keyPair(t)
	out = echo{}
	_, err = New(WithSigningKey(other)).Post(srv.URL+"/echo", "x", WithResponse(&out))
	require.NoError(t, err)
	assert.Equal(t, 401, out.Code)

	out = echo{}
	_, err = New().Post(srv.URL+"/echo", "x", WithResponse(&out))
	require.NoError(t, err)
	assert.Equal(t, 401, out.Code)
}

func TestEncryptedRequest(t *testing.T) {
	priv, pair := keyPair(t)
	for _, encoding := range []transport.BodyEncoding{transport.BodyBase64, transport.BodyHex, transport.BodyRaw} {
		srv := newServer(t, "", pair.PrivateKey, encoding)

		cli := New(WithEncryptionKey(priv.PublicKey(), encoding))
		var out echo
		_, err := cli.Put(srv.URL+"/echo", []byte("secret payload"), WithResponse(&out))
		require.NoError(t, err)
		assert.Equal(t, "secret payload", out.Body, encoding)
	}
}

func TestSignedAndEncrypted(t *testing.T) {
	signer, signPair := keyPair(t)
	recipient, recipientPair := keyPair(t)
	srv := newServer(t, signPair.PublicKey, recipientPair.PrivateKey, transport.BodyBase64)

	cli := New(
		WithSigningKey(signer),
		WithEncryptionKey(recipient.PublicKey(), transport.BodyBase64),
	)
	var out echo
	resp, err := cli.Request(http.MethodPost, srv.URL+"/echo", map[string]int{"amount": 100},
		WithResponse(&out), WithHeader(map[string]string{"X-Request-Id": "r1"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"amount":100}`, out.Body)
}

func TestSignedParts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	priv, pair := keyPair(t)
	verifier, err := middleware.SM2Verifier(sm2.Default(), pair.PublicKey)
	require.NoError(t, err)

	all := transport.SignMethod | transport.SignPath | transport.SignQuery | transport.SignBody
	cfg := middleware.DefaultSignatureConfig(verifier)
	cfg.Parts = all
	r := gin.New()
	r.Use(middleware.Signature(cfg))
	r.Any("/echo", func(c *gin.Context) {
		c.JSON(http.StatusOK, echo{Code: 200})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	var out echo
	_, err = New(WithSigningKey(priv), WithSignedParts(all)).
		Post(srv.URL+"/echo?a=1&a=3", "body", WithResponse(&out))
	require.NoError(t, err)
	assert.Equal(t, 200, out.Code)

	out = echo{}
	_, err = New(WithSigningKey(priv)).Post(srv.URL+"/echo?a=1", "body", WithResponse(&out))
	require.NoError(t, err)
	assert.Equal(t, 401, out.Code)
}

func TestRequestErrors(t *testing.T) {
	cli := New()
	_, err := cli.Post("http://127.0.0.1:0/x", func() {})
	assert.ErrorIs(t, err, ErrEncodeBody)

	_, err = cli.Get("://bad")
	assert.Error(t, err)
}
