package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kochabx/gmkit/core/crypto/sm2"
	"github.com/kochabx/gmkit/errors"
)

const (
	testPrivateKey = "3945208f7b2144b13f36e38ac6d39f95889393692860b51a42fb81ef4df7c5b8"
	testPublicKey  = "0409f9df311e5421a150dd7d161e4bc5c672179fad1833fc076bb08ff356f35020ccea490ce26775a52dc6ea718cc1aa600aed05fbf35e084a6632f6072da9ad13"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gmkit.yaml"), []byte(body), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sm2:\n  cache_size: 8\n")

	cfg, err := New[EngineConfig](WithFile("gmkit.yaml", dir)).Load()
	require.NoError(t, err)

	assert.Equal(t, "1234567812345678", cfg.SM2.UserID)
	assert.Equal(t, "C1C3C2", cfg.SM2.CipherMode)
	assert.Equal(t, "raw", cfg.SM2.SignatureEncoding)
	assert.Equal(t, 8, cfg.SM2.CacheSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Plaintext)
}

func TestLoadValidation(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sm2:\n  cipher_mode: C3C2C1\n")

	_, err := New[EngineConfig](WithFile("gmkit.yaml", dir)).Load()
	require.Error(t, err)
	assert.Equal(t, 400, errors.Code(err))

	writeConfig(t, dir, "sm2:\n  private_key: zz\n")
	_, err = New[EngineConfig](WithFile("gmkit.yaml", dir)).Load()
	require.Error(t, err)

	// validation disabled
	writeConfig(t, dir, "sm2:\n  cipher_mode: C3C2C1\n")
	cfg, err := New[EngineConfig](WithFile("gmkit.yaml", dir), WithValidator(nil)).Load()
	require.NoError(t, err)
	assert.Equal(t, "C3C2C1", cfg.SM2.CipherMode)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sm2: [unclosed\n")

	_, err := New[EngineConfig](WithFile("gmkit.yaml", dir)).Load()
	require.Error(t, err)
	assert.Equal(t, 400, errors.Code(err))
}

func TestLoadMissingFile(t *testing.T) {
	c := New[EngineConfig](WithFile("absent.yaml", t.TempDir()))
	_, err := c.Load()
	require.Error(t, err)
	assert.Equal(t, 404, errors.Code(err))
	assert.Nil(t, c.Get())
}

// TestEnvOverride tests that environment variables override file values
func TestEnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sm2:\n  cipher_mode: C1C3C2\n  user_id: alice\n")
	t.Setenv("SM2_CIPHER_MODE", "C1C2C3")

	cfg, err := New[EngineConfig](WithFile("gmkit.yaml", dir)).Load()
	require.NoError(t, err)
	assert.Equal(t, "C1C2C3", cfg.SM2.CipherMode)
	assert.Equal(t, "alice", cfg.SM2.UserID)
}

func TestEnvPrefix(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sm2:\n  cipher_mode: C1C3C2\n")
	t.Setenv("SM2_CIPHER_MODE", "ignored")
	t.Setenv("GMKIT_SM2_CIPHER_MODE", "C1C2C3")

	cfg, err := New[EngineConfig](WithFile("gmkit.yaml", dir), WithEnvPrefix("GMKIT")).Load()
	require.NoError(t, err)
	assert.Equal(t, "C1C2C3", cfg.SM2.CipherMode)
}

func TestReloadKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sm2:\n  user_id: before\n")

	c := New[EngineConfig](WithFile("gmkit.yaml", dir))
	first, err := c.Load()
	require.NoError(t, err)

	var calls int
	c.OnChange(func(old, cur *EngineConfig) {
		calls++
		assert.Equal(t, "before", old.SM2.UserID)
		assert.Equal(t, "after", cur.SM2.UserID)
	})

	writeConfig(t, dir, "sm2:\n  cipher_mode: C3C2C1\n")
	require.Error(t, c.Reload())
	assert.Same(t, first, c.Get())
	assert.Equal(t, 0, calls)

	writeConfig(t, dir, "sm2:\n  user_id: after\n")
	require.NoError(t, c.Reload())
	assert.Equal(t, "after", c.Get().SM2.UserID)
	assert.Equal(t, "before", first.SM2.UserID)
	assert.Equal(t, 1, calls)
}

func TestLoadEngine(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "log:\n  level: debug\nsm2:\n  cipher_mode: C1C2C3\n  signature_encoding: der\n  private_key: "+testPrivateKey+"\n  public_key: "+testPublicKey+"\n")

	engine, err := LoadEngine("gmkit.yaml", dir)
	require.NoError(t, err)
	defer engine.Close()

	require.NotNil(t, engine.PrivateKey)
	assert.Equal(t, testPublicKey, engine.PublicKey.Hex(false))

	ct, err := engine.EncryptString("configured", testPublicKey, sm2.C1C2C3)
	require.NoError(t, err)
	msg, err := engine.DecryptHexString(ct, testPrivateKey, sm2.C1C2C3)
	require.NoError(t, err)
	assert.Equal(t, "configured", msg)

	sig, err := engine.SignHex([]byte("configured"), testPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "30", sig[:2])
	assert.True(t, engine.VerifyHex([]byte("configured"), sig, testPublicKey))
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "sm2:\n  user_id: before\n")

	changed := make(chan struct{}, 1)
	c := New[EngineConfig](WithFile("gmkit.yaml", dir))
	c.OnChange(func(_, _ *EngineConfig) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	_, err := c.Load()
	require.NoError(t, err)
	require.NoError(t, c.Watch())

	writeConfig(t, dir, "sm2:\n  user_id: after\n")
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Skip("no file system event delivered")
	}

	assert.Equal(t, "after", c.Get().SM2.UserID)
}
