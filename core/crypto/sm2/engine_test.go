package sm2

import (
	"bytes"
	"encoding/hex"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kochabx/gmkit/errors"
)

type recordingObserver struct {
	mu  sync.Mutex
	ops map[string][]bool
}

func (r *recordingObserver) ObserveOperation(operation string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ops == nil {
		r.ops = make(map[string][]bool)
	}
	r.ops[operation] = append(r.ops[operation], success)
}

// TestEngineEncryptDecryptHex tests the hex encryption boundary
func TestEngineEncryptDecryptHex(t *testing.T) {
	engine := NewEngine()
	pair, err := engine.GenerateKeyPairHex()
	if err != nil {
		t.Fatalf("GenerateKeyPairHex failed: %v", err)
	}
	if len(pair.PrivateKey) != 64 || len(pair.PublicKey) != 130 {
		t.Fatalf("unexpected key pair lengths %d, %d", len(pair.PrivateKey), len(pair.PublicKey))
	}

	ct, err := engine.EncryptString("Hello, SM2!", pair.PublicKey, C1C3C2)
	if err != nil {
		t.Fatalf("EncryptString failed: %v", err)
	}
	if strings.ToLower(ct) != ct {
		t.Error("ciphertext hex should be lowercase")
	}
	msg, err := engine.DecryptHexString(ct, pair.PrivateKey, C1C3C2)
	if err != nil || msg != "Hello, SM2!" {
		t.Fatalf("DecryptHexString = %q, %v", msg, err)
	}

	data := []byte{0x00, 0x01, 0x02, 0x03}
	ct, err = engine.EncryptHex(data, pair.PublicKey, C1C2C3)
	if err != nil {
		t.Fatal(err)
	}
	out, err := engine.DecryptHex(ct, pair.PrivateKey, C1C2C3)
	if err != nil || !bytes.Equal(out, data) {
		t.Fatalf("byte round trip failed: %v", err)
	}

	ct, err = engine.EncryptString("", pair.PublicKey, C1C3C2)
	if err != nil {
		t.Fatal(err)
	}
	msg, err = engine.DecryptHexString(ct, pair.PrivateKey, C1C3C2)
	if err != nil || msg != "" {
		t.Errorf("empty round trip = %q, %v", msg, err)
	}
}

// TestEngineCompressedPublicKey tests encryption to a compressed key
func TestEngineCompressedPublicKey(t *testing.T) {
	engine := NewEngine()
	pair, err := engine.GenerateKeyPairHex()
	if err != nil {
		t.Fatal(err)
	}
	compressed, err := engine.CompressPublicKeyHex(pair.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(compressed) != 66 {
		t.Errorf("expected 66 hex digits, got %d", len(compressed))
	}
	if !engine.ComparePublicKeyHex(pair.PublicKey, compressed) {
		t.Error("compressed key should compare equal")
	}
	if !engine.VerifyPublicKeyHex(pair.PublicKey) || !engine.VerifyPublicKeyHex(compressed) {
		t.Error("valid keys rejected")
	}
	if engine.VerifyPublicKeyHex("04abcd") || engine.VerifyPublicKeyHex("xyz") {
		t.Error("invalid keys accepted")
	}

	ct, err := engine.EncryptString("compressed", compressed, C1C3C2)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := engine.DecryptHexString(ct, pair.PrivateKey, C1C3C2)
	if err != nil || msg != "compressed" {
		t.Errorf("round trip via compressed key failed: %v", err)
	}
}

// TestEngineErrors tests the failure behaviour of the hex boundary
func TestEngineErrors(t *testing.T) {
	engine := NewEngine()
	pair, err := engine.GenerateKeyPairHex()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := engine.EncryptString("x", "invalid-public-key", C1C3C2); !errors.IsKind(err, errors.KindInvalidKey) {
		t.Errorf("expected invalid key, got %v", err)
	}
	if _, err := engine.DecryptHex("not-a-valid-cipher-text", pair.PrivateKey, C1C3C2); !errors.Is(err, ErrDecode) {
		t.Errorf("expected ErrDecode, got %v", err)
	}
	if _, err := engine.DecryptHex("abcd", pair.PrivateKey, C1C3C2); !errors.IsKind(err, errors.KindDecode) {
		t.Errorf("expected decode kind, got %v", err)
	}
	if _, err := engine.DecryptHex("00", "invalid-private-key", C1C3C2); !errors.IsKind(err, errors.KindInvalidKey) {
		t.Errorf("expected invalid key, got %v", err)
	}

	other, _ := engine.GenerateKeyPairHex()
	ct, err := engine.EncryptString("secret", pair.PublicKey, C1C3C2)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := engine.DecryptHexString(ct, other.PrivateKey, C1C3C2)
	if err == nil || msg == "secret" {
		t.Error("decryption with wrong key returned the plaintext")
	}

	if _, err := engine.SignHex([]byte("x"), "invalid-private-key"); err == nil {
		t.Error("SignHex accepted invalid key")
	}
}

// TestEngineSignVerifyHex tests the hex signature boundary
func TestEngineSignVerifyHex(t *testing.T) {
	engine := NewEngine()
	pair, err := engine.GenerateKeyPairHex()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("Hello, SM2 signature!")

	sig, err := engine.SignHex(msg, pair.PrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != 128 {
		t.Errorf("expected 128 hex digits, got %d", len(sig))
	}
	if !engine.VerifyHex(msg, sig, pair.PublicKey) {
		t.Error("valid signature rejected")
	}
	if engine.VerifyHex([]byte("altered"), sig, pair.PublicKey) {
		t.Error("altered message accepted")
	}
	if engine.VerifyHex(msg, "invalid-signature", pair.PublicKey) {
		t.Error("invalid signature accepted")
	}
	if engine.VerifyHex(msg, "3045022100abcdef", pair.PublicKey, WithDER()) {
		t.Error("malformed DER accepted")
	}
	if engine.VerifyHex(msg, sig, "invalid-public-key") {
		t.Error("invalid public key accepted")
	}

	der, err := engine.SignHex(msg, pair.PrivateKey, WithDER())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(der, "30") || !engine.VerifyHex(msg, der, pair.PublicKey, WithDER()) {
		t.Error("DER signature round trip failed")
	}

	uid := WithUserID([]byte("testUserId"))
	sig, err = engine.SignHex(msg, pair.PrivateKey, uid)
	if err != nil {
		t.Fatal(err)
	}
	if !engine.VerifyHex(msg, sig, pair.PublicKey, uid) || engine.VerifyHex(msg, sig, pair.PublicKey) {
		t.Error("user id option not honoured")
	}

	digest := []byte("abcdefghijklmnopqrstuvwxyz")
	sig, err = engine.SignHex(digest, pair.PrivateKey, WithPrehashed())
	if err != nil {
		t.Fatal(err)
	}
	if !engine.VerifyHex(digest, sig, pair.PublicKey, WithPrehashed()) {
		t.Error("prehashed signature rejected")
	}

	pk, err := engine.PrecomputePublicKeyHex(pair.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	sig, err = engine.SignHex(msg, pair.PrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	if !engine.VerifyPrecomputedHex(pk, msg, sig) {
		t.Error("precomputed verify rejected valid signature")
	}
	if engine.VerifyPrecomputedHex(nil, msg, sig) {
		t.Error("nil precomputed key accepted")
	}
}

// TestEngineCacheOnlyOnPrecompute tests that fresh keys never build tables
func TestEngineCacheOnlyOnPrecompute(t *testing.T) {
	engine := NewEngine()
	msg := []byte("fresh keys")

	for range 3 {
		priv := mustKey(t)
		sig, err := engine.SignToHex(priv, msg)
		if err != nil {
			t.Fatal(err)
		}
		if !engine.VerifyHex(msg, sig, priv.PublicKey().Hex(false)) {
			t.Fatal("valid signature rejected")
		}
		if _, err := engine.Encrypt(priv.PublicKey(), msg); err != nil {
			t.Fatal(err)
		}
	}
	if n := engine.cache.Len(); n != 0 {
		t.Fatalf("verify and encrypt built %d tables", n)
	}

	priv := mustKey(t)
	if _, err := engine.PrecomputePublicKeyHex(priv.PublicKey().Hex(true)); err != nil {
		t.Fatal(err)
	}
	if n := engine.cache.Len(); n != 1 {
		t.Fatalf("expected 1 cached table, got %d", n)
	}
	sig, err := engine.SignToHex(priv, msg)
	if err != nil {
		t.Fatal(err)
	}
	if !engine.VerifyHex(msg, sig, priv.PublicKey().Hex(false)) {
		t.Error("cached key rejected a valid signature")
	}
	ct, err := engine.Encrypt(priv.PublicKey(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if pt, err := engine.Decrypt(priv, ct); err != nil || !bytes.Equal(pt, msg) {
		t.Errorf("cached key round trip failed: %v", err)
	}
}

// TestEngineDefaults tests engine level defaults and the observer
func TestEngineDefaults(t *testing.T) {
	obs := &recordingObserver{}
	engine, err := NewEngineFromConfig(Config{
		UserID:            "alice@example.com",
		CipherMode:        "C1C2C3",
		SignatureEncoding: "der",
	}, WithObserver(obs))
	if err != nil {
		t.Fatal(err)
	}

	priv, err := engine.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	msg := []byte("defaults")

	sigHex, err := engine.SignHex(msg, priv.Hex())
	if err != nil {
		t.Fatal(err)
	}
	der, _ := hex.DecodeString(sigHex)
	if der[0] != 0x30 {
		t.Error("engine default should be DER")
	}
	if !VerifyBytes(priv.PublicKey(), msg, der, WithDER(), WithUserID([]byte("alice@example.com"))) {
		t.Error("engine default user id not applied")
	}

	ct, err := engine.Encrypt(priv.PublicKey(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(priv, ct, WithMode(C1C2C3)); err != nil {
		t.Errorf("engine default mode not applied: %v", err)
	}

	_, _ = engine.Decrypt(priv, []byte{1, 2, 3})

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.ops["sign"]) == 0 || !obs.ops["sign"][0] {
		t.Error("sign not observed")
	}
	if d := obs.ops["decrypt"]; len(d) == 0 || d[len(d)-1] {
		t.Error("failed decrypt not observed")
	}
}

// TestEngineConfigErrors tests configuration validation
func TestEngineConfigErrors(t *testing.T) {
	if _, err := NewEngineFromConfig(Config{CipherMode: "C3C1C2"}); !errors.Is(err, ErrUnknownCipherMode) {
		t.Errorf("expected ErrUnknownCipherMode, got %v", err)
	}

	pair, _ := Default().GenerateKeyPairHex()
	other, _ := Default().GenerateKeyPairHex()
	cfg := Config{PrivateKey: pair.PrivateKey, PublicKey: other.PublicKey}
	if _, _, err := cfg.Keys(); !errors.Is(err, ErrInvalidPublicKey) {
		t.Errorf("expected mismatch error, got %v", err)
	}

	cfg.PublicKey = pair.PublicKey
	priv, pub, err := cfg.Keys()
	if err != nil || priv == nil || pub == nil {
		t.Fatalf("Keys failed: %v", err)
	}
}

// TestEnginePoints tests base point and random point helpers
func TestEnginePoints(t *testing.T) {
	engine := Default()
	g := engine.GetBasePoint()
	if g.X != "32c4ae2c1f1981195f9904466a39c9948fe30bbff2660be1715a4589334c74c7" {
		t.Errorf("unexpected Gx %s", g.X)
	}
	if g.Y != "bc3736a2f4f6779c59bdcee36b692153d0a9877cc62a474002df32e52139f0a0" {
		t.Errorf("unexpected Gy %s", g.Y)
	}
	if !engine.VerifyPublicKeyHex("04" + g.X + g.Y) {
		t.Error("base point should be a valid public key")
	}

	p, err := engine.GetPoint()
	if err != nil {
		t.Fatal(err)
	}
	if p.K != p.PrivateKey || p.PublicKey[2:66] != p.X1 {
		t.Error("random point fields inconsistent")
	}
}
