// Package sm2 implements the SM2 elliptic curve public key algorithms of
// GB/T 32918: key generation, public key encryption and digital signatures.
//
// This implementation uses:
//   - the SM2 recommended 256-bit prime curve (constant-time Montgomery
//     field arithmetic and complete projective formulas)
//   - SM3 for the signer identity digest ZA, the message digest, the KDF
//     and the ciphertext check value C3
//   - fixed-base comb tables for the base point and for precomputed
//     public keys
//
// Example usage:
//
//	// Generate a new key pair
//	privateKey, err := sm2.GenerateKey(rand.Reader)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer privateKey.Destroy()
//
//	publicKey := privateKey.PublicKey()
//
//	// Encrypt a message (C1C3C2 layout)
//	ciphertext, err := sm2.Encrypt(rand.Reader, publicKey, []byte("Hello, SM2!"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Decrypt the message
//	plaintext, err := sm2.Decrypt(privateKey, ciphertext)
//
//	// Sign and verify with the default user id
//	sig, err := sm2.Sign(rand.Reader, privateKey, msg)
//	ok := sm2.Verify(publicKey, msg, sig)
//
// Hex boundary helpers live on Engine:
//
//	engine := sm2.Default()
//	pair, _ := engine.GenerateKeyPairHex()
//	ct, _ := engine.EncryptHex(msg, pair.PublicKey, sm2.C1C3C2)
//	pt, _ := engine.DecryptHex(ct, pair.PrivateKey, sm2.C1C3C2)
package sm2
