// Package cryptox implements the key custody primitives of secureshare:
// RSA key pairs per user, AES-256-GCM sealing of private keys under the
// process master key, RSA-OAEP wrapping of per-file symmetric keys,
// AES-256-GCM payload encryption, and metadata signatures.
//
// Failures in key handling are reported as common.ErrCrypto without
// distinguishing the failing step; a wrong master key is indistinguishable
// from a tampered blob. Payload tag mismatches are common.ErrIntegrity.
package cryptox

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"

	"github.com/dmitrijs2005/secureshare/internal/common"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32
	// IVSize is the GCM nonce length in bytes (96 bits).
	IVSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
	// rsaBits is the modulus size for user key pairs.
	rsaBits = 2048
)

// GenerateKeyPair creates a new 2048-bit RSA key pair.
func GenerateKeyPair() (*rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, rsaBits)
	if err != nil {
		return nil, fmt.Errorf("generating key pair: %w", common.ErrCrypto)
	}
	return key, nil
}

// EncodePublicKey serializes a public key as base64-encoded PKIX DER,
// the form stored on the user record.
func EncodePublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("encoding public key: %w", common.ErrCrypto)
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

// DecodePublicKey parses a base64 PKIX public key produced by EncodePublicKey.
func DecodePublicKey(s string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", common.ErrCrypto)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", common.ErrCrypto)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA public key: %w", common.ErrCrypto)
	}
	return pub, nil
}

// WrapPrivateKey seals the PKCS#8 form of a private key under the process
// master key with AES-256-GCM. The returned blob is base64(iv || ct || tag);
// a fresh random IV is generated on every call.
func WrapPrivateKey(priv *rsa.PrivateKey, masterKey []byte) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("marshaling private key: %w", common.ErrCrypto)
	}
	defer common.WipeByteArray(der)

	gcm, err := newGCM(masterKey)
	if err != nil {
		return "", err
	}

	iv := common.GenerateRandByteArray(IVSize)
	sealed := gcm.Seal(nil, iv, der, nil)

	blob := make([]byte, 0, len(iv)+len(sealed))
	blob = append(blob, iv...)
	blob = append(blob, sealed...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// UnwrapPrivateKey opens a blob produced by WrapPrivateKey. Any failure,
// including a wrong master key or a tampered blob, is common.ErrCrypto.
func UnwrapPrivateKey(blob string, masterKey []byte) (*rsa.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding key blob: %w", common.ErrCrypto)
	}
	if len(raw) < IVSize+TagSize {
		return nil, fmt.Errorf("short key blob: %w", common.ErrCrypto)
	}

	gcm, err := newGCM(masterKey)
	if err != nil {
		return nil, err
	}

	der, err := gcm.Open(nil, raw[:IVSize], raw[IVSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("opening key blob: %w", common.ErrCrypto)
	}
	defer common.WipeByteArray(der)

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", common.ErrCrypto)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA private key: %w", common.ErrCrypto)
	}
	return priv, nil
}

// GenerateKey returns a fresh random AES-256 key.
func GenerateKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// WrapKey encrypts a symmetric key for the recipient with
// RSA-OAEP (SHA-256/MGF1).
func WrapKey(key []byte, pub *rsa.PublicKey) ([]byte, error) {
	wrapped, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, fmt.Errorf("wrapping key: %w", common.ErrCrypto)
	}
	return wrapped, nil
}

// UnwrapKey decrypts an RSA-OAEP wrapped symmetric key. Padding and format
// mismatches surface as common.ErrCrypto.
func UnwrapKey(wrapped []byte, priv *rsa.PrivateKey) ([]byte, error) {
	key, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("unwrapping key: %w", common.ErrCrypto)
	}
	return key, nil
}

// EncryptPayload encrypts plaintext with AES-256-GCM under key and a fresh
// random 96-bit IV. The authentication tag is returned separately from the
// ciphertext, so the stored ciphertext length equals the plaintext length.
// An IV is never reused with the same key: it is drawn from the CSPRNG on
// every call and returned to be persisted alongside the row.
func EncryptPayload(plaintext, key []byte) (ciphertext, iv, tag []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, nil, err
	}

	iv = common.GenerateRandByteArray(IVSize)
	sealed := gcm.Seal(nil, iv, plaintext, nil)

	n := len(sealed) - TagSize
	return sealed[:n], iv, sealed[n:], nil
}

// DecryptPayload reverses EncryptPayload. A tag mismatch yields
// common.ErrIntegrity and no plaintext.
func DecryptPayload(ciphertext, tag, key, iv []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("bad iv length %d: %w", len(iv), common.ErrCrypto)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("opening payload: %w", common.ErrIntegrity)
	}
	return plaintext, nil
}

// Sign produces a PKCS#1 v1.5 signature over SHA-256(data).
func Sign(data []byte, priv *rsa.PrivateKey) ([]byte, error) {
	digest := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("signing: %w", common.ErrCrypto)
	}
	return sig, nil
}

// Verify reports whether sig is a valid signature of data under pub.
func Verify(data, sig []byte, pub *rsa.PublicKey) bool {
	digest := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", common.ErrCrypto)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", common.ErrCrypto)
	}
	return gcm, nil
}
