package cryptox

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dmitrijs2005/secureshare/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptPayload_RoundTrip(t *testing.T) {
	key := GenerateKey()

	payloads := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0xAB}, 1<<16),
	}

	for _, p := range payloads {
		ct, iv, tag, err := EncryptPayload(p, key)
		require.NoError(t, err)
		assert.Len(t, ct, len(p), "ciphertext must stay payload-sized")
		assert.Len(t, iv, IVSize)
		assert.Len(t, tag, TagSize)

		got, err := DecryptPayload(ct, tag, key, iv)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(p, got))
	}
}

func TestDecryptPayload_TamperedCiphertext(t *testing.T) {
	key := GenerateKey()
	ct, iv, tag, err := EncryptPayload([]byte("sensitive contents"), key)
	require.NoError(t, err)

	ct[0] ^= 0x01
	got, err := DecryptPayload(ct, tag, key, iv)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, common.ErrIntegrity))
}

func TestDecryptPayload_TamperedTag(t *testing.T) {
	key := GenerateKey()
	ct, iv, tag, err := EncryptPayload([]byte("sensitive contents"), key)
	require.NoError(t, err)

	tag[len(tag)-1] ^= 0x80
	got, err := DecryptPayload(ct, tag, key, iv)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, common.ErrIntegrity))
}

func TestEncryptPayload_IVNeverRepeats(t *testing.T) {
	key := GenerateKey()
	const n = 256

	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		_, iv, _, err := EncryptPayload([]byte("same payload"), key)
		require.NoError(t, err)
		seen[string(iv)] = struct{}{}
	}
	assert.Len(t, seen, n)
}

func TestWrapUnwrapPrivateKey(t *testing.T) {
	masterKey := GenerateKey()
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	blob, err := WrapPrivateKey(priv, masterKey)
	require.NoError(t, err)

	got, err := UnwrapPrivateKey(blob, masterKey)
	require.NoError(t, err)
	assert.True(t, priv.Equal(got))
}

func TestUnwrapPrivateKey_WrongMasterKey(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	blob, err := WrapPrivateKey(priv, GenerateKey())
	require.NoError(t, err)

	got, err := UnwrapPrivateKey(blob, GenerateKey())
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, common.ErrCrypto))
}

func TestUnwrapPrivateKey_TamperedBlob(t *testing.T) {
	masterKey := GenerateKey()
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	blob, err := WrapPrivateKey(priv, masterKey)
	require.NoError(t, err)

	raw := []byte(blob)
	raw[len(raw)/2] ^= 0x01
	tamperedGot, tamperedErr := UnwrapPrivateKey(string(raw), masterKey)
	wrongKeyGot, wrongKeyErr := UnwrapPrivateKey(blob, GenerateKey())

	// The caller must not be able to tell tampering from a wrong key.
	assert.Nil(t, tamperedGot)
	assert.Nil(t, wrongKeyGot)
	assert.True(t, errors.Is(tamperedErr, common.ErrCrypto))
	assert.True(t, errors.Is(wrongKeyErr, common.ErrCrypto))
}

func TestWrapUnwrapKey_RoundTrip(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	key := GenerateKey()
	wrapped, err := WrapKey(key, &priv.PublicKey)
	require.NoError(t, err)
	assert.NotEqual(t, key, wrapped)

	got, err := UnwrapKey(wrapped, priv)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestUnwrapKey_WrongPrivateKey(t *testing.T) {
	alice, err := GenerateKeyPair()
	require.NoError(t, err)
	bob, err := GenerateKeyPair()
	require.NoError(t, err)

	wrapped, err := WrapKey(GenerateKey(), &alice.PublicKey)
	require.NoError(t, err)

	got, err := UnwrapKey(wrapped, bob)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, common.ErrCrypto))
}

func TestSignVerify(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	metadata := []byte("report.pdfquarterly reportfinance")
	sig, err := Sign(metadata, priv)
	require.NoError(t, err)

	assert.True(t, Verify(metadata, sig, &priv.PublicKey))
	assert.False(t, Verify([]byte("report.pdfquarterly reportlegal"), sig, &priv.PublicKey))

	other, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.False(t, Verify(metadata, sig, &other.PublicKey))
}

func TestEncodeDecodePublicKey(t *testing.T) {
	priv, err := GenerateKeyPair()
	require.NoError(t, err)

	s, err := EncodePublicKey(&priv.PublicKey)
	require.NoError(t, err)

	pub, err := DecodePublicKey(s)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(pub))
}

func TestDecodePublicKey_Garbage(t *testing.T) {
	_, err := DecodePublicKey("not base64 at all!!!")
	assert.True(t, errors.Is(err, common.ErrCrypto))
}
