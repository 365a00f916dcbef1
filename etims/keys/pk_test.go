package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"
)

func encodeKey(t *testing.T, key any, password []byte) []byte {
	t.Helper()
	der, err := pkcs8.MarshalPrivateKey(key, password, nil)
	require.NoError(t, err)

	typ := "PRIVATE KEY"
	if password != nil {
		typ = "ENCRYPTED PRIVATE KEY"
	}
	return pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der})
}

func TestLoadSignerFromFile_EncryptedRSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sign.key")
	require.NoError(t, os.WriteFile(path, encodeKey(t, key, []byte("secret")), 0o600))

	signer, err := LoadSignerFromFile(path, []byte("secret"))
	require.NoError(t, err)
	assert.True(t, key.PublicKey.Equal(signer.Public()))

	_, err = LoadSignerFromFile(path, nil)
	assert.Error(t, err)

	_, err = LoadSignerFromFile(path, []byte("wrong"))
	assert.Error(t, err)
}

func TestLoadSignerFromPEM_Plain(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signer, err := LoadSignerFromPEM(encodeKey(t, key, nil), nil)
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("receipt"))
	a, err := SignDigest(signer, digest[:])
	require.NoError(t, err)
	b, err := SignDigest(signer, digest[:])
	require.NoError(t, err)
	assert.Equal(t, a, b, "signatures must be reproducible")
}

func TestLoadSignerFromPEM_RejectsECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = LoadSignerFromPEM(encodeKey(t, key, nil), nil)
	assert.True(t, errors.Is(err, ErrNondeterministicKey))
}

func TestLoadSignerFromPEM_NoKey(t *testing.T) {
	_, err := LoadSignerFromPEM([]byte("-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"), nil)
	assert.Error(t, err)

	_, err = LoadSignerFromFile(filepath.Join(t.TempDir(), "missing.key"), nil)
	assert.Error(t, err)
}
