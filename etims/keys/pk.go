// Package keys loads the private key used to sign locally issued receipts.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"os"

	"github.com/go-faster/errors"
	"github.com/youmark/pkcs8"
)

// ErrNondeterministicKey is returned for key types whose signatures differ on every call.
// Re-running a batch must reproduce the same receipts, so only RSA (PKCS#1 v1.5) keys are accepted.
var ErrNondeterministicKey = errors.New("key type produces randomized signatures")

// LoadSignerFromFile loads a PKCS#8 PEM key file. The key may be encrypted (password required)
// or plain.
func LoadSignerFromFile(path string, password []byte) (crypto.Signer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read key file")
	}
	return LoadSignerFromPEM(b, password)
}

// LoadSignerFromPEM returns the first ENCRYPTED PRIVATE KEY or PRIVATE KEY block found.
func LoadSignerFromPEM(pemBytes []byte, password []byte) (crypto.Signer, error) {
	for len(pemBytes) > 0 {
		var block *pem.Block
		block, pemBytes = pem.Decode(pemBytes)
		if block == nil {
			break
		}

		var (
			keyAny any
			err    error
		)
		switch block.Type {
		case "ENCRYPTED PRIVATE KEY":
			if len(password) == 0 {
				return nil, errors.New("password is required for ENCRYPTED PRIVATE KEY")
			}
			keyAny, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes, password)
		case "PRIVATE KEY":
			keyAny, err = pkcs8.ParsePKCS8PrivateKey(block.Bytes)
		default:
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "parse PKCS#8 private key")
		}

		switch k := keyAny.(type) {
		case *rsa.PrivateKey:
			return k, nil
		case *ecdsa.PrivateKey:
			return nil, errors.Wrap(ErrNondeterministicKey, "ECDSA")
		default:
			return nil, errors.Errorf("unsupported key type in PKCS#8: %T (expected RSA)", keyAny)
		}
	}

	return nil, errors.New("no PRIVATE KEY block found in PEM")
}

// SignDigest signs a SHA-256 digest.
func SignDigest(signer crypto.Signer, digest []byte) ([]byte, error) {
	if _, ok := signer.Public().(*rsa.PublicKey); !ok {
		return nil, ErrNondeterministicKey
	}
	sig, err := signer.Sign(rand.Reader, digest, crypto.SHA256)
	if err != nil {
		return nil, errors.Wrap(err, "sign digest")
	}
	return sig, nil
}
