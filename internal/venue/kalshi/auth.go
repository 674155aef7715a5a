package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Signer produces the venue B request signature headers. Every signed
// request carries the key ID, a millisecond timestamp, and an RSA-PSS
// signature over timestamp+METHOD+path.
type Signer struct {
	keyID string
	key   *rsa.PrivateKey
}

// NewSigner creates a signer from an API key ID and a parsed private key.
func NewSigner(keyID string, key *rsa.PrivateKey) *Signer {
	return &Signer{keyID: keyID, key: key}
}

// LoadPrivateKey loads the RSA private key from an inline PEM string or,
// when that is empty, from a file path. Supports PKCS#1 and PKCS#8.
func LoadPrivateKey(pemData, path string) (*rsa.PrivateKey, error) {
	if pemData == "" {
		if path == "" {
			return nil, fmt.Errorf("no private key configured")
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read private key file: %w", err)
		}
		pemData = string(data)
	}

	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, fmt.Errorf("decode private key PEM")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}

	return key, nil
}

// Sign returns the base64 RSA-PSS-SHA256 signature over
// timestamp+METHOD+path.
func (s *Signer) Sign(timestamp, method, path string) (string, error) {
	message := timestamp + method + path
	digest := crypto.SHA256.New()
	digest.Write([]byte(message))

	signature, err := rsa.SignPSS(rand.Reader, s.key, crypto.SHA256, digest.Sum(nil), &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", fmt.Errorf("sign request: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}

// Headers returns the three auth headers for one request.
func (s *Signer) Headers(method, path string) (map[string]string, error) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)

	signature, err := s.Sign(timestamp, method, path)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"KALSHI-ACCESS-KEY":       s.keyID,
		"KALSHI-ACCESS-TIMESTAMP": timestamp,
		"KALSHI-ACCESS-SIGNATURE": signature,
	}, nil
}
