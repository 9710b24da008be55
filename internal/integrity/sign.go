package integrity

import (
	"context"
	"crypto/ecdsa"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fairdraw/pkg/digest"
)

// KeyProvider yields the process signing key. Implementations generate or
// load the key once and return the same key for the process lifetime.
type KeyProvider interface {
	SigningKey(ctx context.Context) (*ecdsa.PrivateKey, error)
}

// Bundle is the integrity triple exported next to a run's artifacts.
type Bundle struct {
	Manifest        Manifest
	ManifestJSON    string
	SignatureBase64 string
	PublicKeyJWK    string
}

type Signer struct {
	keys KeyProvider
	now  func() time.Time
}

type SignerOption func(*Signer)

// WithSignerClock overrides the manifest generation time, for tests.
func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

func NewSigner(keys KeyProvider, opts ...SignerOption) *Signer {
	s := &Signer{keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seal builds a manifest over the exact artifact text and signs it.
func (s *Signer) Seal(ctx context.Context, auditJSONL, auditSummary string) (*Bundle, error) {
	key, err := s.keys.SigningKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	m := BuildManifest(auditJSONL, auditSummary, s.now())
	manifestBytes, err := m.Bytes()
	if err != nil {
		return nil, err
	}
	sig, err := SignBytes(manifestBytes, key)
	if err != nil {
		return nil, err
	}
	jwk, err := ExportPublicJWK(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	jwkBytes, err := digest.Marshal(jwk)
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}

	return &Bundle{
		Manifest:        m,
		ManifestJSON:    string(manifestBytes),
		SignatureBase64: sig,
		PublicKeyJWK:    string(jwkBytes),
	}, nil
}

// SignBytes produces a base64 raw r||s ECDSA P-256/SHA-256 signature.
func SignBytes(data []byte, key *ecdsa.PrivateKey) (string, error) {
	sig, err := jwt.SigningMethodES256.Sign(string(data), key)
	if err != nil {
		return "", fmt.Errorf("sign manifest: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}
