package integrity

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const coordinateSize = 32

// PublicJWK is the exported verification key (RFC 7517, EC P-256).
type PublicJWK struct {
	Kty    string   `json:"kty"`
	Crv    string   `json:"crv"`
	X      string   `json:"x"`
	Y      string   `json:"y"`
	Ext    bool     `json:"ext"`
	KeyOps []string `json:"key_ops"`
}

// ExportPublicJWK encodes a P-256 public key as a JWK.
func ExportPublicJWK(pub *ecdsa.PublicKey) (PublicJWK, error) {
	if pub == nil || pub.Curve != elliptic.P256() {
		return PublicJWK{}, errors.New("public key must be P-256")
	}
	x := make([]byte, coordinateSize)
	y := make([]byte, coordinateSize)
	pub.X.FillBytes(x)
	pub.Y.FillBytes(y)
	return PublicJWK{
		Kty:    "EC",
		Crv:    "P-256",
		X:      base64.RawURLEncoding.EncodeToString(x),
		Y:      base64.RawURLEncoding.EncodeToString(y),
		Ext:    true,
		KeyOps: []string{"verify"},
	}, nil
}

// ParsePublicJWK decodes and validates a P-256 JWK. The point must lie on
// the curve.
func ParsePublicJWK(text string) (*ecdsa.PublicKey, error) {
	var jwk PublicJWK
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &jwk); err != nil {
		return nil, fmt.Errorf("decode jwk: %w", err)
	}
	if jwk.Kty != "EC" || jwk.Crv != "P-256" {
		return nil, fmt.Errorf("unsupported key type %q/%q", jwk.Kty, jwk.Crv)
	}
	x, err := decodeCoordinate(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("jwk x: %w", err)
	}
	y, err := decodeCoordinate(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("jwk y: %w", err)
	}

	uncompressed := make([]byte, 0, 1+2*coordinateSize)
	uncompressed = append(uncompressed, 0x04)
	uncompressed = append(uncompressed, x...)
	uncompressed = append(uncompressed, y...)
	if _, err := ecdh.P256().NewPublicKey(uncompressed); err != nil {
		return nil, fmt.Errorf("invalid P-256 point: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, nil
}

func decodeCoordinate(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, err
	}
	if len(b) > coordinateSize {
		return nil, fmt.Errorf("coordinate is %d bytes", len(b))
	}
	out := make([]byte, coordinateSize)
	copy(out[coordinateSize-len(b):], b)
	return out, nil
}
