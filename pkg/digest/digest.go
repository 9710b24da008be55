// Package digest holds the hashing and canonical encoding primitives shared by
// seed derivation, the audit chain and the integrity manifest.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// SHA256Hex hashes the UTF-8 bytes of s and returns lowercase hex.
func SHA256Hex(s string) string {
	return SHA256HexBytes([]byte(s))
}

// SHA256HexBytes hashes b and returns lowercase hex.
func SHA256HexBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ConcatAndHashHex joins parts with "\n" and hashes the result once.
func ConcatAndHashHex(parts []string) string {
	return SHA256Hex(strings.Join(parts, "\n"))
}

// HexToBytes decodes a hex string after trimming and lowercasing it.
func HexToBytes(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return b, nil
}
