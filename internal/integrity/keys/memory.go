// Package keys provides signing-key lifecycles for integrity manifests.
package keys

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"sync"
)

// Memory generates one P-256 key on first use and keeps it for the life of
// the process. Exported signatures stay verifiable only through the public
// key published with each run.
type Memory struct {
	once sync.Once
	key  *ecdsa.PrivateKey
	err  error
}

func NewMemory() *Memory {
	return &Memory{}
}

// NewMemoryFromKey wraps an existing key, for tests.
func NewMemoryFromKey(key *ecdsa.PrivateKey) *Memory {
	m := &Memory{key: key}
	m.once.Do(func() {})
	return m
}

func (m *Memory) SigningKey(_ context.Context) (*ecdsa.PrivateKey, error) {
	m.once.Do(func() {
		m.key, m.err = Generate()
	})
	return m.key, m.err
}

// Generate creates a fresh P-256 key.
func Generate() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate P-256 key: %w", err)
	}
	return key, nil
}
