package keys

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// File loads a PEM-encoded P-256 key from disk, creating it on first use when
// the file does not exist. The key is read once per process.
type File struct {
	path string

	mu  sync.Mutex
	key *ecdsa.PrivateKey
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) SigningKey(_ context.Context) (*ecdsa.PrivateKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.key != nil {
		return f.key, nil
	}

	data, err := os.ReadFile(f.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		key, genErr := f.create()
		if genErr != nil {
			return nil, genErr
		}
		f.key = key
		return key, nil
	case err != nil:
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse signing key %s: %w", f.path, err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("signing key %s is not P-256", f.path)
	}
	f.key = key
	return key, nil
}

func (f *File) create() (*ecdsa.PrivateKey, error) {
	key, err := Generate()
	if err != nil {
		return nil, err
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("encode signing key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return nil, fmt.Errorf("create key dir: %w", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(f.path, block, 0o600); err != nil {
		return nil, fmt.Errorf("write signing key: %w", err)
	}
	return key, nil
}
