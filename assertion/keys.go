package assertion

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// KeyProvider supplies the RSA private key used to sign assertions.
type KeyProvider interface {
	PrivateKey(ctx context.Context) (*rsa.PrivateKey, error)
}

// FileKeyProvider reads a PEM-encoded RSA private key (PKCS#1 or PKCS#8) from Path.
// Every call re-reads the file.
type FileKeyProvider struct {
	Path string
}

// NewFileKeyProvider returns a provider that reads the key at path.
func NewFileKeyProvider(path string) *FileKeyProvider {
	return &FileKeyProvider{Path: path}
}

// PrivateKey reads and parses the key file.
func (p *FileKeyProvider) PrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p == nil || p.Path == "" {
		return nil, fmt.Errorf("%w: no key path configured", ErrKeyRead)
	}
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyRead, err)
	}
	return ParsePrivateKey(raw)
}

// StaticKeyProvider serves an already parsed key.
type StaticKeyProvider struct {
	Key *rsa.PrivateKey
}

func (p StaticKeyProvider) PrivateKey(context.Context) (*rsa.PrivateKey, error) {
	if p.Key == nil {
		return nil, fmt.Errorf("%w: nil key", ErrKeyRead)
	}
	return p.Key, nil
}

// CachedKeyProvider loads the key from Source once and serves the cached value
// afterwards. Failed loads are not cached.
type CachedKeyProvider struct {
	Source KeyProvider

	mu  sync.Mutex
	key *rsa.PrivateKey
}

// NewCachedKeyProvider wraps source with a load-once cache.
func NewCachedKeyProvider(source KeyProvider) *CachedKeyProvider {
	return &CachedKeyProvider{Source: source}
}

func (p *CachedKeyProvider) PrivateKey(ctx context.Context) (*rsa.PrivateKey, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		return p.key, nil
	}
	if p.Source == nil {
		return nil, fmt.Errorf("%w: nil key source", ErrKeyRead)
	}
	key, err := p.Source.PrivateKey(ctx)
	if err != nil {
		return nil, err
	}
	p.key = key
	return key, nil
}

// Reset drops the cached key so the next call reloads it.
func (p *CachedKeyProvider) Reset() {
	p.mu.Lock()
	p.key = nil
	p.mu.Unlock()
}

// ParsePrivateKey decodes PEM RSA key material.
func ParsePrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return key, nil
}
