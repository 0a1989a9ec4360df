package tiered

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// A sealed slot body is encryptionMagic, the nonce length, the nonce, then
// the AES-GCM ciphertext. The key the body is stored under is the additional
// data, so a body only opens under the key it was written to.
var encryptionMagic = []byte("ENC1")

var (
	ErrEncryptionKey = errors.New("tiered: encryption key must be 16, 24, or 32 bytes")
	ErrDecryptFailed = errors.New("tiered: decrypt failed")
)

// encryptingStore seals slot bodies. Bodies written before encryption was
// enabled carry no envelope and are returned as stored. Counters stay plain
// so backends can increment them.
type encryptingStore struct {
	inner Store
	aead  cipher.AEAD
}

func newEncryptingStore(inner Store, key []byte) (Store, error) {
	if len(key) == 0 {
		return inner, nil
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrEncryptionKey
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &encryptingStore{inner: inner, aead: aead}, nil
}

func (s *encryptingStore) Driver() Driver { return s.inner.Driver() }

func (s *encryptingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return body, ok, err
	}
	plain, err := s.open(key, body)
	if err != nil {
		return nil, false, err
	}
	return plain, true, nil
}

func (s *encryptingStore) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *encryptingStore) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return s.inner.Increment(ctx, key, delta)
}

func (s *encryptingStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

func (s *encryptingStore) Close() error { return closeStore(s.inner) }

func (s *encryptingStore) seal(key string, body []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(encryptionMagic)+1+len(nonce)+len(body)+s.aead.Overhead())
	out = append(out, encryptionMagic...)
	out = append(out, byte(len(nonce)))
	out = append(out, nonce...)
	return s.aead.Seal(out, nonce, body, []byte(key)), nil
}

func (s *encryptingStore) open(key string, in []byte) ([]byte, error) {
	nonceLen, rest, ok := splitEnvelope(in, encryptionMagic)
	if !ok {
		return in, nil
	}
	if int(nonceLen) != s.aead.NonceSize() || len(rest) < int(nonceLen) {
		return nil, ErrDecryptFailed
	}
	plain, err := s.aead.Open(nil, rest[:nonceLen], rest[nonceLen:], []byte(key))
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plain, nil
}
