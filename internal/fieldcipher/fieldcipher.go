// Package fieldcipher encrypts single sensitive columns with AES-GCM.
//
// A stored value is base64(nonce || ciphertext || tag) with a 12-byte nonce
// drawn fresh for every call and a 16-byte authentication tag, so two
// encryptions of the same plaintext never match. Fingerprint provides the
// deterministic counterpart used for equality lookups and unique indexes.
package fieldcipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

const (
	NonceSize = 12
	TagSize   = 16
)

var (
	ErrKeyInvalid = errors.New("encryption key is invalid")
	ErrEncryption = errors.New("encryption failed")
	ErrDecryption = errors.New("decryption failed")
)

var fingerprintLabel = []byte("bankcards/fingerprint/v1")

type Cipher struct {
	aead   cipher.AEAD
	macKey []byte
	rand   io.Reader
}

type Option func(c *Cipher)

// WithRandSource replaces the nonce entropy source.
func WithRandSource(r io.Reader) Option {
	return func(c *Cipher) {
		c.rand = r
	}
}

// New creates a cipher for an AES-128, AES-192 or AES-256 key.
func New(key []byte, opts ...Option) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: got %d bytes, want 16, 24 or 32", ErrKeyInvalid, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}

	aead, err := cipher.NewGCMWithTagSize(block, TagSize)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCMWithTagSize: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write(fingerprintLabel)

	c := &Cipher{
		aead:   aead,
		macKey: mac.Sum(nil),
		rand:   rand.Reader,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// NewFromHex decodes a hex-encoded key and creates a cipher.
func NewFromHex(hexKey string, opts ...Option) (*Cipher, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("%w: key is empty", ErrKeyInvalid)
	}

	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyInvalid, err)
	}

	return New(key, opts...)
}

// Encrypt seals plaintext and returns the base64 blob.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)

	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncryption, err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Corrupted, truncated or
// tampered input and a wrong key all yield ErrDecryption.
func (c *Cipher) Decrypt(blob string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	if len(data) < NonceSize+TagSize {
		return "", fmt.Errorf("%w: input too short: %d bytes", ErrDecryption, len(data))
	}

	plaintext, err := c.aead.Open(nil, data[:NonceSize], data[NonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryption, err)
	}

	return string(plaintext), nil
}

// EncryptNull encrypts a nullable column value. NULL stays NULL.
func (c *Cipher) EncryptNull(v sql.NullString) (sql.NullString, error) {
	if !v.Valid {
		return v, nil
	}

	blob, err := c.Encrypt(v.String)
	if err != nil {
		return sql.NullString{}, err
	}

	return sql.NullString{String: blob, Valid: true}, nil
}

// DecryptNull decrypts a nullable column value. NULL stays NULL.
func (c *Cipher) DecryptNull(v sql.NullString) (sql.NullString, error) {
	if !v.Valid {
		return v, nil
	}

	plaintext, err := c.Decrypt(v.String)
	if err != nil {
		return sql.NullString{}, err
	}

	return sql.NullString{String: plaintext, Valid: true}, nil
}

// Fingerprint returns a keyed, deterministic hex digest of plaintext.
func (c *Cipher) Fingerprint(plaintext string) string {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write([]byte(plaintext))

	return hex.EncodeToString(mac.Sum(nil))
}
