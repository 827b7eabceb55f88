// Package cipher implements the Cipher port with AES-256-CBC envelopes.
//
// Keys are derived with HKDF, so envelopes written under the earlier
// truncated key||salt scheme cannot be decrypted here and must be
// re-registered.
package cipher

import (
	"bytes"
	"crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/hkdf"

	"github.com/ericfisherdev/secretpipe/internal/domain/port/driven"
)

const (
	keyLen    = 32
	ivLen     = aes.BlockSize
	saltLen   = 16
	separator = ":"
)

// hkdfInfo binds derived keys to this envelope format.
var hkdfInfo = []byte("secretpipe/credential-envelope/v1")

// ErrKeyRequired is returned by New when no process secret key is configured.
var ErrKeyRequired = errors.New("cipher: secret key is required")

// Compile-time interface satisfaction check.
var _ driven.Cipher = (*AESCBC)(nil)

// AESCBC encrypts with AES-256-CBC and PKCS#7 padding. The per-call key is
// HKDF-SHA256 over secretKey||salt, so the salt always influences the key.
type AESCBC struct {
	secretKey []byte
	rand      io.Reader
}

// New creates a cipher bound to the process-wide secret key.
func New(secretKey []byte) (*AESCBC, error) {
	if len(secretKey) == 0 {
		return nil, ErrKeyRequired
	}
	key := make([]byte, len(secretKey))
	copy(key, secretKey)
	return &AESCBC{secretKey: key, rand: rand.Reader}, nil
}

// Encrypt returns "<ivHex>:<ciphertextHex>". Empty plaintext is returned as is.
func (c *AESCBC) Encrypt(plaintext, salt string) (string, error) {
	if plaintext == "" {
		return plaintext, nil
	}

	key, err := c.deriveKey(salt)
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}

	iv := make([]byte, ivLen)
	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("rand iv: %w", err)
	}

	padded := pad([]byte(plaintext))
	defer memguard.WipeBytes(padded)

	ciphertext := make([]byte, len(padded))
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return hex.EncodeToString(iv) + separator + hex.EncodeToString(ciphertext), nil
}

// Decrypt parses and decrypts an envelope. Empty input is returned as is.
func (c *AESCBC) Decrypt(envelope, salt string) (string, error) {
	if envelope == "" {
		return envelope, nil
	}

	iv, ciphertext, err := parseEnvelope(envelope)
	if err != nil {
		return "", err
	}

	key, err := c.deriveKey(salt)
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}

	padded := make([]byte, len(ciphertext))
	defer memguard.WipeBytes(padded)
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)

	plaintext, err := unpad(padded)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// NewSalt returns 16 random bytes, hex encoded.
func (c *AESCBC) NewSalt() (string, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(c.rand, salt); err != nil {
		return "", fmt.Errorf("rand salt: %w", err)
	}
	return hex.EncodeToString(salt), nil
}

func (c *AESCBC) deriveKey(salt string) ([]byte, error) {
	ikm := make([]byte, 0, len(c.secretKey)+len(salt))
	ikm = append(ikm, c.secretKey...)
	ikm = append(ikm, salt...)
	defer memguard.WipeBytes(ikm)

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func parseEnvelope(envelope string) (iv, ciphertext []byte, err error) {
	ivHex, ctHex, ok := strings.Cut(envelope, separator)
	if !ok {
		return nil, nil, fmt.Errorf("%w: missing separator", driven.ErrDecryption)
	}
	if !isLowerHex(ivHex) || !isLowerHex(ctHex) {
		return nil, nil, fmt.Errorf("%w: fields must be lowercase hex", driven.ErrDecryption)
	}

	iv, err = hex.DecodeString(ivHex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: iv: %v", driven.ErrDecryption, err)
	}
	if len(iv) != ivLen {
		return nil, nil, fmt.Errorf("%w: iv must be %d bytes, got %d", driven.ErrDecryption, ivLen, len(iv))
	}

	ciphertext, err = hex.DecodeString(ctHex)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ciphertext: %v", driven.ErrDecryption, err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, nil, fmt.Errorf("%w: ciphertext length %d is not a positive block multiple", driven.ErrDecryption, len(ciphertext))
	}
	return iv, ciphertext, nil
}

func isLowerHex(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if (ch < '0' || ch > '9') && (ch < 'a' || ch > 'f') {
			return false
		}
	}
	return true
}

// pad applies PKCS#7 padding.
func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding. A wrong key almost always lands here.
func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext block", driven.ErrDecryption)
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: bad padding", driven.ErrDecryption)
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("%w: bad padding", driven.ErrDecryption)
		}
	}
	out := make([]byte, len(b)-n)
	copy(out, b[:len(b)-n])
	return out, nil
}
