package cryptox

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// SealedPrefix marks a string value produced by Sealer.Seal. Values without
// the prefix are treated as plaintext so existing files keep working.
const SealedPrefix = "sealed:v1:"

var (
	ErrNoKeyMaterial = errors.New("cryptox: empty key material")
	ErrOpen          = errors.New("cryptox: sealed value cannot be opened")
)

// hkdfInfo binds derived keys to this use so the same material can't be
// replayed against another purpose.
var hkdfInfo = []byte("provision credential store v1")

// Sealer encrypts individual string values with XChaCha20-Poly1305.
// The output format is: SealedPrefix + base64url([24-byte nonce][ciphertext+tag]).
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 256-bit key from keyMaterial with HKDF-SHA256.
func NewSealer(keyMaterial []byte) (*Sealer, error) {
	if len(keyMaterial) == 0 {
		return nil, ErrNoKeyMaterial
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, keyMaterial, nil, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// LoadSealer builds a Sealer from the file at path, or failing that from the
// named environment variable. It returns (nil, nil) when neither is set, which
// means values are stored in plaintext.
func LoadSealer(path, envVar string) (*Sealer, error) {
	var material []byte

	switch {
	case path != "":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sealing key file: %w", err)
		}
		material = []byte(strings.TrimSpace(string(data)))
	case envVar != "" && os.Getenv(envVar) != "":
		material = []byte(os.Getenv(envVar))
	default:
		return nil, nil
	}

	return NewSealer(material)
}

// Seal encrypts plaintext. Empty strings stay empty so optional fields remain
// optional on disk.
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return SealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal. Plaintext values are returned as is.
func (s *Sealer) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOpen, err)
	}

	ns := s.aead.NonceSize()
	if len(raw) < ns+s.aead.Overhead() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrOpen)
	}

	plain, err := s.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOpen, err)
	}
	return string(plain), nil
}

// IsSealed reports whether value carries the sealed prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, SealedPrefix)
}
