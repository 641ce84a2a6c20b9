// Package cryptoutils implements the cryptographic handshake used to
// retrieve card secrets from the issuing service, plus key derivation for
// encrypted local stores.
//
// The handshake works in two steps. First a 16-byte session key is
// generated, base64 encoded, and wrapped under the issuer's RSA public key
// with OAEP padding; the wrapped value is sent to the issuer as a session
// identifier. The issuer then returns the PAN and CVC each encrypted with
// AES-128-GCM under the session key, with their own IVs, and the blocks are
// decrypted locally. Session keys live for exactly one exchange and are
// never persisted.
package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrInvalidKeyFormat is returned when a caller-supplied session key is
	// not valid hexadecimal.
	ErrInvalidKeyFormat = errors.New("session key must be a hex string")

	// ErrInvalidInput is returned for malformed handshake arguments (empty
	// or non-base64 ciphertext/IV, non-hex key).
	ErrInvalidInput = errors.New("invalid input")

	// ErrDecryptionFailed is returned when a secret block cannot be
	// authenticated and decrypted. No partial plaintext is ever returned.
	ErrDecryptionFailed = errors.New("failed to decrypt secret block")
)

var hexKeyRegexp = regexp.MustCompile(`^[0-9A-Fa-f]+$`)

// SecretsSession is a one-time confidential channel to the issuer.
type SecretsSession struct {
	// KeyHex is the raw session key, hex encoded. It is held in memory only
	// and discarded after the exchange.
	KeyHex string

	// SessionID is the base64 encoding of the RSA-OAEP-wrapped session key.
	// It is sent to the issuer as the session header value.
	SessionID string
}

// NewSecretsSession establishes a session for one secret-reveal exchange.
//
// A random 16-byte key is generated unless presetKeyHex is supplied;
// a preset key must be valid hexadecimal or the call fails with
// ErrInvalidKeyFormat. The base64 encoding of the key is encrypted with the
// issuer's RSA public key using OAEP padding with its default parameters.
// OAEP is randomized, so wrapping the same key twice yields different
// session ids; callers must not use the SessionID as a cache key.
func NewSecretsSession(issuerPublicKeyPEM []byte, presetKeyHex string) (*SecretsSession, error) {
	if len(issuerPublicKeyPEM) == 0 {
		return nil, fmt.Errorf("%w: issuer public key PEM is required", ErrInvalidInput)
	}

	keyHex := presetKeyHex
	if keyHex == "" {
		keyHex = strings.ReplaceAll(uuid.NewString(), "-", "")
	} else if !hexKeyRegexp.MatchString(keyHex) {
		return nil, ErrInvalidKeyFormat
	}

	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}

	block, _ := pem.Decode(issuerPublicKeyPEM)
	if block == nil {
		return nil, fmt.Errorf("%w: failed to decode public key PEM", ErrInvalidInput)
	}

	pubAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse issuer public key: %w", err)
	}

	rsaPub, ok := pubAny.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key", ErrInvalidInput)
	}

	keyB64 := base64.StdEncoding.EncodeToString(keyBytes)
	wrapped, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, rsaPub, []byte(keyB64), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap session key: %w", err)
	}

	return &SecretsSession{
		KeyHex:    keyHex,
		SessionID: base64.StdEncoding.EncodeToString(wrapped),
	}, nil
}

// DecryptSecretBlock decrypts one AES-128-GCM secret block returned by the
// issuer. The ciphertext and IV are base64 encoded; the 16-byte GCM tag is
// appended to the ciphertext as delivered on the wire. Trailing null bytes
// and whitespace are stripped from the plaintext, since the issuer pads
// fields to fixed widths.
func DecryptSecretBlock(ciphertextB64, ivB64, sessionKeyHex string) (string, error) {
	if ciphertextB64 == "" {
		return "", fmt.Errorf("%w: ciphertext is required", ErrInvalidInput)
	}
	if ivB64 == "" {
		return "", fmt.Errorf("%w: iv is required", ErrInvalidInput)
	}
	if sessionKeyHex == "" || !hexKeyRegexp.MatchString(sessionKeyHex) {
		return "", fmt.Errorf("%w: session key must be a hex string", ErrInvalidInput)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext is not valid base64", ErrInvalidInput)
	}

	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", fmt.Errorf("%w: iv is not valid base64", ErrInvalidInput)
	}
	if len(iv) == 0 {
		return "", fmt.Errorf("%w: iv is empty", ErrInvalidInput)
	}

	key, err := hex.DecodeString(sessionKeyHex)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	aesGCM, err := cipher.NewGCMWithNonceSize(aesBlock, len(iv))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	plaintext, err := aesGCM.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	trimmed := strings.TrimRight(string(plaintext), "\x00")
	return strings.TrimSpace(trimmed), nil
}
