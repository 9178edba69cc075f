// Package secrets seals API key values before they reach the database.
package secrets

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/rotisserie/eris"
	"golang.org/x/crypto/nacl/secretbox"
)

// Box encrypts and decrypts short strings with a process-wide symmetric
// key (nacl secretbox, random 24-byte nonce prefixed to the sealed
// payload, base64 on the wire).
type Box struct {
	key [32]byte
}

// NewBox derives a Box from a base64-encoded 32-byte key, typically
// SECRET_ENCRYPTION_KEY.
func NewBox(encodedKey string) (*Box, error) {
	raw, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, eris.Wrap(err, "secrets: decode key")
	}
	if len(raw) != 32 {
		return nil, eris.Errorf("secrets: key must be 32 bytes, got %d", len(raw))
	}
	b := &Box{}
	copy(b.key[:], raw)
	return b, nil
}

// Encrypt seals plain text. Empty input passes through unchanged, so a
// blank key value stays blank in storage.
func (b *Box) Encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", eris.Wrap(err, "secrets: nonce")
	}
	sealed := secretbox.Seal(nonce[:], []byte(plain), &nonce, &b.key)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a sealed value produced by Encrypt.
func (b *Box) Decrypt(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", eris.Wrap(err, "secrets: decode payload")
	}
	if len(raw) < 24 {
		return "", eris.New("secrets: payload too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &b.key)
	if !ok {
		return "", eris.New("secrets: decryption failed")
	}
	return string(plain), nil
}
