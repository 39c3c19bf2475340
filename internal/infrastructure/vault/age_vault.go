// Package vault encrypts mailbox credentials at rest using age with
// X25519 keys.
package vault

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	appmailbox "github.com/ledgerdocs/backend/internal/application/mailbox"
)

// Ensure AgeVault implements the vault port
var _ appmailbox.Vault = (*AgeVault)(nil)

// AgeVault encrypts secrets with a single X25519 identity. The identity
// string comes from configuration; without it the vault cannot start and
// connector management stays unavailable rather than storing plaintext.
type AgeVault struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewAgeVault creates a vault from an age X25519 identity string
// ("AGE-SECRET-KEY-1...")
func NewAgeVault(identityStr string) (*AgeVault, error) {
	identityStr = strings.TrimSpace(identityStr)
	if identityStr == "" {
		return nil, fmt.Errorf("vault identity is required")
	}
	identity, err := age.ParseX25519Identity(identityStr)
	if err != nil {
		return nil, fmt.Errorf("parsing vault identity: %w", err)
	}
	return &AgeVault{
		identity:  identity,
		recipient: identity.Recipient(),
	}, nil
}

// GenerateIdentity creates a fresh X25519 identity string for initial setup
func GenerateIdentity() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating vault identity: %w", err)
	}
	return identity.String(), nil
}

// Encrypt returns the base64-encoded age ciphertext of the plaintext
func (v *AgeVault) Encrypt(plaintext string) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, v.recipient)
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("encrypting secret: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decrypt reverses Encrypt
func (v *AgeVault) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decoding ciphertext: %w", err)
	}
	r, err := age.Decrypt(bytes.NewReader(raw), v.identity)
	if err != nil {
		return "", fmt.Errorf("decrypting secret: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading decrypted secret: %w", err)
	}
	return string(plaintext), nil
}
