// Package secrets keeps the bot token encrypted at rest. The token file
// holds a base64 secretbox ciphertext (XSalsa20-Poly1305, authenticated)
// under a 32-byte key supplied via the BOT_TOKEN_KEY environment variable
// or generated once into a local key file. Both files are written with
// 0600 permissions.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeyEnvVar names the environment variable that can carry the encryption
// key as urlsafe base64 of 32 bytes, which takes precedence over the key
// file.
const KeyEnvVar = "BOT_TOKEN_KEY"

// Keeper loads and stores the encrypted bot token.
type Keeper struct {
	TokenFile string
	KeyFile   string
}

// NewKeeper builds a Keeper over the given file paths.
func NewKeeper(tokenFile, keyFile string) *Keeper {
	return &Keeper{TokenFile: tokenFile, KeyFile: keyFile}
}

// key returns the 32-byte encryption key, generating and persisting one
// when neither the environment variable nor the key file provides it.
func (k *Keeper) key() ([32]byte, error) {
	var key [32]byte

	if env := strings.TrimSpace(os.Getenv(KeyEnvVar)); env != "" {
		raw, err := base64.URLEncoding.DecodeString(env)
		if err != nil || len(raw) != 32 {
			return key, fmt.Errorf("%s must be urlsafe base64 of exactly 32 bytes", KeyEnvVar)
		}
		copy(key[:], raw)
		return key, nil
	}

	if raw, err := os.ReadFile(k.KeyFile); err == nil {
		decoded, err := base64.URLEncoding.DecodeString(strings.TrimSpace(string(raw)))
		if err != nil || len(decoded) != 32 {
			return key, fmt.Errorf("invalid key file %s", k.KeyFile)
		}
		copy(key[:], decoded)
		return key, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return key, err
	}

	if _, err := rand.Read(key[:]); err != nil {
		return key, err
	}
	encoded := base64.URLEncoding.EncodeToString(key[:])
	if err := os.WriteFile(k.KeyFile, []byte(encoded+"\n"), 0o600); err != nil {
		return key, err
	}
	return key, nil
}

// Save encrypts token and writes it to the token file.
func (k *Keeper) Save(token string) error {
	key, err := k.key()
	if err != nil {
		return err
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return err
	}
	sealed := secretbox.Seal(nonce[:], []byte(token), &nonce, &key)
	encoded := base64.URLEncoding.EncodeToString(sealed)
	return os.WriteFile(k.TokenFile, []byte(encoded+"\n"), 0o600)
}

// Load decrypts and returns the stored token. It returns ("", nil) when no
// token file exists yet, so first-run setup can prompt for one.
func (k *Keeper) Load() (string, error) {
	raw, err := os.ReadFile(k.TokenFile)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	sealed, err := base64.URLEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil || len(sealed) < 24 {
		return "", fmt.Errorf("corrupt token file %s", k.TokenFile)
	}

	key, err := k.key()
	if err != nil {
		return "", err
	}

	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plain, ok := secretbox.Open(nil, sealed[24:], &nonce, &key)
	if !ok {
		return "", fmt.Errorf("failed to decrypt %s; if %s or %s changed, restore the original", k.TokenFile, KeyEnvVar, k.KeyFile)
	}
	return string(plain), nil
}
