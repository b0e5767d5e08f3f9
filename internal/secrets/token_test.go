package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestKeeper(t *testing.T) *Keeper {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(KeyEnvVar, "")
	return NewKeeper(filepath.Join(dir, "token.txt"), filepath.Join(dir, "token.key"))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	k := newTestKeeper(t)

	if err := k.Save("123456:ABC-secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := k.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "123456:ABC-secret" {
		t.Fatalf("token = %q", got)
	}

	// Ciphertext must not contain the plaintext.
	raw, err := os.ReadFile(k.TokenFile)
	if err != nil {
		t.Fatalf("read token file: %v", err)
	}
	if strings.Contains(string(raw), "ABC-secret") {
		t.Fatalf("token stored in plaintext")
	}
}

func TestFilePermissions(t *testing.T) {
	k := newTestKeeper(t)
	if err := k.Save("tok"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, p := range []string{k.TokenFile, k.KeyFile} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Fatalf("%s perm = %v, want 0600", p, perm)
		}
	}
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	k := newTestKeeper(t)
	got, err := k.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "" {
		t.Fatalf("token = %q, want empty", got)
	}
}

func TestEnvKeyTakesPrecedence(t *testing.T) {
	k := newTestKeeper(t)
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("rand: %v", err)
	}
	t.Setenv(KeyEnvVar, base64.URLEncoding.EncodeToString(raw))

	if err := k.Save("tok"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(k.KeyFile); !os.IsNotExist(err) {
		t.Fatalf("key file must not be created when %s is set", KeyEnvVar)
	}
	got, err := k.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != "tok" {
		t.Fatalf("token = %q", got)
	}
}

func TestWrongKeyFails(t *testing.T) {
	k := newTestKeeper(t)
	if err := k.Save("tok"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Replace the key and expect decryption to fail loudly.
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		t.Fatalf("rand: %v", err)
	}
	if err := os.WriteFile(k.KeyFile, []byte(base64.URLEncoding.EncodeToString(raw)+"\n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if _, err := k.Load(); err == nil {
		t.Fatalf("expected decryption failure with wrong key")
	}
}

func TestBadEnvKeyRejected(t *testing.T) {
	k := newTestKeeper(t)
	t.Setenv(KeyEnvVar, "not-base64!!")
	if err := k.Save("tok"); err == nil {
		t.Fatalf("expected error for malformed key")
	}
}
