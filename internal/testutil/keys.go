package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/thimbleforth/ditto-fde-takehome/internal/auth"
)

var (
	keyOnce sync.Once
	keyPriv []byte
	keyPub  []byte
	keyErr  error
)

// RSAKeyPair returns a PEM key pair generated once per test binary.
func RSAKeyPair(t testing.TB) (privatePEM, publicPEM []byte) {
	t.Helper()
	keyOnce.Do(func() {
		keyPriv, keyPub, keyErr = auth.GenerateKeyPair(auth.DefaultKeyBits)
	})
	if keyErr != nil {
		t.Fatalf("generate key pair: %v", keyErr)
	}
	return keyPriv, keyPub
}

// WriteRSAKeyPair writes the shared key pair into a temp dir and returns
// the file paths.
func WriteRSAKeyPair(t testing.TB) (privatePath, publicPath string) {
	t.Helper()
	priv, pub := RSAKeyPair(t)
	dir := t.TempDir()
	privatePath = filepath.Join(dir, "private.pem")
	publicPath = filepath.Join(dir, "public.pem")
	if err := os.WriteFile(privatePath, priv, 0o600); err != nil {
		t.Fatalf("write private key: %v", err)
	}
	if err := os.WriteFile(publicPath, pub, 0o644); err != nil {
		t.Fatalf("write public key: %v", err)
	}
	return privatePath, publicPath
}
