package backend

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileTokenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "token.toml")
	store := NewFileTokenStore(path)

	if _, ok := store.Load(); ok {
		t.Fatal("Load() before Save should report no token")
	}

	if err := store.Save("abc123"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	token, ok := store.Load()
	if !ok || token != "abc123" {
		t.Errorf("Load() = %q, %v; want abc123, true", token, ok)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	// a new store over the same file sees the token
	if token, ok := NewFileTokenStore(path).Load(); !ok || token != "abc123" {
		t.Errorf("reopened Load() = %q, %v", token, ok)
	}
}

func TestFileTokenStoreAnonymous(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token.toml"))

	if err := store.Save(AnonymousToken); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if token, ok := store.Load(); !ok || token != AnonymousToken {
		t.Errorf("Load() = %q, %v; want the anonymous sentinel", token, ok)
	}
}

func TestFileTokenStoreExpiry(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token.toml"))
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	if err := store.Save("abc"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	now = now.Add(TokenLifetime - time.Hour)
	if _, ok := store.Load(); !ok {
		t.Error("token should still be valid just before expiry")
	}

	now = now.Add(2 * time.Hour)
	if _, ok := store.Load(); ok {
		t.Error("token should have expired")
	}
}

func TestFileTokenStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.toml")
	if err := os.WriteFile(path, []byte("not = [toml"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, ok := NewFileTokenStore(path).Load(); ok {
		t.Error("corrupt file should load as no token")
	}
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()
	if _, ok := store.Load(); ok {
		t.Fatal("new store should be empty")
	}
	if err := store.Save("t"); err != nil {
		t.Fatal(err)
	}
	if token, ok := store.Load(); !ok || token != "t" {
		t.Errorf("Load() = %q, %v", token, ok)
	}
}
