package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// TokenLifetime is how long a stored commenter token stays valid,
// mirroring the one-year cookie of the browser embed.
const TokenLifetime = 365 * 24 * time.Hour

// TokenStore keeps the commenter token between runs.
// Load reports ok=false when no token was ever stored or it has expired;
// an explicitly anonymous viewer loads as AnonymousToken with ok=true.
type TokenStore interface {
	Load() (token string, ok bool)
	Save(token string) error
}

type tokenRecord struct {
	Token   string    `toml:"commenter_token"`
	Expires time.Time `toml:"expires"`
}

// FileTokenStore persists the token in a small TOML file
type FileTokenStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileTokenStore creates a store backed by path. The file is created on
// the first Save.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path, now: time.Now}
}

func (s *FileTokenStore) Load() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec tokenRecord
	if _, err := toml.DecodeFile(s.path, &rec); err != nil {
		return "", false
	}
	if rec.Token == "" || !s.now().Before(rec.Expires) {
		return "", false
	}
	return rec.Token, true
}

func (s *FileTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening token file: %w", err)
	}
	defer f.Close()

	rec := tokenRecord{Token: token, Expires: s.now().Add(TokenLifetime).UTC()}
	if err := toml.NewEncoder(f).Encode(rec); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps the token in memory only
type MemoryTokenStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

func NewMemoryTokenStore() *MemoryTokenStore { return &MemoryTokenStore{} }

func (s *MemoryTokenStore) Load() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.set
}

func (s *MemoryTokenStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.set = token, true
	return nil
}
