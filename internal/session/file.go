package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Credentials is the on-disk form of a session.
type Credentials struct {
	AccessToken string    `json:"access_token"`
	Email       string    `json:"email,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// FileStore persists Credentials to a single file readable only by the owner.
type FileStore struct {
	path string

	mu       sync.Mutex
	lastSeen string // checksum of the last content read or written
}

// NewFileStore returns a store for path. The file need not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the credential file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the stored credentials. A missing file yields zero Credentials
// and no error.
func (f *FileStore) Load() (Credentials, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.remember(nil)
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("session: read %s: %w", f.path, err)
	}
	f.remember(data)

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("session: decode %s: %w", f.path, err)
	}
	return c, nil
}

// Save atomically writes c: tmp file → fsync → rename.
func (f *FileStore) Save(c Credentials) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".quire-session-*")
	if err != nil {
		return fmt.Errorf("session: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return fmt.Errorf("session: chmod temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("session: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("session: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("session: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("session: rename: %w", err)
	}
	success = true
	f.remember(data)
	return nil
}

// Remove deletes the credential file. Removing a missing file is not an error.
func (f *FileStore) Remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session: remove %s: %w", f.path, err)
	}
	f.remember(nil)
	return nil
}

// changed reports whether the file content differs from what this store last
// read or wrote, and records the new content as seen.
func (f *FileStore) changed() bool {
	data, err := os.ReadFile(f.path)
	if err != nil {
		data = nil
	}
	sum := sumOf(data)

	f.mu.Lock()
	defer f.mu.Unlock()
	if sum == f.lastSeen {
		return false
	}
	f.lastSeen = sum
	return true
}

func (f *FileStore) remember(data []byte) {
	sum := sumOf(data)
	f.mu.Lock()
	f.lastSeen = sum
	f.mu.Unlock()
}

func sumOf(data []byte) string {
	if data == nil {
		return ""
	}
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Restore loads the stored credentials into a new Session.
func Restore(f *FileStore) (*Session, error) {
	c, err := f.Load()
	if err != nil {
		return New("", ""), err
	}
	return New(c.AccessToken, c.Email), nil
}

// Persist saves the session's current credential, or removes the file when
// the session is signed out.
func Persist(f *FileStore, s *Session) error {
	if !s.Authenticated() {
		return f.Remove()
	}
	return f.Save(Credentials{AccessToken: s.Token(), Email: s.Email(), SavedAt: time.Now().UTC()})
}
