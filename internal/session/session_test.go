package session

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestSession_SetNotifiesOnChangeOnly(t *testing.T) {
	s := New("", "")
	assert.False(t, s.Authenticated())

	var got []string
	cancel := s.OnChange(func(tok string) { got = append(got, tok) })

	s.Set("abc", "a@example.com")
	s.Set("abc", "a@example.com")
	s.Clear()
	cancel()
	s.Set("later", "")

	assert.Equal(t, []string{"abc", ""}, got)
	assert.Equal(t, "later", s.Token())
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	f := NewFileStore(path)

	c, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, c.AccessToken, "missing file loads as signed out")

	require.NoError(t, f.Save(Credentials{AccessToken: "tok", Email: "a@example.com"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	c, err = NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", c.AccessToken)
	assert.Equal(t, "a@example.com", c.Email)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileStore_Remove(t *testing.T) {
	f := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, f.Remove(), "removing a missing file is fine")
	require.NoError(t, f.Save(Credentials{AccessToken: "tok"}))
	require.NoError(t, f.Remove())
	_, err := os.Stat(f.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestRestorePersist(t *testing.T) {
	f := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	s := New("tok", "a@example.com")
	require.NoError(t, Persist(f, s))

	restored, err := Restore(f)
	require.NoError(t, err)
	assert.Equal(t, "tok", restored.Token())
	assert.Equal(t, "a@example.com", restored.Email())

	s.Clear()
	require.NoError(t, Persist(f, s))
	restored, err = Restore(f)
	require.NoError(t, err)
	assert.False(t, restored.Authenticated())
}

func TestWatch_ReloadsExternalChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ours := NewFileStore(path)
	s, err := Restore(ours)
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var changes []string
	s.OnChange(func(tok string) {
		mu.Lock()
		changes = append(changes, tok)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		_ = Watch(ctx, ours, s, logger)
		close(done)
	}()
	time.Sleep(100 * time.Millisecond)

	// Another process logs in.
	require.NoError(t, NewFileStore(path).Save(Credentials{AccessToken: "external"}))
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		return s.Token() == "external"
	}, "external login not picked up")

	// Another process logs out.
	require.NoError(t, NewFileStore(path).Remove())
	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool {
		return s.Token() == ""
	}, "external logout not picked up")

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"external", ""}, changes)
}

func TestWatch_IgnoresOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	f := NewFileStore(path)
	s := New("", "")

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = Watch(ctx, f, s, logger) }()
	time.Sleep(100 * time.Millisecond)

	// Written through the watched store: the session is not touched.
	require.NoError(t, f.Save(Credentials{AccessToken: "mine"}))
	time.Sleep(2 * reloadDebounce)
	assert.Equal(t, "", s.Token())
}
