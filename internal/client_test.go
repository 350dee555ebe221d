package internal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/session"
	"github.com/starford/quire/internal/testutil/apitest"
)

func clientConfig(t *testing.T, baseURL string) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Client.BaseURL = baseURL
	cfg.Client.SessionFile = filepath.Join(t.TempDir(), "session.json")
	return cfg
}

func TestClientCommands_Flow(t *testing.T) {
	api := apitest.New(t)
	cfg := clientConfig(t, api.BaseURL())
	ctx := context.Background()

	var out bytes.Buffer
	opts := []Option{WithConfig(cfg), WithOutput(&out), WithLogOutput(io.Discard)}

	if err := List(ctx, "", models.SortNewest, opts...); !errors.Is(err, errNotLoggedIn) {
		t.Fatalf("list before login err = %v", err)
	}

	if err := Signup(ctx, "cli@example.com", "hunter22", opts...); err != nil {
		t.Fatalf("signup: %v", err)
	}
	creds, err := session.NewFileStore(cfg.Client.SessionFile).Load()
	if err != nil || creds.AccessToken == "" {
		t.Fatalf("session file after signup = %+v, %v", creds, err)
	}

	out.Reset()
	if err := List(ctx, "", models.SortNewest, opts...); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := out.String(); !strings.Contains(got, "No notes yet") {
		t.Errorf("empty list output = %q", got)
	}

	user, err := api.Accounts.Authenticate(ctx, creds.AccessToken)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if _, err := api.Notes.CreateNote(ctx, user.ID, "Groceries", "<p>milk &amp; eggs</p>"); err != nil {
		t.Fatalf("create: %v", err)
	}

	out.Reset()
	if err := List(ctx, "milk", models.SortTitle, opts...); err != nil {
		t.Fatalf("list: %v", err)
	}
	got := out.String()
	for _, want := range []string{"Groceries", "milk & eggs", "1 note total • 1 shown"} {
		if !strings.Contains(got, want) {
			t.Errorf("list output missing %q:\n%s", want, got)
		}
	}

	out.Reset()
	if err := Whoami(ctx, opts...); err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out.String(), "cli@example.com") {
		t.Errorf("whoami output = %q", out.String())
	}

	if err := Logout(ctx, opts...); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := os.Stat(cfg.Client.SessionFile); !os.IsNotExist(err) {
		t.Errorf("session file still present: %v", err)
	}

	if err := Login(ctx, "cli@example.com", "wrong", opts...); err == nil {
		t.Fatal("login with wrong password succeeded")
	}
	if err := Login(ctx, "cli@example.com", "hunter22", opts...); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out.String(), "Logged in as cli@example.com") {
		t.Errorf("login output = %q", out.String())
	}
}

func TestClientCommands_RequireConfig(t *testing.T) {
	if err := Logout(context.Background(), WithLogOutput(io.Discard)); err == nil {
		t.Fatal("expected error without config")
	}
}

func TestDefaultSessionFile(t *testing.T) {
	if got := defaultSessionFile(); !strings.HasSuffix(got, "session.json") {
		t.Errorf("defaultSessionFile() = %q", got)
	}
}

func TestCommitContext_OutlivesUI(t *testing.T) {
	type key struct{}
	ui, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "v"))
	ctx := commitContext(ui)
	cancel()

	if ui.Err() == nil {
		t.Fatal("ui context should be cancelled")
	}
	if err := ctx.Err(); err != nil {
		t.Errorf("commit context err = %v", err)
	}
	if ctx.Value(key{}) != "v" {
		t.Error("commit context lost values")
	}
}
