package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/editor"
	"github.com/starford/quire/internal/listview"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/notes"
	"github.com/starford/quire/internal/remote"
	"github.com/starford/quire/internal/session"
	"github.com/starford/quire/internal/tui"
	"github.com/starford/quire/internal/workspace"
)

var errNotLoggedIn = errors.New("not logged in: run `quire login` first")

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".quire-session.json"
	}
	return filepath.Join(dir, "quire", "session.json")
}

// clientEnv is what every client command needs: the stored credentials and a
// remote client that sends them.
type clientEnv struct {
	cfg     *Config
	logger  *slog.Logger
	file    *session.FileStore
	session *session.Session
	remote  *remote.Client
}

func newClientEnv(app *application, logger *slog.Logger) (*clientEnv, error) {
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	file := session.NewFileStore(cfg.Client.SessionFile)
	s, err := session.Restore(file)
	if err != nil {
		logger.Warn("Ignoring unreadable session file",
			slog.String("path", file.Path()),
			slog.String("error", err.Error()))
	}

	rc := remote.New(cfg.Client.BaseURL, s,
		remote.WithTimeout(cfg.Client.RequestTimeout),
		remote.WithLogger(logger))

	return &clientEnv{cfg: cfg, logger: logger, file: file, session: s, remote: rc}, nil
}

func (e *clientEnv) remember(tok remote.TokenResponse, email string) error {
	e.session.Set(tok.AccessToken, email)
	if err := session.Persist(e.file, e.session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// commitContext keeps the values of ctx but not its cancellation, so a save
// issued just before quitting still completes.
func commitContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func cliLogger(app *application) *slog.Logger {
	level := slog.LevelWarn
	if app.config != nil && app.config.App.LogLevel < level {
		level = app.config.App.LogLevel
	}
	return slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{Level: level}))
}

// Signup registers an account and stores its token.
func Signup(ctx context.Context, email, password string, opts ...Option) error {
	app := newApplication(opts)
	env, err := newClientEnv(app, cliLogger(app))
	if err != nil {
		return err
	}
	tok, err := env.remote.Signup(ctx, email, password)
	if err != nil {
		return fmt.Errorf("signup: %w", err)
	}
	if err := env.remember(tok, email); err != nil {
		return err
	}
	fmt.Fprintf(app.output, "Signed up as %s\n", email)
	return nil
}

// Login exchanges credentials for a token and stores it. Running clients
// pick the new token up from the session file.
func Login(ctx context.Context, email, password string, opts ...Option) error {
	app := newApplication(opts)
	env, err := newClientEnv(app, cliLogger(app))
	if err != nil {
		return err
	}
	tok, err := env.remote.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := env.remember(tok, email); err != nil {
		return err
	}
	fmt.Fprintf(app.output, "Logged in as %s\n", email)
	return nil
}

// Logout forgets the stored token.
func Logout(_ context.Context, opts ...Option) error {
	app := newApplication(opts)
	env, err := newClientEnv(app, cliLogger(app))
	if err != nil {
		return err
	}
	env.session.Clear()
	if err := session.Persist(env.file, env.session); err != nil {
		return fmt.Errorf("remove session: %w", err)
	}
	fmt.Fprintln(app.output, "Logged out")
	return nil
}

// Whoami prints the account the stored token belongs to.
func Whoami(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	env, err := newClientEnv(app, cliLogger(app))
	if err != nil {
		return err
	}
	if !env.session.Authenticated() {
		return errNotLoggedIn
	}
	acct, err := env.remote.Me(ctx)
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}
	fmt.Fprintf(app.output, "%s (%s)\n", acct.Email, acct.ID)
	return nil
}

// List prints the notes matching searchQuery in the service's order.
func List(ctx context.Context, searchQuery string, sortBy models.SortOption, opts ...Option) error {
	app := newApplication(opts)
	logger := cliLogger(app)
	env, err := newClientEnv(app, logger)
	if err != nil {
		return err
	}
	if !env.session.Authenticated() {
		return errNotLoggedIn
	}

	found, err := env.remote.List(ctx, remote.ListQuery{Search: searchQuery, Sort: sortBy})
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}
	shown := listview.Derive(found, searchQuery, sortBy)
	if len(shown) == 0 {
		fmt.Fprintln(app.output, listview.EmptyMessage(searchQuery))
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TITLE", "UPDATED", "PREVIEW")
	for _, r := range listview.Rows(shown, "", time.Now()) {
		t.Row(r.ID, r.Title, r.Updated, r.Preview)
	}
	fmt.Fprintln(app.output, t.String())
	fmt.Fprintln(app.output, listview.StatusLine(len(found), len(shown), searchQuery))
	return nil
}

// RunTUI starts the terminal UI. Logs go to the configured log file since the
// terminal belongs to the UI.
func RunTUI(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logFile, err := os.OpenFile(cfg.Client.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
	slog.SetDefault(logger)

	env, err := newClientEnv(app, logger)
	if err != nil {
		return err
	}
	if !env.session.Authenticated() {
		return errNotLoggedIn
	}

	g, gCtx := errgroup.WithContext(ctx)
	uiCtx, stop := context.WithCancel(gCtx)
	defer stop()

	mgr := notes.NewManager(env.remote, notes.WithLogger(logger))
	bridge := tui.NewBridge()
	ws := workspace.New(mgr,
		workspace.WithNotifier(bridge),
		workspace.WithChangeFunc(bridge.Changed),
		workspace.WithLogger(logger),
		workspace.WithAutosaveNotice(cfg.Client.AutosaveNotice),
		workspace.WithEditorOptions(
			editor.WithDelay(cfg.Client.AutosaveDelay),
			editor.WithContext(commitContext(uiCtx)),
		))

	logger.Info("TUI starting",
		slog.String("base_url", cfg.Client.BaseURL),
		slog.String("account", env.session.Email()))

	// Credential file watcher.
	g.Go(func() error {
		return session.Watch(uiCtx, env.file, env.session, logger)
	})

	// UI. Quitting stops the watcher.
	g.Go(func() error {
		defer stop()
		return tui.Run(uiCtx, tui.Deps{
			Notes:     mgr,
			Workspace: ws,
			Session:   env.session,
			Email:     env.session.Email(),
			Logger:    logger,
		}, bridge)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("TUI stopped")
	return nil
}
