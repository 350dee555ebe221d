package internal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/store"
)

// RunMCP serves the notes of one account over MCP stdio. Logs must go
// somewhere other than stdout (see WithLogOutput).
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	if app.email == "" {
		return fmt.Errorf("account email is required")
	}
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	user, err := db.UserByEmail(ctx, app.email)
	if err != nil {
		return fmt.Errorf("lookup account %s: %w", app.email, err)
	}

	logger.Info("MCP server starting", slog.String("account", user.Email))
	srv := mcpserver.New(noteservice.NewService(db, nil), user.ID)
	return srv.ServeStdio()
}
