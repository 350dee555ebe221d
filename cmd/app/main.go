package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	"github.com/starford/quire/internal/models"
	pkgconfig "github.com/starford/quire/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// loadClientConfig tolerates a missing file so the client works out of the box.
func loadClientConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if u := cmd.String("base-url"); u != "" {
		cfg.Client.BaseURL = u
	}
	return cfg, nil
}

func clientOptions(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadClientConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx,
		internal.WithConfig(cfg),
		internal.WithLogOutput(os.Stderr),
		internal.WithAccount(cmd.String("email")))
}

func signup(ctx context.Context, cmd *cli.Command) error {
	opts, err := clientOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Signup(ctx, cmd.String("email"), cmd.String("password"), opts...)
}

func login(ctx context.Context, cmd *cli.Command) error {
	opts, err := clientOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Login(ctx, cmd.String("email"), cmd.String("password"), opts...)
}

func logout(ctx context.Context, cmd *cli.Command) error {
	opts, err := clientOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Logout(ctx, opts...)
}

func whoami(ctx context.Context, cmd *cli.Command) error {
	opts, err := clientOptions(cmd)
	if err != nil {
		return err
	}
	return internal.Whoami(ctx, opts...)
}

func list(ctx context.Context, cmd *cli.Command) error {
	sort, err := models.ParseSortOption(cmd.String("sort"))
	if err != nil {
		return err
	}
	opts, err := clientOptions(cmd)
	if err != nil {
		return err
	}
	return internal.List(ctx, cmd.String("search"), sort, opts...)
}

func runTUI(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadClientConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunTUI(ctx, internal.WithConfig(cfg))
}

func credentialFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "email",
			Aliases:  []string{"e"},
			Usage:    "Account email",
			Required: true,
			Sources:  cli.EnvVars("QUIRE_EMAIL"),
		},
		&cli.StringFlag{
			Name:     "password",
			Aliases:  []string{"p"},
			Usage:    "Account password",
			Required: true,
			Sources:  cli.EnvVars("QUIRE_PASSWORD"),
		},
	}
}

func main() {
	cmd := &cli.Command{
		Name:  "quire",
		Usage: "Personal notes: API server, MCP bridge and terminal client with auto-save",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Notes API root for client commands (overrides client.base_url)",
				Sources: cli.EnvVars("QUIRE_BASE_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the notes API server",
				Action: serve,
			},
			{
				Name:  "mcp",
				Usage: "Serve one account's notes over MCP stdio",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Account whose notes are exposed",
						Required: true,
						Sources:  cli.EnvVars("QUIRE_EMAIL"),
					},
				},
				Action: mcp,
			},
			{
				Name:   "signup",
				Usage:  "Create an account and log in",
				Flags:  credentialFlags(),
				Action: signup,
			},
			{
				Name:   "login",
				Usage:  "Log in and store the access token",
				Flags:  credentialFlags(),
				Action: login,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored access token",
				Action: logout,
			},
			{
				Name:   "whoami",
				Usage:  "Show the logged in account",
				Action: whoami,
			},
			{
				Name:  "list",
				Usage: "Print notes",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Case-insensitive text to look for in titles and content",
					},
					&cli.StringFlag{
						Name:  "sort",
						Usage: "newest, oldest or title",
						Value: string(models.SortNewest),
					},
				},
				Action: list,
			},
			{
				Name:   "tui",
				Usage:  "Open the terminal editor",
				Action: runTUI,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
