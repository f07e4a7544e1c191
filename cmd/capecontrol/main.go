// @title						Cape Control API
// @version					1.0
// @description				Catalog of simulated AI agents with token-authenticated invocation.
// @BasePath					/api
// @securityDefinitions.apikey	TokenAuth
// @in							header
// @name						Authorization
// @description				Enter "Token <key>".

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/capecontrol/backend/internal/config"
	"github.com/capecontrol/backend/internal/database"
	"github.com/capecontrol/backend/internal/handler"
	"github.com/capecontrol/backend/internal/logger"
)

func main() {
	// Variables from the env file must be present before flags read their EnvVars.
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = config.DefaultEnvFile
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", envFile, err)
		os.Exit(1)
	}

	app := &cli.App{
		Name:  "capecontrol",
		Usage: "Agent catalog API with simulated invocations",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:     "database-url",
				Aliases:  []string{"d"},
				Value:    config.DefaultDatabaseURL,
				Usage:    "PostgreSQL database URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
			&cli.IntFlag{
				Name:    "max-conns",
				Value:   config.DefaultMaxConns,
				Usage:   "Maximum open database connections",
				EnvVars: []string{"DATABASE_MAX_CONNS"},
			},
			&cli.IntFlag{
				Name:    "min-conns",
				Value:   config.DefaultMinConns,
				Usage:   "Minimum idle database connections",
				EnvVars: []string{"DATABASE_MIN_CONNS"},
			},
		}, serveFlags()...),
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the web server",
				Flags:  serveFlags(),
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: runMigrate,
			},
			agentsCommand(),
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Value:   config.DefaultPort,
			Usage:   "HTTP server port",
			EnvVars: []string{"PORT"},
		},
		&cli.StringFlag{
			Name:    "cors-allowed-origins",
			Usage:   "Comma-separated origins allowed to call the API",
			EnvVars: []string{"CORS_ALLOWED_ORIGINS"},
		},
	}
}

// loadConfig gathers flag values into a Config.
func loadConfig(c *cli.Context) config.Config {
	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}

	return config.Config{
		HTTP: config.HTTP{Port: port},
		Database: config.Database{
			URL:      c.String("database-url"),
			MaxConns: int32(c.Int("max-conns")),
			MinConns: int32(c.Int("min-conns")),
		},
		CORS: config.CORS{
			AllowedOrigins:   config.SplitList(c.String("cors-allowed-origins")),
			AllowCredentials: true,
		},
	}
}

// openDatabase connects and brings the schema up to date, returning the schema version.
func openDatabase(ctx context.Context, cfg config.Database) (*database.DB, int64, error) {
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to connect to database: %w", err)
	}

	version, err := database.RunMigrations(ctx, db.Pool())
	if err != nil {
		db.Close()
		return nil, 0, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, version, nil
}

func runServe(c *cli.Context) error {
	ctx := c.Context
	cfg := loadConfig(c)

	db, _, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	h := handler.New(db.Pool())

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           h.Router(cfg.CORS),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server",
			"server_addr", "http://localhost:"+cfg.HTTP.Port,
			"cors_origins", cfg.CORS.AllowedOrigins,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runMigrate(c *cli.Context) error {
	ctx := c.Context
	cfg := loadConfig(c)

	db, version, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	db.Close()

	fmt.Fprintf(c.App.Writer, "schema at version %d\n", version)
	return nil
}
