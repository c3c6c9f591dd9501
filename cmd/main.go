package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwise1/clarity/config"
	"github.com/bwise1/clarity/internal/db"
	deps "github.com/bwise1/clarity/internal/debs"
	api "github.com/bwise1/clarity/internal/http/rest"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	allowConnectionsAfterShutdown = 1 * time.Second
)

func main() {
	app := cli.App{
		Name:  "clarity",
		Usage: "community reports, disputes and moderation API",
	}
	app.Commands = []*cli.Command{
		{
			Name:  "serve",
			Usage: "run the HTTP API",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "in-memory",
					Usage:   "keep all data in process instead of Postgres",
					EnvVars: []string{"IN_MEMORY"},
				},
				&cli.BoolFlag{
					Name:  "migrate",
					Usage: "apply pending migrations before serving",
				},
			},
			Action: runServe,
		},
		{
			Name:  "migrate",
			Usage: "apply pending database migrations",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "list",
					Usage: "print the embedded migrations without applying them",
				},
			},
			Action: runMigrate,
		},
	}
	app.RunAndExitOnError()
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger.Sugar(), nil
}

func runServe(cctx *cli.Context) error {
	cfg := config.New()
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.JwtSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dependencies, err := deps.New(ctx, cfg, logger, deps.Options{InMemory: cctx.Bool("in-memory")})
	if err != nil {
		return err
	}
	defer dependencies.Close()

	if cctx.Bool("migrate") && dependencies.DB != nil {
		if err := dependencies.DB.ApplyMigrations(ctx); err != nil {
			return err
		}
	}

	a := &api.API{
		Config: cfg,
		Deps:   dependencies,
	}
	go dependencies.WebSocket.Run(ctx)

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("Server running on port %v ...", cfg.Port)
		serveErr <- a.Serve()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Infow("request to shutdown server", "grace", allowConnectionsAfterShutdown)
	time.Sleep(allowConnectionsAfterShutdown)

	logger.Info("Shutting down server...")
	return a.Shutdown(context.Background())
}

func runMigrate(cctx *cli.Context) error {
	if cctx.Bool("list") {
		versions, err := db.Migrations()
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return nil
	}

	cfg := config.New()
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, err := db.New(cfg.Dsn, logger)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	return database.ApplyMigrations(cctx.Context)
}
