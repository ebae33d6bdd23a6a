package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/julienbonastre/betterbasket/internal/calculator"
	"github.com/julienbonastre/betterbasket/internal/config"
	"github.com/julienbonastre/betterbasket/internal/database"
	"github.com/julienbonastre/betterbasket/internal/handlers"
	"github.com/julienbonastre/betterbasket/internal/ingest"
	"github.com/julienbonastre/betterbasket/internal/pricesheet"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

//go:embed web/*
var webFS embed.FS

var version = "dev"

func main() {
	// Flags read their EnvVars during parsing, so .env must be loaded first
	if err := config.LoadEnvFile(os.Getenv("BASKET_ENV")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	app := &cli.App{
		Name:    "betterbasket",
		Usage:   "Interactive holiday meal cost map",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Value:   config.EnvDevelopment,
				Usage:   "Environment (development, production)",
				EnvVars: []string{"BASKET_ENV"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"BASKET_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "sheet",
				Aliases: []string{"s"},
				Value:   "data/prices.csv",
				Usage:   "Price sheet path or http(s) URL",
				EnvVars: []string{"BASKET_SHEET"},
			},
			&cli.StringFlag{
				Name:    "sheet-format",
				Usage:   "Price sheet format (csv, xlsx); detected when empty",
				EnvVars: []string{"BASKET_SHEET_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "client-id",
				Usage:   "OAuth2 client ID for a protected sheet URL",
				EnvVars: []string{"BASKET_CLIENT_ID"},
			},
			&cli.StringFlag{
				Name:    "client-secret",
				Usage:   "OAuth2 client secret",
				EnvVars: []string{"BASKET_CLIENT_SECRET"},
			},
			&cli.StringFlag{
				Name:    "token-url",
				Usage:   "OAuth2 token endpoint",
				EnvVars: []string{"BASKET_TOKEN_URL"},
			},
			&cli.StringSliceFlag{
				Name:    "scope",
				Usage:   "OAuth2 scope (repeatable)",
				EnvVars: []string{"BASKET_SCOPES"},
			},
			&cli.DurationFlag{
				Name:    "fetch-timeout",
				Value:   30 * time.Second,
				Usage:   "Timeout for fetching a remote sheet",
				EnvVars: []string{"BASKET_FETCH_TIMEOUT"},
			},
		},
		Before: func(c *cli.Context) error {
			config.SetupLogging(c.String("env"), c.String("log-level"), os.Stderr)
			return nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			summaryCommand(),
			exportCommand(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the dashboard and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Usage:   "Listen address",
				EnvVars: []string{"BASKET_ADDR"},
			},
			&cli.StringFlag{
				Name:    "db",
				Value:   "betterbasket.db",
				Usage:   "SQLite database path",
				EnvVars: []string{"BASKET_DB_PATH"},
			},
			&cli.StringFlag{
				Name:    "session-key",
				Usage:   "Hex encoded 32 or 64 byte cookie signing key",
				EnvVars: []string{"BASKET_SESSION_KEY"},
			},
			&cli.DurationFlag{
				Name:    "session-max-age",
				Value:   time.Duration(database.DefaultSessionMaxAge) * time.Second,
				Usage:   "Session lifetime",
				EnvVars: []string{"BASKET_SESSION_MAX_AGE"},
			},
			&cli.DurationFlag{
				Name:    "cleanup-interval",
				Value:   time.Hour,
				Usage:   "How often expired sessions are purged (0 disables)",
				EnvVars: []string{"BASKET_CLEANUP_INTERVAL"},
			},
			&cli.BoolFlag{
				Name:    "secure-cookies",
				Usage:   "Only send the session cookie over HTTPS",
				EnvVars: []string{"BASKET_SECURE_COOKIES"},
			},
		},
		Action: serve,
	}
}

func configFromContext(c *cli.Context) config.Config {
	return config.Config{
		Env:             c.String("env"),
		LogLevel:        c.String("log-level"),
		Addr:            c.String("addr"),
		Sheet:           c.String("sheet"),
		Format:          c.String("sheet-format"),
		DBPath:          c.String("db"),
		SessionKey:      c.String("session-key"),
		SessionMaxAge:   c.Duration("session-max-age"),
		CleanupInterval: c.Duration("cleanup-interval"),
		SecureCookies:   c.Bool("secure-cookies"),
		ClientID:        c.String("client-id"),
		ClientSecret:    c.String("client-secret"),
		TokenURL:        c.String("token-url"),
		Scopes:          c.StringSlice("scope"),
		FetchTimeout:    c.Duration("fetch-timeout"),
	}
}

// loadTable reads the price sheet named by the config. db may be nil.
func loadTable(ctx context.Context, cfg config.Config, db *database.DB) (*calculator.PriceTable, error) {
	var format pricesheet.Format
	if cfg.Format != "" {
		f, err := pricesheet.ParseFormat(cfg.Format)
		if err != nil {
			return nil, err
		}
		format = f
	}

	client := pricesheet.NewClient(pricesheet.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
		Timeout:      cfg.FetchTimeout,
	})
	return ingest.NewService(db, client).Load(ctx, cfg.Sheet, format)
}

func serve(c *cli.Context) error {
	cfg := configFromContext(c)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	table, err := loadTable(ctx, cfg, db)
	if err != nil {
		return fmt.Errorf("failed to load price sheet: %w", err)
	}

	key, err := cfg.SessionKeyPair()
	if err != nil {
		return err
	}
	store := database.NewSessionStore(db, key)
	store.Options().MaxAge = int(cfg.SessionMaxAge / time.Second)
	store.Options().Secure = cfg.SecureCookies

	if cfg.CleanupInterval > 0 {
		go store.RunCleanup(ctx, cfg.CleanupInterval)
	}

	h := handlers.NewHandler(table, db, store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/api", h.Routes())

	webContent, err := fs.Sub(webFS, "web")
	if err != nil {
		return err
	}
	r.Handle("/*", http.FileServer(http.FS(webContent)))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	log.Info().
		Str("addr", cfg.Addr).
		Str("version", version).
		Int("regions", len(table.Regions)).
		Str("items", strings.Join(table.Catalog().Regular, ", ")).
		Msg("Starting BetterBasket")

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs each request through zerolog
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Msg("Request")
	})
}
