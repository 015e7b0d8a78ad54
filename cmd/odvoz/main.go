package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/odvoz/internal/api"
	"github.com/erazemk/odvoz/internal/config"
	"github.com/erazemk/odvoz/internal/db"
	"github.com/erazemk/odvoz/internal/notify"
	"github.com/erazemk/odvoz/internal/store"
)

// tokenPurgeInterval is how often expired revocations are dropped.
const tokenPurgeInterval = time.Hour

func main() {
	fs := flag.NewFlagSet("odvoz", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var adminEmail string
	fs.StringVar(&adminEmail, "admin", "", "")
	fs.StringVar(&adminEmail, "u", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: odvoz [flags]

Flags:
  -c, -config <path>      YAML configuration file (default: built-in defaults)
  -d, -db <path>          SQLite database path (default: odvoz.db)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -admin <email>      admin account seeded on first run (default: admin@odvoz.local)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Flags override values from the configuration file.
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if adminEmail != "" {
		cfg.Auth.AdminEmail = adminEmail
	}
	if logPath != "" {
		cfg.Server.LogFile = logPath
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	closeLog, err := setupLogger(cfg.Server.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Idempotent; also rewrites legacy status names.
	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", cfg.Database.Path)

	ctx := context.Background()

	password, err := seedAdmin(ctx, database, cfg.Auth.AdminEmail)
	if err != nil {
		return fmt.Errorf("seeding admin: %w", err)
	}
	if password != "" {
		printSeedResult(cfg.Auth.AdminEmail, password)
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	var sink notify.Sink = &notify.SQLSink{DB: database}
	if uri := cfg.Notifications.MongoURI; uri != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		mongoSink, disconnect, err := notify.ConnectMongo(connectCtx, uri, cfg.Notifications.MongoDatabase)
		cancel()
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := disconnect(dctx); err != nil {
				slog.Error("failed to disconnect from mongodb", "error", err)
			}
		}()
		sink = mongoSink
		slog.Info("notifications stored in mongodb", "database", cfg.Notifications.MongoDatabase)
	}

	queue := notify.NewQueue(sink, cfg.Notifications.QueueSize)

	if cfg.Auth.TrustIdentityHeaders {
		slog.Warn("trusting x-user-id and x-user-role headers from unauthenticated callers")
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(database, jwtSecret, api.Options{
		Sink:                 sink,
		Notifier:             queue,
		TrustIdentityHeaders: cfg.Auth.TrustIdentityHeaders,
		MaxUploadBytes:       cfg.Uploads.MaxBytes,
	}))

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stopPurge := make(chan struct{})
	go purgeRevokedTokens(database, stopPurge)

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
		close(stopPurge)
		if err := queue.Close(ctx); err != nil {
			slog.Error("notification queue not drained", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	<-stopped

	slog.Info("server stopped, closing database")
	return nil
}

// purgeRevokedTokens periodically drops revocations for tokens that have
// expired anyway, until stop is closed.
func purgeRevokedTokens(database store.DBTX, stop <-chan struct{}) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n, err := store.PurgeExpiredTokens(context.Background(), database, time.Now())
			if err != nil {
				slog.Error("failed to purge revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged revoked tokens", "count", n)
			}
		}
	}
}
