// Command jk-server serves the journal backend: wrapped-key custody, public
// keys, published entries and their grants.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/and161185/journal-keeper/internal/config"
	"github.com/and161185/journal-keeper/internal/limiter"
	"github.com/and161185/journal-keeper/internal/logging"
	"github.com/and161185/journal-keeper/internal/migrate"
	"github.com/and161185/journal-keeper/internal/repository/postgres"
	"github.com/and161185/journal-keeper/internal/server/httpapi"
	"github.com/and161185/journal-keeper/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations and serves the HTTP API until signalled.
func main() {
	issue := flag.String("issue-token", "", "print a bearer token for this user id and exit (dev only)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	if err := cfg.Server.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	tokens := service.NewTokens([]byte(cfg.Server.JWTKey), cfg.Server.TokenTTL)
	if *issue != "" {
		if err := printToken(tokens, *issue); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Dev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Server.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.Server.DSN, logger); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.Server.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	db := &postgres.DB{Pool: pool}
	keyRepo := postgres.NewKeyRepo(db)
	entryRepo := postgres.NewEntryRepo(db)

	lim := limiter.NewPG(pool, cfg.Limiter.Window, cfg.Limiter.MaxHits, cfg.Limiter.BlockFor)

	keySvc := service.NewKeyService(keyRepo, entryRepo, lim, logger.Named("keys"))
	entrySvc := service.NewEntryService(entryRepo, cfg.Server.MaxGrants)

	opts := []httpapi.Option{httpapi.WithLogger(logger.Named("http"))}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, httpapi.WithCORS(cfg.Server.CORSOrigins...))
	}
	api := httpapi.New(keySvc, entrySvc, tokens, opts...)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Routes(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		if cfg.Server.TLSCert != "" {
			logger.Info("listening (TLS)", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServeTLS(cfg.Server.TLSCert, cfg.Server.TLSKey)
			return
		}
		logger.Warn("listening without TLS", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			logger.Warn("graceful shutdown timed out", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

// printToken writes a signed token for userID, standing in for the identity
// provider during local development.
func printToken(tokens *service.Tokens, userID string) error {
	id, err := uuid.FromString(userID)
	if err != nil {
		return fmt.Errorf("issue-token: %w", err)
	}
	tok, exp, err := tokens.Issue(id)
	if err != nil {
		return err
	}
	fmt.Printf("%s\n# expires %s\n", tok, exp.Format(time.RFC3339))
	return nil
}
