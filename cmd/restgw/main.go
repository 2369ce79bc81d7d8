// Package main is the gateway's entrypoint: it resolves configuration,
// dials the pool, introspects the schema, loads row-level-security
// policies, and serves the HTTP surface, following the teacher's cobra
// root-command style in cmd/smf/main.go.
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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smf/internal/applog"
	"smf/internal/authn"
	"smf/internal/catalog"
	"smf/internal/config"
	"smf/internal/dbctx"
	"smf/internal/handlers"
	"smf/internal/httpserver"
	"smf/internal/rls"
)

// shutdownGracePeriod bounds how long the server waits for in-flight
// requests to finish once a shutdown signal arrives.
const shutdownGracePeriod = 10 * time.Second

func main() {
	cfg := config.Defaults()

	rootCmd := &cobra.Command{
		Use:   "restgw",
		Short: "PostgREST-compatible REST gateway for MySQL/MariaDB",
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "run the HTTP gateway",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(&cfg)
		},
	}
	config.BindFlags(serveCmd.Flags(), &cfg)

	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cfg *config.Config) error {
	log, err := applog.New(cfg.Dev)
	if err != nil {
		return fmt.Errorf("restgw: building logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	dsn, err := config.Resolve(cfg)
	if err != nil {
		return fmt.Errorf("restgw: resolving configuration: %w", err)
	}

	pool, err := dbctx.Open(dsn, cfg.ConnectionLimit)
	if err != nil {
		return fmt.Errorf("restgw: opening connection pool: %w", err)
	}
	defer func() {
		if err := pool.Close(); err != nil {
			log.Errorw("failed closing connection pool", "err", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("restgw: connecting to database: %w", err)
	}

	cat, err := catalog.LoadCatalog(ctx, pool.DB(), cfg.Database, log)
	if err != nil {
		return fmt.Errorf("restgw: loading schema catalog: %w", err)
	}
	log.Infow("schema catalog loaded", "database", cfg.Database, "tables", len(cat.TableNames()))

	if err := rls.EnsureSchema(ctx, pool.DB()); err != nil {
		return fmt.Errorf("restgw: ensuring policy store schema: %w", err)
	}
	engine := rls.NewEngine()
	if err := engine.Load(ctx, pool.DB(), log); err != nil {
		return fmt.Errorf("restgw: loading row-level-security policies: %w", err)
	}

	verifier := authn.New(cfg.JWTSecret, cfg.JWTRequired)
	h := handlers.New(cat, pool, engine, log)
	router := httpserver.New(h, verifier, log)

	return serve(router, cfg.PortNumber, log)
}

func serve(handler http.Handler, port int, log *zap.SugaredLogger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server starting", "addr", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("restgw: server error: %w", err)
		}
		return nil
	case <-sigCtx.Done():
		log.Infow("shutdown signal received, draining in-flight requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("restgw: graceful shutdown failed: %w", err)
		}
		return nil
	}
}
