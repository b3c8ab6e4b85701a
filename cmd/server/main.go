package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/harrylevesque/commandapi/internal/api"
	"github.com/harrylevesque/commandapi/internal/auth"
	"github.com/harrylevesque/commandapi/internal/certs"
	"github.com/harrylevesque/commandapi/internal/storage"
	"github.com/harrylevesque/commandapi/internal/storage/memstore"
	"github.com/harrylevesque/commandapi/internal/storage/sqlstore"
	"github.com/harrylevesque/commandapi/internal/tracing"
	"github.com/harrylevesque/commandapi/internal/utils"
)

const certExpiryWarning = 14 * 24 * time.Hour

func main() {
	configPath := flag.String("config", os.Getenv("COMMANDAPI_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := utils.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger, closer, err := utils.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("server exited")
		closer.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg utils.Config, logger zerolog.Logger) error {
	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	authz, err := auth.FromConfig(ctx, cfg.Auth, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		return fmt.Errorf("configure auth: %w", err)
	}
	if _, open := authz.(auth.AllowAll); open {
		logger.Warn().Msg("no credentials configured, protected endpoints accept anonymous requests")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(api.Deps{Store: store, Authorizer: authz, Logger: logger}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	tlsCerts := certs.NewManager(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
	if tlsCerts.Enabled() {
		tlsConfig, leaf, err := tlsCerts.TLSConfig()
		if err != nil {
			return err
		}
		if tlsCerts.ExpiresWithin(leaf, certExpiryWarning) {
			logger.Warn().Time("not_after", leaf.NotAfter).Msg("tls certificate expires soon")
		}
		srv.TLSConfig = tlsConfig
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("driver", cfg.Database.Driver).
			Bool("tls", srv.TLSConfig != nil).
			Msg("server listening")
		if srv.TLSConfig != nil {
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore selects the backend named by cfg.Driver. For the memory driver
// a connection string is treated as a snapshot file path.
func openStore(ctx context.Context, cfg utils.DatabaseConfig, logger zerolog.Logger) (storage.CommandStore, error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Driver), "memory") {
		if cfg.ConnectionString == "" {
			return memstore.New(), nil
		}
		return memstore.Open(cfg.ConnectionString)
	}

	s, err := sqlstore.Open(ctx, sqlstore.Options{
		Driver:   cfg.Driver,
		DSN:      cfg.ConnectionString,
		Username: cfg.UserID,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		applied, err := s.Migrate(ctx)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		for _, name := range applied {
			logger.Info().Str("migration", name).Msg("applied migration")
		}
	}
	return s, nil
}
