package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erazemk/trznica/internal/account"
	"github.com/erazemk/trznica/internal/api"
	"github.com/erazemk/trznica/internal/auth"
	"github.com/erazemk/trznica/internal/catalog"
	"github.com/erazemk/trznica/internal/config"
	"github.com/erazemk/trznica/internal/db"
	"github.com/erazemk/trznica/internal/images"
	"github.com/erazemk/trznica/internal/imaging"
	"github.com/erazemk/trznica/internal/ledger"
	"github.com/erazemk/trznica/internal/ratelimit"
	"github.com/erazemk/trznica/internal/store"
)

const tokenCleanInterval = time.Hour

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}

			log, closeLog, err := newLogger(cfg.LogPath)
			if err != nil {
				return err
			}
			defer closeLog()

			if err := serve(cmd.Context(), cfg, log); err != nil {
				log.Error("server failed", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default :8080)")
	return cmd
}

func serve(ctx context.Context, cfg config.Options, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	log.Info("database ready", zap.String("path", cfg.DBPath))

	secret := cfg.JWTSecret
	if secret == "" {
		if secret, err = store.GetJWTSecret(ctx, database); err != nil {
			return fmt.Errorf("loading jwt secret: %w", err)
		}
	}

	itemImages, err := images.NewFileStore(cfg.ImageDir, imaging.ItemMaxDimension)
	if err != nil {
		return err
	}
	avatars, err := images.NewFileStore(cfg.ImageDir, imaging.AvatarMaxDimension)
	if err != nil {
		return err
	}

	cat := catalog.New(database, itemImages, log)
	deps := api.Deps{
		Catalog:  cat,
		Ledger:   ledger.New(database, cat, log),
		Accounts: account.New(database, auth.NewIssuer(secret, cfg.TokenTTL), avatars, log),
		Log:      log,
		Limiter:  newLimiter(ctx, cfg, log),
		ImageDir: cfg.ImageDir,
	}

	store.StartTokenCleaner(ctx, database, tokenCleanInterval, log)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", cfg.Addr))
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}

	log.Info("server stopped, closing database")
	return nil
}

// newLimiter uses Redis when configured and reachable, otherwise counts in
// process memory.
func newLimiter(ctx context.Context, cfg config.Options, log *zap.Logger) ratelimit.Limiter {
	if cfg.RateLimit == 0 {
		log.Info("rate limiting disabled")
		return nil
	}
	if cfg.RedisAddr != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			log.Info("rate limiting with redis", zap.String("addr", cfg.RedisAddr))
			return ratelimit.NewRedisLimiter(client, cfg.RateLimit, cfg.RateWindow)
		}
		log.Warn("redis unavailable, rate limiting in memory", zap.Error(err))
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimit, cfg.RateWindow)
}
