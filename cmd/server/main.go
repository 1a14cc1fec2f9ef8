package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ledgerpos/backend/internal/cache"
	"ledgerpos/backend/internal/config"
	"ledgerpos/backend/internal/httpapi"
	"ledgerpos/backend/internal/service"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/store/memory"
	pgstore "ledgerpos/backend/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := validateSecurityConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "invalid security configuration: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal("run migrations", zap.Error(err))
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository ready", zap.String("backend", "postgres"))
	} else {
		repo = memory.NewSeeded(cfg.CompanyID, logger)
		logger.Info("repository ready", zap.String("backend", "memory"))
	}

	guard := cache.IdempotencyGuard(cache.NoopGuard{})
	if cfg.RedisAddr != "" {
		redisGuard := cache.NewRedisGuard(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.IdempotencyTTL)
		if err := redisGuard.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, idempotency relies on store uniqueness", zap.Error(err))
			_ = redisGuard.Close()
		} else {
			guard = redisGuard
			closers = append(closers, redisGuard.Close)
			logger.Info("idempotency guard ready", zap.String("backend", "redis"))
		}
	}

	svc := service.New(repo, guard, logger, cfg.CompanyID,
		service.WithLocation(cfg.Location()),
		service.WithDistributionRetries(cfg.DistributionRetries),
	)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, cfg.AccessTokenTTL, repo)
	if cfg.OwnerPassword != "" {
		created, err := auth.EnsureOwner(ctx, cfg.OwnerUsername, cfg.OwnerPassword)
		if err != nil {
			logger.Fatal("bootstrap owner account", zap.Error(err))
		}
		if created {
			logger.Info("bootstrap owner account created", zap.String("username", cfg.OwnerUsername))
		}
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("ledger backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", zap.Error(err))
		}
	}
	logger.Info("server stopped")
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.LogFormat, "console") {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.OwnerPassword != "" {
		if err := validatePasswordStrength(cfg.OwnerPassword); err != nil {
			return fmt.Errorf("BOOTSTRAP_OWNER_PASSWORD is too weak: %w", err)
		}
	}
	return nil
}

// validatePasswordStrength rejects short passwords, single repeated
// characters and a handful of well-known defaults.
func validatePasswordStrength(password string) error {
	if len(password) < 10 {
		return fmt.Errorf("must be at least 10 characters")
	}
	known := map[string]bool{
		"password123": true, "1234567890": true, "qwertyuiop": true,
		"owner12345": true, "cashier12345": true, "changeme123": true,
	}
	if known[strings.ToLower(password)] {
		return fmt.Errorf("common password not allowed")
	}

	allSame := true
	for i := 1; i < len(password); i++ {
		if password[i] != password[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return fmt.Errorf("repeated-character password not allowed")
	}
	return nil
}
