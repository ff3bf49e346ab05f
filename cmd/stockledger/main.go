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

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/erazemk/stockledger/internal/api"
	"github.com/erazemk/stockledger/internal/auth"
	"github.com/erazemk/stockledger/internal/config"
	"github.com/erazemk/stockledger/internal/db"
	"github.com/erazemk/stockledger/internal/logger"
	"github.com/erazemk/stockledger/internal/metrics"
	"github.com/erazemk/stockledger/internal/model"
	"github.com/erazemk/stockledger/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv, os.Stdout)
	if errors.Is(err, config.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	log, closeLog, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("server failed")
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	database, err := db.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	log.Info().Str("path", cfg.DB.Path).Msg("database ready")

	ctx := context.Background()
	if err := initSuperAdmin(ctx, database, cfg.Admin); err != nil {
		return err
	}

	// A configured secret wins; otherwise one is generated and kept in the
	// database so tokens survive restarts.
	secret := cfg.JWT.Secret
	if secret == "" {
		secret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			return fmt.Errorf("loading JWT secret: %w", err)
		}
	}

	issuer := auth.NewIssuer(secret, cfg.JWT.Expiry)
	handler := api.NewRouter(database, issuer, metrics.New(), log)

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving http: %w", err)
		}
	case <-sigCtx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped, closing database")
	return nil
}

// initSuperAdmin creates the superadmin account when the database has no
// users yet and prints its generated password once.
func initSuperAdmin(ctx context.Context, database *sqlx.DB, admin config.AdminConfig) error {
	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return fmt.Errorf("counting users: %w", err)
	}
	if n > 0 {
		return nil
	}

	password, err := auth.GeneratePassword()
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	user, err := store.CreateUser(ctx, database, admin.Name, admin.Email, hash, model.RoleSuperAdmin)
	if err != nil {
		return fmt.Errorf("creating superadmin: %w", err)
	}

	printInitResult(user, password)
	return nil
}

// printInitResult prints the first-run credentials to stdout.
func printInitResult(user *model.User, password string) {
	fmt.Println("Superadmin account created:")
	fmt.Printf("  Email:    %s\n", user.Email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("It can be changed after logging in.")
	fmt.Println()
}
