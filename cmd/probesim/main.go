package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nexport/opsdash/internal/probesim"
)

func main() {
	addr := flag.String("addr", ":8420", "listen address")
	dbPath := flag.String("db", "", "sqlite database path (default ~/.opsdash/probesim.db)")
	seed := flag.Bool("seed", true, "load the demo dataset on startup")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	path := *dbPath
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Fatal("resolving home directory", zap.Error(err))
		}
		path = filepath.Join(homeDir, ".opsdash", "probesim.db")
	}

	secret := os.Getenv("OPSDASH_JWT_SECRET")
	if secret == "" {
		secret = "dev-secret"
		logger.Warn("OPSDASH_JWT_SECRET not set, using the development secret")
	}

	store, err := probesim.NewStore(ctx, path)
	if err != nil {
		logger.Fatal("opening store", zap.String("path", path), zap.Error(err))
	}
	defer store.Close()

	if *seed {
		if err := store.Seed(ctx, time.Now()); err != nil {
			logger.Fatal("seeding demo data", zap.Error(err))
		}
		logger.Info("demo data seeded", zap.String("path", path))
	}

	server := &http.Server{
		Addr:         *addr,
		Handler:      probesim.NewServer(store, logger, []byte(secret)).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("probesim listening", zap.String("addr", *addr))
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		stop()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}
}
