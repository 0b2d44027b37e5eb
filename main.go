package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hebedit/config"
	"hebedit/config/database"
	"hebedit/internal/editor/repository"
	"hebedit/pkg/logger"
	"hebedit/router"
	"hebedit/socket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store repository.Store
	switch cfg.Store {
	case config.StorePostgres:
		db, err := database.Connect(ctx, cfg.DB)
		if err != nil {
			logger.Sugar.Fatalf("Could not connect to database: %v", err)
		}
		defer db.Close()

		pg := repository.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Sugar.Fatalf("Could not prepare schema: %v", err)
		}
		store = pg
	default:
		logger.Sugar.Warn("Using in-memory store, content is lost on restart")
		store = repository.NewMemoryStore()
	}
	if cfg.JWTSecret == "" {
		logger.Sugar.Warn("JWT_SECRET not set, every connection edits the anonymous document")
	}

	hub := socket.NewHub(store, socket.Options{
		QuietPeriod:    cfg.QuietPeriod,
		StatusReset:    cfg.StatusReset,
		IndicatorReset: cfg.IndicatorReset,
		ConfirmTimeout: cfg.ConfirmTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Setup(cfg, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Sugar.Errorf("Shutdown error: %v", err)
		}
	}()

	logger.Sugar.Infof("Hebrew editor listening on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Sugar.Fatalf("Server error: %v", err)
	}
	logger.Sugar.Info("Server stopped")
}
