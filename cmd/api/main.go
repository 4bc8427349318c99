// Command api runs the AskSenior HTTP backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/asksenior/backend/internal/auth"
	"github.com/asksenior/backend/internal/config"
	"github.com/asksenior/backend/internal/database"
	"github.com/asksenior/backend/internal/logger"
	"github.com/asksenior/backend/internal/server"
	"github.com/asksenior/backend/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := cfg.Validate(); err != nil {
		logger.L.Fatal("invalid configuration", zap.Error(err))
	}
	logger.SetLevel(cfg.LogLevel)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.New(cfg)
	if err != nil {
		logger.L.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	store := storage.New(cfg.Storage)
	if !cfg.Storage.Enabled() {
		logger.L.Warn("object storage not configured, image uploads will fail")
	}

	srv := server.NewServer(cfg, db, store, auth.NewVerifier(cfg.JWTSecret))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.L.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.L.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.L.Error("server shutdown error", zap.Error(err))
	}
}
