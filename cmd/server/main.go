package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ehub/internal/config"
	"ehub/internal/db"
	"ehub/internal/middleware"
	"ehub/internal/models"
	"ehub/internal/router"
	"ehub/internal/services"
	"ehub/internal/utils"

	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))
	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DatabaseURL, cfg.LogLevel)
	if err != nil {
		return err
	}

	postCache, err := utils.NewTTLCache[[]models.Post](16)
	if err != nil {
		return err
	}

	mail := services.NewMailService(cfg.SMTP, cfg.TemplateDir)
	authService := services.NewAuthService(database, mail, services.NewGoogleVerifier(cfg.Google.ClientID), cfg.OTPTTL)

	limiter := middleware.NewRateLimiter(10, time.Minute)
	go limiter.Run(ctx)

	engine, err := router.New(router.Deps{
		Config:      cfg,
		Posts:       services.NewPostService(database, postCache),
		Discussions: services.NewDiscussionService(database),
		Showcase:    services.NewShowcaseService(database),
		Accounts:    authService,
		Users:       authService,
		Captcha:     services.NewCaptchaService(),
		Limiter:     limiter,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("ehub server starting", "addr", srv.Addr, "site", cfg.SiteURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
