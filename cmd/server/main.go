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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sportperformance/academy-api/internal/api"
	"github.com/sportperformance/academy-api/internal/app"
	"github.com/sportperformance/academy-api/internal/app/maintenance"
	"github.com/sportperformance/academy-api/internal/auth"
	"github.com/sportperformance/academy-api/internal/database"
	"github.com/sportperformance/academy-api/internal/middleware"
	"github.com/sportperformance/academy-api/internal/services"
	"github.com/sportperformance/academy-api/pkg/logger"
	"github.com/sportperformance/academy-api/pkg/mail"
)

const sweepSchedule = "@hourly"

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "server error:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := app.Load(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gin.SetMode(cfg.Server.Mode)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}

	mailer, err := mail.NewSMTPMailer(mail.SMTPSettings{
		Enabled:  cfg.Email.Enabled,
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		UseTLS:   cfg.Email.UseTLS,
	})
	if err != nil {
		return err
	}

	tokens, err := auth.NewJWTService(auth.JWTConfig{
		Secret:         cfg.Auth.JWT.Secret,
		Issuer:         cfg.Auth.JWT.Issuer,
		AccessTokenTTL: cfg.Auth.JWT.AccessTokenTTL,
	})
	if err != nil {
		return err
	}

	sessions, err := auth.NewSessionService(db)
	if err != nil {
		return err
	}

	users, err := services.NewUserService(db)
	if err != nil {
		return err
	}

	academies, err := services.NewAcademyService(db)
	if err != nil {
		return err
	}

	otp, err := services.NewOtpService(db, users, tokens, sessions, mailer, services.OtpConfig{
		CodeLength:  cfg.Auth.Otp.CodeLength,
		TTL:         cfg.Auth.Otp.TTL,
		MaxAttempts: cfg.Auth.Otp.MaxAttempts,
	})
	if err != nil {
		return err
	}

	invites, err := services.NewInviteService(db, academies, users, services.InviteConfig{
		BaseURL: cfg.Auth.Invite.BaseURL,
	})
	if err != nil {
		return err
	}

	rateStore, err := newRateStore(cfg)
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Dependencies{
		DB:        db,
		Tokens:    tokens,
		Sessions:  sessions,
		Otp:       otp,
		Invites:   invites,
		Academies: academies,
		RateStore: rateStore,
		RateLimit: middleware.RateLimitConfig{
			Limit:  cfg.Auth.RateLimit.Limit,
			Window: cfg.Auth.RateLimit.Window,
		},
	})

	sweeper, err := maintenance.NewSweeper(db, sessions)
	if err != nil {
		return err
	}
	scheduler, err := sweeper.Schedule(sweepSchedule)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newRateStore picks the Redis-backed limiter when configured, falling back
// to the in-process store.
func newRateStore(cfg *app.Config) (middleware.RateStore, error) {
	if !cfg.Redis.Enabled {
		return middleware.NewMemoryRateStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	return middleware.NewRedisRateStore(client), nil
}
