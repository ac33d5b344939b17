package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"snapfeed/internal/identity"
	"snapfeed/internal/ratelimit"
	"snapfeed/internal/util"
	"snapfeed/pkg/events"
	"snapfeed/services/feed/internal/app"
	"snapfeed/services/feed/internal/config"
	"snapfeed/services/feed/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.InitLogger(cfg.LogLevel)

	tokenVerifier, err := identity.NewVerifier(identity.Config{
		JWKSURL:    cfg.IdentityJWKSURL,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		Leeway:     time.Duration(cfg.JWTLeewaySeconds) * time.Second,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	})
	if err != nil {
		logger.Error("failed to init jwks verifier", "err", err)
		os.Exit(1)
	}

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL)
		if err != nil {
			logger.Error("failed to connect to nats", "err", err)
			os.Exit(1)
		}
		defer publisher.Close()
	} else {
		slog.Info("nats url not configured, event publishing disabled")
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:    cfg.DatabaseURL,
		MinioEndpoint:  cfg.MinioEndpoint,
		MinioAccessKey: cfg.MinioAccessKey,
		MinioSecretKey: cfg.MinioSecretKey,
		MinioUseSSL:    cfg.MinioUseSSL,
		Events:         publisher,
	})
	if err != nil {
		logger.Error("failed to init app", "err", err)
		os.Exit(1)
	}

	var limiter server.WriteLimiter
	if cfg.WriteRateLimit > 0 {
		window := time.Duration(cfg.WriteRateWindowMS) * time.Millisecond
		rl, err := ratelimit.NewWriteLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.WriteRateLimit, window)
		if err != nil {
			logger.Error("failed to init write limiter", "err", err)
			os.Exit(1)
		}
		limiter = rl
	} else {
		slog.Info("write rate limiting disabled")
	}

	httpServer := server.New(server.Config{
		App:           appCore,
		TokenVerifier: tokenVerifier,
		Limiter:       limiter,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("feed server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
