package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"bookreader/internal/app"
	"bookreader/internal/config"
	"bookreader/internal/ratelimit"
	"bookreader/internal/server"
	"bookreader/internal/util"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	tokenTTL, err := config.ParseTokenTTL(cfg.TokenTTL)
	if err != nil {
		log.Fatalf("failed to parse token TTL: %v", err)
	}

	util.InitLogger(cfg.LogLevel)
	if cfg.JWTSecret == config.InsecureJWTSecret {
		slog.Warn("using insecure default JWT secret, set JWT_SECRET in production")
	}
	if cfg.RegistrationToken == config.InsecureRegistrationToken {
		slog.Warn("using insecure default registration token, set REGISTRATION_TOKEN in production")
	}

	core, err := app.New(app.Config{
		DatabaseURL:       cfg.DatabaseURL,
		JWTSecret:         cfg.JWTSecret,
		TokenTTL:          tokenTTL,
		RegistrationToken: cfg.RegistrationToken,
		UploadDir:         cfg.UploadDir,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	serverCfg := server.Config{App: core}
	if cfg.RegisterRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewFixedWindow(cfg.RedisAddr, cfg.RedisPassword,
			"bookreader:register", cfg.RegisterRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init register rate limiter: %v", err)
		}
		serverCfg.RegisterLimiter = limiter
	}
	if cfg.LoginRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewFixedWindow(cfg.RedisAddr, cfg.RedisPassword,
			"bookreader:login", cfg.LoginRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init login rate limiter: %v", err)
		}
		serverCfg.LoginLimiter = limiter
	}

	httpServer := server.New(serverCfg)
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
