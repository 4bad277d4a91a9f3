package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"spendlog/internal/auth"
	"spendlog/internal/config"
	"spendlog/internal/handlers"
	"spendlog/internal/log"
	"spendlog/internal/mail"
	"spendlog/internal/middleware"
	"spendlog/internal/storage"
	"spendlog/web"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "spendlog:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	now := time.Now
	if n, err := db.CleanExpiredSessions(context.Background(), now()); err != nil {
		logger.WithComponent(log.ComponentStorage).Warn("expired session sweep failed", log.FieldError, err)
	} else if n > 0 {
		logger.WithComponent(log.ComponentStorage).Info("expired sessions removed", "count", n)
	}

	mailer, closeMailer, err := mail.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("mail backend: %w", err)
	}
	defer func() {
		if err := closeMailer(); err != nil {
			logger.Warn("mail backend close failed", log.FieldError, err)
		}
	}()

	h, err := handlers.New(handlers.Options{
		DB:              db,
		Templates:       web.Templates(),
		Mailer:          mailer,
		ResetTokens:     auth.NewResetTokens(cfg.SecretKey, now),
		Logger:          logger,
		Now:             now,
		Location:        cfg.Location(),
		SessionDuration: cfg.SessionDuration,
		SecureCookie:    cfg.SecureCookie,
		BaseURL:         cfg.BaseURL,
		MailFrom:        cfg.MailFrom,
	})
	if err != nil {
		return err
	}

	var limiter *middleware.RateLimiter
	if cfg.AuthRateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.AuthRateLimit)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(h, web.Static(), logger, limiter, cfg.TrustProxy),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "port", cfg.Port, "db", cfg.DBPath, "mail_backend", cfg.MailBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped gracefully")
	return nil
}

// setupRouter builds the application router. limiter may be nil. Forwarded
// client addresses are only honoured when trustProxy is set, otherwise any
// client could pick its own rate limit key.
func setupRouter(h *handlers.Handlers, static fs.FS, logger *log.Logger, limiter *middleware.RateLimiter, trustProxy bool) http.Handler {
	r := chi.NewRouter()
	if trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Trace(logger))
	r.Use(middleware.SecurityHeaders(middleware.DefaultHeadersConfig()))
	r.Use(chimw.Recoverer)

	r.With(middleware.StaticCache(3600)).Handle("/static/*",
		http.StripPrefix("/static/", http.FileServerFS(static)))

	var authLimit func(http.Handler) http.Handler
	if limiter != nil {
		authLimit = limiter.Middleware
	}
	h.Routes(r, authLimit)
	return r
}
