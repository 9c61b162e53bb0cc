package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpadapter "innocents/internal/adapters/http"
	"innocents/internal/config"
	"innocents/internal/ports"
	"innocents/internal/services/automation"
	"innocents/internal/services/checkout"
	"innocents/internal/services/notify"
	"innocents/internal/services/webhook"
)

func main() {
	cfg := config.Load()

	log, err := newLogger(cfg.Env)
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	// Missing credentials disable features rather than aborting startup,
	// so a local run without Stripe keys still serves the health check.
	var sessions ports.CheckoutSessions
	if cfg.StripeSecretKey != "" {
		sessions = checkout.NewStripeSessions(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, checkout disabled")
	}
	checkoutSvc := checkout.New(log.Named("checkout"), sessions, cfg.PublicURL)

	notifier := notify.NewClient(log.Named("notify"), notify.Config{
		APIKey:         cfg.BrevoAPIKey,
		SenderName:     cfg.MailSenderName,
		SenderEmail:    cfg.MailSenderEmail,
		RecipientEmail: cfg.MailRecipientEmail,
	})
	if cfg.BrevoAPIKey == "" {
		log.Warn("BREVO_API_KEY not set, notifications disabled")
	}

	forwarder := automation.NewForwarder(log.Named("automation"), cfg.N8NBaseURL)
	hooks := webhook.New(log.Named("webhook"), cfg.StripeWebhookSecret, notifier, forwarder)
	if cfg.StripeWebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET not set, webhook disabled")
	}

	srv := httpadapter.New(log.Named("http"), checkoutSvc, notifier, hooks)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	log.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("env", cfg.Env))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.Stringer("signal", sig))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
