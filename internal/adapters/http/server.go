// Package httpadapter exposes the public API consumed by the association's
// website: checkout-session creation, transactional email relay and the
// payment-provider webhook.
package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"innocents/internal/domain"
	"innocents/internal/ports"
	"innocents/internal/services/checkout"
	"innocents/internal/services/notify"
	"innocents/internal/services/webhook"
)

// maxWebhookBody bounds how much of a provider event we read; genuine
// checkout events are a few KB.
const maxWebhookBody = 65536

// Server routes the public API. Any of the collaborators may be nil when
// the matching credential is absent; the affected endpoints then answer 503.
type Server struct {
	log      *zap.Logger
	checkout ports.Checkout
	notifier ports.Notifier
	hooks    *webhook.Service
}

func New(log *zap.Logger, co ports.Checkout, notifier ports.Notifier, hooks *webhook.Service) *Server {
	return &Server{log: log, checkout: co, notifier: notifier, hooks: hooks}
}

// Routes returns the chi router with all public endpoints mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Route("/api", func(r chi.Router) {
		r.Post("/create-checkout-session", s.handleCreateCheckoutSession)
		r.Post("/send-email", s.handleSendEmail)
		r.Post("/stripe-webhook", s.handleStripeWebhook)
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	if s.checkout == nil {
		writeError(w, http.StatusServiceUnavailable, "payments are not configured")
		return
	}

	var intent domain.CheckoutIntent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	url, err := s.checkout.Create(r.Context(), r.Header.Get("Origin"), intent)
	if err != nil {
		if errors.Is(err, checkout.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "payments are not configured")
			return
		}
		s.log.Error("checkout session creation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "could not create checkout session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

type sendEmailRequest struct {
	Subject     string              `json:"subject"`
	HTML        string              `json:"html"`
	Attachments []domain.Attachment `json:"attachments"`
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	if s.notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "notifications are not configured")
		return
	}

	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Subject == "" || req.HTML == "" {
		writeError(w, http.StatusBadRequest, "subject and html are required")
		return
	}

	data, err := s.notifier.Send(r.Context(), domain.Notification{
		Subject:     req.Subject,
		HTML:        req.HTML,
		Attachments: req.Attachments,
	})
	if err != nil {
		if errors.Is(err, notify.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "notifications are not configured")
			return
		}
		s.log.Error("notification relay failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "email delivery failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if s.hooks == nil {
		writeError(w, http.StatusServiceUnavailable, "webhook is not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read body")
		return
	}

	err = s.hooks.Process(r.Context(), body, r.Header.Get("Stripe-Signature"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, webhook.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "webhook is not configured")
	case errors.Is(err, webhook.ErrMissingSignature), errors.Is(err, webhook.ErrBadSignature):
		writeError(w, http.StatusBadRequest, "invalid signature")
	default:
		s.log.Error("webhook processing failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "webhook processing failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
