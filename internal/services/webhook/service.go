// Package webhook processes signed payment-provider events. Verification
// gates everything: an unverified body is never parsed. Verified completed
// checkouts fan out to a notification email and an automation forward, each
// in its own failure domain — one failing never blocks the other, and
// neither changes the answer returned to the provider.
package webhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"innocents/internal/domain"
	"innocents/internal/ports"
	"innocents/internal/services/notify"
)

// Error wraps every failure of this package.
var (
	Error = errs.Class("webhook")

	// ErrNotConfigured means no signing secret was supplied.
	ErrNotConfigured = Error.New("webhook signing secret not configured")
	// ErrMissingSignature means the request carried no signature header.
	ErrMissingSignature = Error.New("missing signature header")
	// ErrBadSignature means signature verification failed.
	ErrBadSignature = Error.New("signature verification failed")
)

// Service verifies and dispatches provider events.
type Service struct {
	log       *zap.Logger
	secret    string
	notifier  ports.Notifier
	forwarder ports.AutomationForwarder
}

// New wires a webhook service. notifier and forwarder may each be nil; the
// corresponding dispatch is then skipped with a log line.
func New(log *zap.Logger, secret string, notifier ports.Notifier, forwarder ports.AutomationForwarder) *Service {
	return &Service{log: log, secret: secret, notifier: notifier, forwarder: forwarder}
}

// Process handles one inbound provider call. It returns an error only when
// the event must be rejected (missing/invalid signature, missing secret);
// once verification succeeds the event counts as received regardless of
// dispatch outcomes, because the provider would otherwise redeliver.
func (s *Service) Process(ctx context.Context, body []byte, sigHeader string) error {
	if s.secret == "" {
		return ErrNotConfigured
	}
	if sigHeader == "" {
		return ErrMissingSignature
	}

	event, err := stripewebhook.ConstructEvent(body, sigHeader, s.secret)
	if err != nil {
		s.log.Warn("webhook signature verification failed", zap.Error(err))
		return ErrBadSignature
	}

	if event.Type != "checkout.session.completed" {
		s.log.Debug("ignoring event", zap.String("type", string(event.Type)))
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		// Verified but malformed; acknowledge it, there is nothing to redo.
		s.log.Error("completed-checkout payload did not decode", zap.Error(err))
		return nil
	}
	if session.PaymentStatus != "paid" {
		s.log.Info("checkout completed without payment, skipping dispatch",
			zap.String("session", session.ID),
			zap.String("paymentStatus", string(session.PaymentStatus)))
		return nil
	}

	evt := paymentEvent(&session)
	s.log.Info("payment confirmed",
		zap.String("session", evt.SessionID),
		zap.String("formType", string(evt.FormType)),
		zap.Int64("amount", evt.AmountTotal))

	s.dispatchEmail(ctx, evt)
	s.dispatchAutomation(ctx, evt)
	return nil
}

func paymentEvent(session *stripe.CheckoutSession) domain.PaymentEvent {
	evt := domain.PaymentEvent{
		SessionID:     session.ID,
		CustomerEmail: session.CustomerEmail,
		AmountTotal:   session.AmountTotal,
		PaymentStatus: string(session.PaymentStatus),
		FormType:      domain.FormType(session.Metadata["formType"]),
		FormData:      map[string]string{},
	}
	if raw := session.Metadata["formData"]; raw != "" {
		// The metadata bag is our own serialization echoed back; a decode
		// failure just means an empty bag.
		_ = json.Unmarshal([]byte(raw), &evt.FormData)
	}
	return evt
}

func (s *Service) dispatchEmail(ctx context.Context, evt domain.PaymentEvent) {
	if s.notifier == nil {
		s.log.Debug("no notifier configured, skipping payment email")
		return
	}
	html, err := notify.RenderPayment(evt)
	if err != nil {
		s.log.Error("payment email render failed", zap.String("session", evt.SessionID), zap.Error(err))
		return
	}
	if _, err := s.notifier.Send(ctx, domain.Notification{
		Subject: notify.PaymentSubject(evt),
		HTML:    html,
	}); err != nil {
		s.log.Error("payment email dispatch failed", zap.String("session", evt.SessionID), zap.Error(err))
	}
}

func (s *Service) dispatchAutomation(ctx context.Context, evt domain.PaymentEvent) {
	if s.forwarder == nil {
		s.log.Debug("no automation forwarder configured, skipping")
		return
	}
	payload := map[string]any{
		"sessionId":     evt.SessionID,
		"email":         evt.CustomerEmail,
		"amount":        evt.AmountTotal,
		"paymentStatus": evt.PaymentStatus,
		"formType":      string(evt.FormType),
	}
	for k, v := range evt.FormData {
		if _, taken := payload[k]; !taken {
			payload[k] = v
		}
	}
	if err := s.forwarder.Forward(ctx, evt.FormType, payload); err != nil {
		s.log.Error("automation forward failed", zap.String("session", evt.SessionID), zap.Error(err))
	}
}
