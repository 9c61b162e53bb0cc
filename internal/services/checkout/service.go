// Package checkout turns checkout intents into provider-hosted payment
// sessions. All payment state lives with the provider; this service only
// builds the session request and hands back the redirect URL.
package checkout

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"innocents/internal/domain"
	"innocents/internal/ports"
)

// Error wraps every failure of this package.
var Error = errs.Class("checkout")

// ErrNotConfigured is returned when no payment provider key was supplied.
var ErrNotConfigured = Error.New("payment provider not configured")

// Defaults applied to sparse intents, matching the public form contracts.
const (
	DefaultAmount      = 5000
	DefaultProductName = "Don - Association Innocents France"
)

// NewStripeSessions returns the real provider-backed session creator.
func NewStripeSessions(secretKey string) ports.CheckoutSessions {
	api := client.New(secretKey, nil)
	return api.CheckoutSessions
}

// Service builds and creates checkout sessions.
type Service struct {
	log       *zap.Logger
	sessions  ports.CheckoutSessions
	publicURL string // origin fallback when the request carries none
}

// New wires a checkout service. sessions may be nil when the provider key
// is absent; Create then degrades to an explicit error.
func New(log *zap.Logger, sessions ports.CheckoutSessions, publicURL string) *Service {
	return &Service{log: log, sessions: sessions, publicURL: publicURL}
}

// Create creates one hosted checkout session and returns its redirect URL.
// origin is where the provider sends the donor back; empty means the
// configured public URL.
func (s *Service) Create(ctx context.Context, origin string, intent domain.CheckoutIntent) (string, error) {
	if s.sessions == nil {
		return "", ErrNotConfigured
	}
	if origin == "" {
		origin = s.publicURL
	}

	params, err := sessionParams(ctx, origin, intent)
	if err != nil {
		return "", err
	}
	session, err := s.sessions.New(params)
	if err != nil {
		s.log.Error("checkout session creation failed",
			zap.String("formType", string(intent.FormType)),
			zap.Error(err))
		return "", Error.Wrap(err)
	}
	s.log.Info("checkout session created",
		zap.String("session", session.ID),
		zap.String("formType", string(intent.FormType)),
		zap.Int64("amount", intent.Amount))
	return session.URL, nil
}

func sessionParams(ctx context.Context, origin string, intent domain.CheckoutIntent) (*stripe.CheckoutSessionParams, error) {
	amount := intent.Amount
	if amount == 0 {
		amount = DefaultAmount
	}
	name := intent.ProductName
	if name == "" {
		name = DefaultProductName
	}
	mode := intent.Mode
	if mode == "" {
		mode = domain.ModePayment
	}
	formType := intent.FormType
	if formType == "" {
		formType = domain.FormDon
	}
	formData := intent.FormData
	if formData == nil {
		formData = map[string]string{}
	}
	encoded, err := json.Marshal(formData)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency: stripe.String(string(stripe.CurrencyEUR)),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name:        stripe.String(name),
			Description: stripe.String("Soutien pour : " + name),
		},
		UnitAmount: stripe.Int64(amount),
	}
	stripeMode := stripe.CheckoutSessionModePayment
	if mode == domain.ModeSubscription {
		stripeMode = stripe.CheckoutSessionModeSubscription
		priceData.Recurring = &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
			Interval: stripe.String("month"),
		}
	}

	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: priceData,
			Quantity:  stripe.Int64(1),
		}},
		Mode:       stripe.String(string(stripeMode)),
		SuccessURL: stripe.String(origin + "/?success=true"),
		CancelURL:  stripe.String(origin + "/?canceled=true"),
		Metadata: map[string]string{
			"formType": string(formType),
			"formData": string(encoded),
		},
	}
	if intent.Email != "" {
		params.CustomerEmail = stripe.String(intent.Email)
	}
	return params, nil
}
