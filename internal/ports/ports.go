// Package ports declares the narrow interfaces between the intake flow, the
// HTTP adapter and the external vendors, so each side can be substituted
// with fakes in tests.
package ports

import (
	"context"
	"encoding/json"
	"iter"

	"github.com/stripe/stripe-go/v82"

	"innocents/internal/domain"
)

// CheckoutSessions is the slice of the payment provider SDK the checkout
// service needs: session creation only.
type CheckoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Checkout turns a CheckoutIntent into a provider-hosted payment page URL.
// origin is the scheme://host the provider redirects back to.
type Checkout interface {
	Create(ctx context.Context, origin string, intent domain.CheckoutIntent) (url string, err error)
}

// Notifier delivers one transactional email and returns the provider's raw
// response payload.
type Notifier interface {
	Send(ctx context.Context, n domain.Notification) (json.RawMessage, error)
}

// AutomationForwarder pushes a payment summary to the automation endpoint
// configured for a form type. Implementations are best-effort: unknown form
// types are skipped without error.
type AutomationForwarder interface {
	Forward(ctx context.Context, formType domain.FormType, payload map[string]any) error
}

// AddressSearcher returns a lazy, single-use sequence of address
// suggestions for a free-text query. Failures degrade to an empty sequence.
type AddressSearcher interface {
	Search(ctx context.Context, query string) iter.Seq[domain.AddressSuggestion]
}
