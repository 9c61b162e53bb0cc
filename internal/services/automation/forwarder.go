// Package automation forwards payment summaries to the workflow engine
// (n8n) webhooks configured per form type. Forwarding is a best-effort side
// channel: failures are reported to the caller for logging but never block
// or roll back anything.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"innocents/internal/domain"
)

// Error wraps every failure of this package.
var Error = errs.Class("automation")

// routes maps form types to workflow webhook paths. Form types without a
// route (notably parrainage, whose mandate branch never reaches the payment
// webhook) are skipped.
var routes = map[domain.FormType]string{
	domain.FormDon:   "/webhook/don-stripe",
	domain.FormPuits: "/webhook/puits-stripe",
	domain.FormColis: "/webhook/colis-stripe",
}

// Forwarder posts JSON payloads to the workflow engine.
type Forwarder struct {
	log     *zap.Logger
	baseURL string
	httpc   *http.Client
}

// NewForwarder wires a forwarder. An empty baseURL disables forwarding:
// every Forward call becomes a logged no-op.
func NewForwarder(log *zap.Logger, baseURL string) *Forwarder {
	return &Forwarder{
		log:     log,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Forward posts the payload to the route for formType, if one exists.
func (f *Forwarder) Forward(ctx context.Context, formType domain.FormType, payload map[string]any) error {
	if f.baseURL == "" {
		f.log.Debug("automation forwarding disabled, skipping", zap.String("formType", string(formType)))
		return nil
	}
	path, ok := routes[formType]
	if !ok {
		f.log.Debug("no automation route for form type", zap.String("formType", string(formType)))
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Error.Wrap(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Error.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpc.Do(req)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Error.New("workflow webhook returned %d: %s", resp.StatusCode, detail)
	}
	f.log.Info("forwarded to automation", zap.String("formType", string(formType)))
	return nil
}
