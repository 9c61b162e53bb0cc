// Package intake drives the multi-step sponsorship form and the one-step
// donation forms. A Session owns all wizard state in memory for one visitor;
// nothing is persisted, so closing the session discards everything.
package intake

import (
	"context"
	"encoding/base64"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"innocents/internal/address"
	"innocents/internal/domain"
	"innocents/internal/mandate"
	"innocents/internal/ports"
	"innocents/internal/services/notify"
	"innocents/internal/validate"
)

// Error wraps every failure of this package.
var (
	Error = errs.Class("intake")

	// ErrInvalidTransition means the requested operation does not exist in
	// the session's current step.
	ErrInvalidTransition = Error.New("operation not valid in current step")
)

// Sponsorship checkout terms for the card branch. The monthly amount is
// fixed; donors who want a different commitment use the free-donation form.
const (
	sponsorshipAmount  = 5000
	sponsorshipProduct = "Parrainage Orphelin (Mensuel)"
)

// Deps are the collaborators a session calls out to. Checkout, Notifier and
// Addresses may be nil; the corresponding branch then fails (or, for
// addresses, silently skips suggestions) without touching the network.
type Deps struct {
	Checkout  ports.Checkout
	Notifier  ports.Notifier
	Addresses ports.AddressSearcher
	Mandates  *mandate.Builder

	// Origin is the scheme://host the payment provider redirects back to.
	Origin string

	// OnSuggestions is invoked (on a timer goroutine) whenever an address
	// lookup completes with fresh suggestions.
	OnSuggestions func([]domain.AddressSuggestion)

	// Debounce is the quiet period before an address lookup fires.
	// Zero means the default.
	Debounce time.Duration
}

// Session is one visitor's pass through the sponsorship wizard. All methods
// are safe for concurrent use; the debounced address lookup runs on its own
// goroutine and publishes through the same lock.
type Session struct {
	log  *zap.Logger
	deps Deps

	mu          sync.Mutex
	state       State
	profile     domain.DonorProfile
	fieldErrors FieldErrors
	suggestions []domain.AddressSuggestion
	debounce    *address.Debouncer
}

// NewSession starts a wizard in the identity step.
func NewSession(log *zap.Logger, deps Deps) *Session {
	if deps.Mandates == nil {
		deps.Mandates = mandate.NewBuilder(mandate.DefaultCreditor(), nil)
	}
	return &Session{
		log:      log,
		deps:     deps,
		state:    Identity{},
		debounce: address.NewDebouncer(deps.Debounce),
	}
}

// State returns the current step.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Profile returns a snapshot of the donor fields collected so far.
func (s *Session) Profile() domain.DonorProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// FieldErrors returns the validation failures from the last submit attempt.
func (s *Session) FieldErrors() FieldErrors {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(FieldErrors, len(s.fieldErrors))
	for k, v := range s.fieldErrors {
		out[k] = v
	}
	return out
}

// Suggestions returns the current address suggestions.
func (s *Session) Suggestions() []domain.AddressSuggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.suggestions)
}

// SubmitIdentity validates the identity fields and, when they all pass,
// advances to the payment choice. Failures are returned per field and leave
// the session in the identity step with the input preserved.
func (s *Session) SubmitIdentity(p domain.DonorProfile) (FieldErrors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Identity); !ok {
		return nil, ErrInvalidTransition
	}

	s.profile = p
	if fieldErrs := validateIdentity(p); len(fieldErrs) > 0 {
		s.fieldErrors = fieldErrs
		return fieldErrs, nil
	}
	s.fieldErrors = nil
	s.state = PaymentChoice{}
	return nil, nil
}

// TypeAddress records one keystroke's worth of the address field and
// schedules a debounced suggestion lookup. Edits outside the identity step
// are ignored.
func (s *Session) TypeAddress(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Identity); !ok {
		return
	}
	s.profile.Adresse = query
	delete(s.fieldErrors, "adresse")
	if s.deps.Addresses == nil {
		return
	}
	s.debounce.Do(func() { s.lookup(query) })
}

// lookup runs on the debounce timer goroutine.
func (s *Session) lookup(query string) {
	found := slices.Collect(s.deps.Addresses.Search(context.Background(), query))

	s.mu.Lock()
	if s.profile.Adresse != query {
		// A newer keystroke superseded this lookup.
		s.mu.Unlock()
		return
	}
	s.suggestions = found
	cb := s.deps.OnSuggestions
	s.mu.Unlock()

	if cb != nil {
		cb(slices.Clone(found))
	}
}

// SelectAddress applies one suggestion to the address, postcode and city
// fields in a single step, clears their errors and dismisses the list.
func (s *Session) SelectAddress(sug domain.AddressSuggestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(Identity); !ok {
		return
	}
	s.profile.Adresse = sug.Name
	s.profile.CodePostal = sug.Postcode
	s.profile.Ville = sug.City
	delete(s.fieldErrors, "adresse")
	delete(s.fieldErrors, "codePostal")
	delete(s.fieldErrors, "ville")
	s.suggestions = nil
}

// ChooseCard requests a monthly-subscription checkout session and, on
// success, hands the visitor to the provider's payment page. On failure the
// session stays in the payment choice so another method can be picked.
func (s *Session) ChooseCard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(PaymentChoice); !ok {
		return ErrInvalidTransition
	}
	if s.deps.Checkout == nil {
		return Error.New("checkout is not available")
	}

	intent := domain.CheckoutIntent{
		Email:       s.profile.Email,
		Name:        s.profile.FullName(),
		Amount:      sponsorshipAmount,
		ProductName: sponsorshipProduct,
		Mode:        domain.ModeSubscription,
		FormType:    domain.FormParrainage,
		FormData: map[string]string{
			"nom":           s.profile.Nom,
			"prenom":        s.profile.Prenom,
			"adresse":       s.profile.Adresse,
			"codePostal":    s.profile.CodePostal,
			"ville":         s.profile.Ville,
			"telephone":     s.profile.Telephone,
			"paymentMethod": "stripe",
		},
	}
	url, err := s.deps.Checkout.Create(ctx, s.deps.Origin, intent)
	if err != nil {
		s.log.Error("sponsorship checkout session failed", zap.Error(err))
		return Error.Wrap(err)
	}
	s.state = CardRedirect{URL: url}
	return nil
}

// ChooseTransfer shows the association's account details for a manual
// standing order.
func (s *Session) ChooseTransfer() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(PaymentChoice); !ok {
		return ErrInvalidTransition
	}
	s.state = BankTransfer{Account: domain.TransferAccount()}
	return nil
}

// ChooseDebit enters the SEPA mandate branch.
func (s *Session) ChooseDebit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(PaymentChoice); !ok {
		return ErrInvalidTransition
	}
	s.state = MandateIBAN{}
	return nil
}

// SubmitBankDetails validates the donor's IBAN and BIC. Both are checked
// even when the first fails, so the donor sees every problem at once. Valid
// identifiers are stored normalized and the session moves to signature
// capture.
func (s *Session) SubmitBankDetails(iban, bic string) (FieldErrors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(MandateIBAN); !ok {
		return nil, ErrInvalidTransition
	}

	fieldErrs := FieldErrors{}
	if reason := validate.IBAN(iban); reason != "" {
		fieldErrs["donorIban"] = reason
	}
	if reason := validate.BIC(bic); reason != "" {
		fieldErrs["donorBic"] = reason
	}
	if len(fieldErrs) > 0 {
		s.state = MandateIBAN{IBAN: iban, BIC: bic}
		s.fieldErrors = fieldErrs
		return fieldErrs, nil
	}

	s.fieldErrors = nil
	s.state = MandateSignature{Bank: domain.BankMandateDetails{
		IBAN: validate.NormalizeBankCode(iban),
		BIC:  validate.NormalizeBankCode(bic),
	}}
	return nil, nil
}

// Sign attaches the captured signature raster and renders the mandate for
// preview. An empty capture is a field error; a render failure leaves the
// session in the signature step.
func (s *Session) Sign(signaturePNG []byte) (FieldErrors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state.(MandateSignature)
	if !ok {
		return nil, ErrInvalidTransition
	}
	if len(signaturePNG) == 0 {
		fieldErrs := FieldErrors{"signature": "La signature est requise"}
		s.fieldErrors = fieldErrs
		return fieldErrs, nil
	}

	bank := st.Bank
	bank.Signature = signaturePNG
	doc, err := s.deps.Mandates.Render(s.profile, bank)
	if err != nil {
		s.log.Error("mandate render failed", zap.Error(err))
		return nil, Error.Wrap(err)
	}
	s.fieldErrors = nil
	s.state = MandatePreview{Bank: bank, Document: doc}
	return nil, nil
}

// Document returns the rendered mandate while the session is in preview,
// nil otherwise.
func (s *Session) Document() *mandate.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.state.(MandatePreview); ok {
		return st.Document
	}
	return nil
}

// Submit emails the signed mandate to the association with the PDF
// attached. Delivery failure keeps the session in preview so the donor can
// retry.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.state.(MandatePreview)
	if !ok {
		return ErrInvalidTransition
	}
	if s.deps.Notifier == nil {
		return Error.New("notifications are not available")
	}

	html, err := notify.RenderMandate(s.profile, st.Bank)
	if err != nil {
		return Error.Wrap(err)
	}
	_, err = s.deps.Notifier.Send(ctx, domain.Notification{
		Subject: notify.MandateSubject(s.profile),
		HTML:    html,
		Attachments: []domain.Attachment{{
			Filename: st.Document.Filename,
			Content:  base64.StdEncoding.EncodeToString(st.Document.Bytes),
		}},
	})
	if err != nil {
		s.log.Error("mandate submission failed", zap.Error(err))
		return Error.Wrap(err)
	}
	s.log.Info("mandate submitted", zap.String("donor", s.profile.FullName()))
	s.state = Done{}
	return nil
}

// Acknowledge completes the bank-transfer branch once the donor has noted
// the account details.
func (s *Session) Acknowledge() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.(BankTransfer); !ok {
		return ErrInvalidTransition
	}
	s.state = Done{}
	return nil
}

// Back steps one screen towards the start. Collected data survives the
// move, so going forward again does not re-ask for it.
func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch st := s.state.(type) {
	case PaymentChoice:
		s.state = Identity{}
	case MandateIBAN:
		s.state = PaymentChoice{}
	case MandateSignature:
		s.state = MandateIBAN{IBAN: st.Bank.IBAN, BIC: st.Bank.BIC}
	case MandatePreview:
		s.state = MandateIBAN{IBAN: st.Bank.IBAN, BIC: st.Bank.BIC}
	case BankTransfer:
		s.state = PaymentChoice{}
	default:
		return ErrInvalidTransition
	}
	s.fieldErrors = nil
	return nil
}

// Close abandons the wizard from any step and cancels any pending address
// lookup. All collected data becomes unreachable.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debounce.Stop()
	s.state = Closed{}
	s.suggestions = nil
}

// validateIdentity checks the shared identity fields. Every failing field
// gets its own message; passing fields never appear in the result.
func validateIdentity(p domain.DonorProfile) FieldErrors {
	fieldErrs := FieldErrors{}
	required := []struct {
		field, value, reason string
	}{
		{"nom", p.Nom, "Le nom est requis"},
		{"prenom", p.Prenom, "Le prénom est requis"},
		{"adresse", p.Adresse, "L'adresse est requise"},
		{"codePostal", p.CodePostal, "Le code postal est requis"},
		{"ville", p.Ville, "La ville est requise"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			fieldErrs[r.field] = r.reason
		}
	}
	if reason := validate.Email(p.Email); reason != "" {
		fieldErrs["email"] = reason
	}
	if reason := validate.Phone(p.Telephone); reason != "" {
		fieldErrs["telephone"] = reason
	}
	return fieldErrs
}
