package intake

import (
	"innocents/internal/domain"
	"innocents/internal/mandate"
)

// FieldErrors maps form field names to user-facing reasons. Validation
// failures are data, not errors: an empty map means the input passed.
type FieldErrors map[string]string

// State is the tagged union of wizard steps. Exactly one variant is active
// at a time and each carries only the data that exists in that step, so
// bank details cannot be read before the mandate branch produced them.
type State interface{ step() }

// Identity collects the donor's identity and contact fields.
type Identity struct{}

// PaymentChoice lets the donor pick card, transfer or automatic debit.
type PaymentChoice struct{}

// MandateIBAN collects the donor's bank identifiers. IBAN and BIC hold the
// raw text as typed, so a failed validation round-trips the input.
type MandateIBAN struct {
	IBAN string
	BIC  string
}

// MandateSignature holds validated bank details and waits for the
// handwritten signature capture.
type MandateSignature struct {
	Bank domain.BankMandateDetails
}

// MandatePreview shows the rendered mandate before submission.
type MandatePreview struct {
	Bank     domain.BankMandateDetails
	Document *mandate.Document
}

// CardRedirect is terminal: the provider's hosted payment page takes over
// and in-memory state is abandoned.
type CardRedirect struct {
	URL string
}

// BankTransfer shows the association's static account details.
type BankTransfer struct {
	Account domain.AssociationAccount
}

// Done is the terminal success state.
type Done struct{}

// Closed is the terminal cancellation state.
type Closed struct{}

func (Identity) step()         {}
func (PaymentChoice) step()    {}
func (MandateIBAN) step()      {}
func (MandateSignature) step() {}
func (MandatePreview) step()   {}
func (CardRedirect) step()     {}
func (BankTransfer) step()     {}
func (Done) step()             {}
func (Closed) step()           {}
