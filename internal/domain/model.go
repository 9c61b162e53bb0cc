package domain

// Core domain models. JSON tags mirror the public site's wire keys so the
// metadata bag echoed back by the payment provider round-trips unchanged.

// DonorProfile holds the identity fields collected by an intake form. It is
// owned by a single form session, mutated on every edit, and discarded when
// the session ends; it is never persisted server-side.
type DonorProfile struct {
	Nom        string `json:"nom"`
	Prenom     string `json:"prenom"`
	Adresse    string `json:"adresse"`
	CodePostal string `json:"codePostal"`
	Ville      string `json:"ville"`
	Email      string `json:"email"`
	Telephone  string `json:"telephone"`
}

// FullName returns "Prenom Nom", the display order used on documents and
// checkout sessions.
func (p DonorProfile) FullName() string {
	return p.Prenom + " " + p.Nom
}

// FormFields flattens the profile into the metadata bag sent with a checkout
// session. The provider limits metadata size, so only scalar fields go in.
func (p DonorProfile) FormFields() map[string]string {
	return map[string]string{
		"nom":        p.Nom,
		"prenom":     p.Prenom,
		"adresse":    p.Adresse,
		"codePostal": p.CodePostal,
		"ville":      p.Ville,
		"email":      p.Email,
		"telephone":  p.Telephone,
	}
}

// BankMandateDetails exists only within the automatic-debit branch of the
// sponsorship flow. IBAN and BIC are stored normalized (upper case, no
// spaces); Signature is the captured handwritten signature as a PNG raster.
type BankMandateDetails struct {
	IBAN      string
	BIC       string
	Signature []byte
}

// CheckoutMode selects between a one-off payment and a monthly subscription.
type CheckoutMode string

const (
	ModePayment      CheckoutMode = "payment"
	ModeSubscription CheckoutMode = "subscription"
)

// FormType identifies which intake form produced a checkout session. It is
// carried through provider metadata and keys the automation routing on the
// webhook side.
type FormType string

const (
	FormDon        FormType = "don"
	FormParrainage FormType = "parrainage"
	FormPuits      FormType = "puits"
	FormColis      FormType = "colis"
)

// CheckoutIntent describes one checkout-session creation attempt. Amount is
// in minor currency units. The intent has no existence after the redirect
// URL is obtained; the payment provider owns all subsequent state.
type CheckoutIntent struct {
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	Amount      int64             `json:"amount"`
	ProductName string            `json:"productName"`
	Mode        CheckoutMode      `json:"mode"`
	FormType    FormType          `json:"formType"`
	FormData    map[string]string `json:"formData"`
}

// PaymentEvent is the projection of a verified provider webhook event that
// the dispatch side consumes. Processed once per delivery and discarded; no
// durable ledger of payments exists in this system.
type PaymentEvent struct {
	SessionID     string
	CustomerEmail string
	AmountTotal   int64
	PaymentStatus string
	FormType      FormType
	FormData      map[string]string
}

// AddressSuggestion is a read-only projection of one address-search result.
type AddressSuggestion struct {
	Label    string
	Name     string
	Postcode string
	City     string
}

// AssociationAccount is the static RIB shown in the bank-transfer branch.
type AssociationAccount struct {
	Holder string
	IBAN   string
}

// TransferAccount returns the association account donors wire transfers to.
func TransferAccount() AssociationAccount {
	return AssociationAccount{
		Holder: "Innocents France",
		IBAN:   "FR74 2004 1010 1239 1969 0Y03 319",
	}
}

// Attachment is a base64-encoded file attached to a notification email.
type Attachment struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Notification is a subject/HTML/attachment payload for the transactional
// email provider.
type Notification struct {
	Subject     string       `json:"subject"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments,omitempty"`
}
