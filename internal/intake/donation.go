package intake

import (
	"context"
	"strings"

	"innocents/internal/domain"
	"innocents/internal/ports"
)

// DonationForm is the one-step intake shared by the free-donation, well and
// parcel forms: identity plus contact fields, validated once, then handed
// straight to checkout. Unlike the sponsorship wizard it keeps no state
// between calls.
type DonationForm struct {
	Profile domain.DonorProfile

	// Beneficiaire is the person the donation is made in the name of.
	// Required for the well form, ignored elsewhere when empty.
	Beneficiaire string

	Amount      int64
	ProductName string
	Mode        domain.CheckoutMode
	FormType    domain.FormType
}

// Validate returns the per-field failures, nil when the form is complete.
func (f DonationForm) Validate() FieldErrors {
	fieldErrs := validateIdentity(f.Profile)
	if f.FormType == domain.FormPuits && strings.TrimSpace(f.Beneficiaire) == "" {
		fieldErrs["beneficiaire"] = "Le nom du bénéficiaire (au nom de qui ?) est OBLIGATOIRE."
	}
	if len(fieldErrs) == 0 {
		return nil
	}
	return fieldErrs
}

// Intent builds the checkout request for this form. The well form suffixes
// the product name with the beneficiary so it shows up on the provider's
// dashboard and receipts.
func (f DonationForm) Intent() domain.CheckoutIntent {
	name := f.ProductName
	if f.FormType == domain.FormPuits && f.Beneficiaire != "" {
		name += " - Au nom de : " + f.Beneficiaire
	}
	formData := f.Profile.FormFields()
	if f.Beneficiaire != "" {
		formData["beneficiaire"] = f.Beneficiaire
	}
	return domain.CheckoutIntent{
		Email:       f.Profile.Email,
		Name:        f.Profile.FullName(),
		Amount:      f.Amount,
		ProductName: name,
		Mode:        f.Mode,
		FormType:    f.FormType,
		FormData:    formData,
	}
}

// Checkout validates the form and, only when it passes, requests a payment
// page. Invalid input never reaches the network: the field errors come back
// with an empty URL and a nil error.
func (f DonationForm) Checkout(ctx context.Context, origin string, requester ports.Checkout) (string, FieldErrors, error) {
	if fieldErrs := f.Validate(); len(fieldErrs) > 0 {
		return "", fieldErrs, nil
	}
	url, err := requester.Create(ctx, origin, f.Intent())
	if err != nil {
		return "", nil, Error.Wrap(err)
	}
	return url, nil, nil
}
