package notify

import (
	"embed"
	"fmt"
	htmltemplate "html/template"
	"sort"
	"strings"

	"innocents/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))

// SponsorshipAmount is the fixed monthly sponsorship commitment shown in
// the mandate summary.
const SponsorshipAmount = "50€ / mois"

// MandateSubject is the subject line of a new-mandate notification.
func MandateSubject(p domain.DonorProfile) string {
	return fmt.Sprintf("[PARRAINAGE SEPA] Nouveau mandat - %s %s", p.Prenom, p.Nom)
}

type mandateData struct {
	Profile domain.DonorProfile
	IBAN    string
	BIC     string
	Amount  string
}

// RenderMandate renders the HTML summary accompanying a signed mandate.
func RenderMandate(p domain.DonorProfile, bank domain.BankMandateDetails) (string, error) {
	var sb strings.Builder
	err := templates.ExecuteTemplate(&sb, "mandate.html", mandateData{
		Profile: p,
		IBAN:    bank.IBAN,
		BIC:     bank.BIC,
		Amount:  SponsorshipAmount,
	})
	if err != nil {
		return "", Error.Wrap(err)
	}
	return sb.String(), nil
}

// PaymentSubject is the subject line of a confirmed-payment notification.
func PaymentSubject(evt domain.PaymentEvent) string {
	return fmt.Sprintf("[PAIEMENT] Confirmation %s - %s", evt.FormType, evt.CustomerEmail)
}

type paymentField struct {
	Key   string
	Value string
}

type paymentData struct {
	FormType  domain.FormType
	SessionID string
	Email     string
	Amount    string
	Status    string
	Fields    []paymentField
}

// RenderPayment renders the HTML summary of a completed checkout. FormData
// rows are sorted by key so the output is stable.
func RenderPayment(evt domain.PaymentEvent) (string, error) {
	fields := make([]paymentField, 0, len(evt.FormData))
	for k, v := range evt.FormData {
		fields = append(fields, paymentField{Key: k, Value: v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })

	var sb strings.Builder
	err := templates.ExecuteTemplate(&sb, "payment.html", paymentData{
		FormType:  evt.FormType,
		SessionID: evt.SessionID,
		Email:     evt.CustomerEmail,
		Amount:    fmt.Sprintf("%.2f €", float64(evt.AmountTotal)/100),
		Status:    evt.PaymentStatus,
		Fields:    fields,
	})
	if err != nil {
		return "", Error.Wrap(err)
	}
	return sb.String(), nil
}
