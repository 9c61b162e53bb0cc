// Package mandate renders the SEPA direct-debit mandate document from the
// collected donor and bank details. The layout is fixed and single-page;
// the generation date is the only time-varying field, so with a frozen
// clock identical inputs produce byte-identical output.
package mandate

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/zeebo/errs"

	"innocents/internal/domain"
)

// Error wraps every failure of this package.
var Error = errs.Class("mandate")

// Creditor is the fixed identity printed in the creditor block.
type Creditor struct {
	Name    string
	ICS     string // SEPA creditor identifier; placeholder until issued
	Address []string
}

// DefaultCreditor is the association's registered identity.
func DefaultCreditor() Creditor {
	return Creditor{
		Name: "Association Innocents France",
		ICS:  "FRXXXXXXXXXXXXXXXX",
		Address: []string{
			"4 RUE DU DOCTEUR SCHWEITZER",
			"91430 IGNY",
		},
	}
}

const legalText = "En signant ce formulaire de mandat, vous autorisez (A) [ASSOCIATION INNOCENTS FRANCE] " +
	"à envoyer des instructions à votre banque pour débiter votre compte, et (B) votre banque à débiter " +
	"votre compte conformément aux instructions de [ASSOCIATION INNOCENTS FRANCE]. Vous bénéficiez du " +
	"droit d'être remboursé par votre banque selon les conditions décrites dans la convention que vous " +
	"avez passée avec elle. Une demande de remboursement doit être présentée dans les 8 semaines suivant " +
	"la date de débit de votre compte pour un prélèvement autorisé."

// Document is a rendered mandate: the PDF bytes and the filename used when
// attaching it to the notification email. It lives in memory only.
type Document struct {
	Bytes    []byte
	Filename string
}

// Builder renders mandate documents for one creditor. now is injectable so
// tests can freeze the generation date.
type Builder struct {
	creditor Creditor
	now      func() time.Time
}

// NewBuilder returns a builder for the given creditor. A nil clock means
// time.Now.
func NewBuilder(creditor Creditor, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{creditor: creditor, now: now}
}

// Render produces the single-page mandate. All of profile's identity
// fields, both bank identifiers and the signature raster must be present;
// validation of their contents is the intake flow's job, not this one's.
func (b *Builder) Render(profile domain.DonorProfile, bank domain.BankMandateDetails) (*Document, error) {
	if bank.IBAN == "" || bank.BIC == "" {
		return nil, Error.New("bank details incomplete")
	}
	if len(bank.Signature) == 0 {
		return nil, Error.New("signature raster missing")
	}

	now := b.now()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Creditor block.
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(15, 15, tr("Créancier : "+b.creditor.Name))
	pdf.Text(110, 15, tr("Identifiant Créancier SEPA (ICS) : "+b.creditor.ICS))
	for i, line := range b.creditor.Address {
		pdf.Text(15, 20+float64(i)*5, tr(line))
	}

	// Title banner.
	pdf.SetFillColor(230, 230, 230)
	pdf.Rect(15, 35, 180, 20, "F")
	pdf.SetFont("Helvetica", "B", 14)
	textCentered(pdf, 105, 45, tr("MANDAT DE PRÉLÈVEMENT SEPA"))
	pdf.SetFont("Helvetica", "", 10)
	textCentered(pdf, 105, 52, tr("Référence Unique du Mandat (RUM) : À compléter par le créancier"))

	// Debtor identification box.
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, 65, 85, 40, "F")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(15, 62, tr("Identification du débiteur"))
	pdf.SetFont("Helvetica", "", 10)
	textCentered(pdf, 57, 80, tr(profile.FullName()))
	textCentered(pdf, 57, 85, tr(profile.Adresse))
	textCentered(pdf, 57, 90, tr(profile.CodePostal+" "+profile.Ville))

	// Bank identification boxes, monospaced values.
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(110, 62, tr("Identification du compte bancaire"))
	pdf.Rect(110, 68, 90, 10, "D")
	pdf.SetFont("Helvetica", "", 9)
	pdf.Text(112, 66, tr("IBAN (Identifiant international de compte)"))
	pdf.SetFont("Courier", "B", 11)
	pdf.Text(115, 75, bank.IBAN)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Text(112, 85, tr("BIC (Identifiant international de l'établissement)"))
	pdf.Rect(110, 88, 50, 10, "D")
	pdf.SetFont("Courier", "B", 11)
	pdf.Text(115, 95, bank.BIC)

	// Legal authorization paragraph.
	pdf.Rect(110, 105, 90, 60, "D")
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetXY(110, 106)
	pdf.MultiCell(88, 3.4, tr(legalText), "", "J", false)

	// Signature block: generation date plus the captured raster.
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, 120, 85, 45, "F")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Text(20, 128, tr("Date et signature :"))
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(20, 133, tr("Fait le "+now.Format("02/01/2006")))
	opt := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("signature", opt, bytes.NewReader(bank.Signature))
	pdf.ImageOptions("signature", 30, 135, 40, 20, false, opt, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, Error.Wrap(err)
	}
	return &Document{
		Bytes:    buf.Bytes(),
		Filename: fmt.Sprintf("mandat-sepa-%s-%s.pdf", profile.Nom, profile.Prenom),
	}, nil
}

// textCentered draws s with its horizontal middle at x, baseline at y.
func textCentered(pdf *fpdf.Fpdf, x, y float64, s string) {
	pdf.Text(x-pdf.GetStringWidth(s)/2, y, s)
}
