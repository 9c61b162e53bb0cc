package intake_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
	"go.uber.org/zap/zaptest"

	"innocents/internal/domain"
	"innocents/internal/intake"
)

const (
	validIBAN = "FR76 3000 6000 0112 3456 7890 189"
	validBIC  = "BNPAFRPP"
)

func validProfile() domain.DonorProfile {
	return domain.DonorProfile{
		Nom:        "Dupont",
		Prenom:     "Jean",
		Adresse:    "4 Rue du Docteur Schweitzer",
		CodePostal: "91430",
		Ville:      "Igny",
		Email:      "jean.dupont@example.org",
		Telephone:  "06 12 34 56 78",
	}
}

func signaturePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.Black)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeCheckout struct {
	origin string
	intent domain.CheckoutIntent
	url    string
	err    error
	calls  int
}

func (f *fakeCheckout) Create(_ context.Context, origin string, intent domain.CheckoutIntent) (string, error) {
	f.calls++
	f.origin = origin
	f.intent = intent
	return f.url, f.err
}

type fakeNotifier struct {
	sent []domain.Notification
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, n domain.Notification) (json.RawMessage, error) {
	f.sent = append(f.sent, n)
	return json.RawMessage(`{}`), f.err
}

type fakeSearcher struct {
	queries     []string
	suggestions []domain.AddressSuggestion
}

func (f *fakeSearcher) Search(_ context.Context, query string) iter.Seq[domain.AddressSuggestion] {
	f.queries = append(f.queries, query)
	return func(yield func(domain.AddressSuggestion) bool) {
		for _, s := range f.suggestions {
			if !yield(s) {
				return
			}
		}
	}
}

func startedSession(t *testing.T, deps intake.Deps) *intake.Session {
	t.Helper()
	s := intake.NewSession(zaptest.NewLogger(t), deps)
	fieldErrs, err := s.SubmitIdentity(validProfile())
	require.NoError(t, err)
	require.Empty(t, fieldErrs)
	return s
}

func TestSubmitIdentityRejectsIncompleteProfile(t *testing.T) {
	s := intake.NewSession(zaptest.NewLogger(t), intake.Deps{})

	fieldErrs, err := s.SubmitIdentity(domain.DonorProfile{
		Prenom:    "Jean",
		Email:     "not-an-email",
		Telephone: "12345",
	})
	require.NoError(t, err)
	require.Equal(t, "Le nom est requis", fieldErrs["nom"])
	require.Equal(t, "L'adresse est requise", fieldErrs["adresse"])
	require.Equal(t, "Adresse email invalide", fieldErrs["email"])
	require.Equal(t, "Numéro invalide (ex: 06 12 34 56 78)", fieldErrs["telephone"])
	require.NotContains(t, fieldErrs, "prenom")
	require.IsType(t, intake.Identity{}, s.State())

	// The failed input is preserved for the retry.
	require.Equal(t, "Jean", s.Profile().Prenom)
}

func TestSubmitIdentityAdvancesToPaymentChoice(t *testing.T) {
	s := startedSession(t, intake.Deps{})
	require.IsType(t, intake.PaymentChoice{}, s.State())
	require.Empty(t, s.FieldErrors())
}

func TestChooseCardRequestsMonthlySubscription(t *testing.T) {
	checkout := &fakeCheckout{url: "https://pay.example.org/cs_123"}
	s := startedSession(t, intake.Deps{Checkout: checkout, Origin: "https://innocentsfrance.org"})

	require.NoError(t, s.ChooseCard(context.Background()))

	st, ok := s.State().(intake.CardRedirect)
	require.True(t, ok)
	require.Equal(t, "https://pay.example.org/cs_123", st.URL)

	require.Equal(t, "https://innocentsfrance.org", checkout.origin)
	require.EqualValues(t, 5000, checkout.intent.Amount)
	require.Equal(t, "Parrainage Orphelin (Mensuel)", checkout.intent.ProductName)
	require.Equal(t, domain.ModeSubscription, checkout.intent.Mode)
	require.Equal(t, domain.FormParrainage, checkout.intent.FormType)
	require.Equal(t, "jean.dupont@example.org", checkout.intent.Email)
	require.Equal(t, "stripe", checkout.intent.FormData["paymentMethod"])
	require.Equal(t, "Dupont", checkout.intent.FormData["nom"])
	require.NotContains(t, checkout.intent.FormData, "email")
}

func TestChooseCardFailureStaysOnChoice(t *testing.T) {
	checkout := &fakeCheckout{err: errs.New("provider down")}
	s := startedSession(t, intake.Deps{Checkout: checkout})

	require.Error(t, s.ChooseCard(context.Background()))
	require.IsType(t, intake.PaymentChoice{}, s.State())

	// Another method is still available.
	require.NoError(t, s.ChooseTransfer())
}

func TestChooseTransferShowsAccountThenCompletes(t *testing.T) {
	s := startedSession(t, intake.Deps{})

	require.NoError(t, s.ChooseTransfer())
	st, ok := s.State().(intake.BankTransfer)
	require.True(t, ok)
	require.Equal(t, domain.TransferAccount(), st.Account)

	require.NoError(t, s.Acknowledge())
	require.IsType(t, intake.Done{}, s.State())
}

func TestSubmitBankDetailsValidatesBothFields(t *testing.T) {
	s := startedSession(t, intake.Deps{})
	require.NoError(t, s.ChooseDebit())

	fieldErrs, err := s.SubmitBankDetails("DE89 3704 0044 0532 0130 00", "XX")
	require.NoError(t, err)
	require.Equal(t, "Seuls les IBAN français (FR) sont acceptés pour le moment.", fieldErrs["donorIban"])
	require.Equal(t, "BIC invalide. Veuillez vérifier votre code BIC.", fieldErrs["donorBic"])

	// The raw input round-trips for correction.
	st, ok := s.State().(intake.MandateIBAN)
	require.True(t, ok)
	require.Equal(t, "DE89 3704 0044 0532 0130 00", st.IBAN)
	require.Equal(t, "XX", st.BIC)
}

func TestSubmitBankDetailsNormalizes(t *testing.T) {
	s := startedSession(t, intake.Deps{})
	require.NoError(t, s.ChooseDebit())

	fieldErrs, err := s.SubmitBankDetails("fr76 3000 6000 0112 3456 7890 189", "bnpafrpp")
	require.NoError(t, err)
	require.Empty(t, fieldErrs)

	st, ok := s.State().(intake.MandateSignature)
	require.True(t, ok)
	require.Equal(t, "FR7630006000011234567890189", st.Bank.IBAN)
	require.Equal(t, "BNPAFRPP", st.Bank.BIC)
}

func TestSignRequiresCapture(t *testing.T) {
	s := startedSession(t, intake.Deps{})
	require.NoError(t, s.ChooseDebit())
	_, err := s.SubmitBankDetails(validIBAN, validBIC)
	require.NoError(t, err)

	fieldErrs, err := s.Sign(nil)
	require.NoError(t, err)
	require.Equal(t, "La signature est requise", fieldErrs["signature"])
	require.IsType(t, intake.MandateSignature{}, s.State())
}

func TestMandateBranchEndToEnd(t *testing.T) {
	notifier := &fakeNotifier{}
	s := startedSession(t, intake.Deps{Notifier: notifier})

	require.NoError(t, s.ChooseDebit())
	fieldErrs, err := s.SubmitBankDetails(validIBAN, validBIC)
	require.NoError(t, err)
	require.Empty(t, fieldErrs)

	fieldErrs, err = s.Sign(signaturePNG(t))
	require.NoError(t, err)
	require.Empty(t, fieldErrs)

	doc := s.Document()
	require.NotNil(t, doc)
	require.Equal(t, "mandat-sepa-Dupont-Jean.pdf", doc.Filename)
	require.True(t, bytes.HasPrefix(doc.Bytes, []byte("%PDF-")))

	require.NoError(t, s.Submit(context.Background()))
	require.IsType(t, intake.Done{}, s.State())

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	require.Equal(t, "[PARRAINAGE SEPA] Nouveau mandat - Jean Dupont", sent.Subject)
	require.Contains(t, sent.HTML, "FR7630006000011234567890189")
	require.Len(t, sent.Attachments, 1)
	require.Equal(t, doc.Filename, sent.Attachments[0].Filename)
	decoded, err := base64.StdEncoding.DecodeString(sent.Attachments[0].Content)
	require.NoError(t, err)
	require.Equal(t, doc.Bytes, decoded)
}

func TestSubmitFailureKeepsPreview(t *testing.T) {
	notifier := &fakeNotifier{err: errs.New("mailer down")}
	s := startedSession(t, intake.Deps{Notifier: notifier})

	require.NoError(t, s.ChooseDebit())
	_, err := s.SubmitBankDetails(validIBAN, validBIC)
	require.NoError(t, err)
	_, err = s.Sign(signaturePNG(t))
	require.NoError(t, err)

	require.Error(t, s.Submit(context.Background()))
	require.IsType(t, intake.MandatePreview{}, s.State())

	// Retry succeeds once the mailer recovers.
	notifier.err = nil
	require.NoError(t, s.Submit(context.Background()))
	require.IsType(t, intake.Done{}, s.State())
}

func TestBackWalksTowardsStart(t *testing.T) {
	s := startedSession(t, intake.Deps{})
	require.NoError(t, s.ChooseDebit())
	_, err := s.SubmitBankDetails(validIBAN, validBIC)
	require.NoError(t, err)
	_, err = s.Sign(signaturePNG(t))
	require.NoError(t, err)

	require.NoError(t, s.Back())
	st, ok := s.State().(intake.MandateIBAN)
	require.True(t, ok)
	require.Equal(t, "FR7630006000011234567890189", st.IBAN)

	require.NoError(t, s.Back())
	require.IsType(t, intake.PaymentChoice{}, s.State())

	require.NoError(t, s.Back())
	require.IsType(t, intake.Identity{}, s.State())

	// Collected data survived the walk back.
	require.Equal(t, validProfile(), s.Profile())

	require.ErrorIs(t, s.Back(), intake.ErrInvalidTransition)
}

func TestOperationsOutsideTheirStepAreRejected(t *testing.T) {
	s := intake.NewSession(zaptest.NewLogger(t), intake.Deps{})

	require.ErrorIs(t, s.ChooseCard(context.Background()), intake.ErrInvalidTransition)
	require.ErrorIs(t, s.ChooseDebit(), intake.ErrInvalidTransition)
	require.ErrorIs(t, s.Submit(context.Background()), intake.ErrInvalidTransition)
	require.ErrorIs(t, s.Acknowledge(), intake.ErrInvalidTransition)

	_, err := s.SubmitBankDetails(validIBAN, validBIC)
	require.ErrorIs(t, err, intake.ErrInvalidTransition)
	_, err = s.Sign(signaturePNG(t))
	require.ErrorIs(t, err, intake.ErrInvalidTransition)
}

func TestTypeAddressDebouncesLookups(t *testing.T) {
	searcher := &fakeSearcher{suggestions: []domain.AddressSuggestion{
		{Label: "4 Rue du Docteur Schweitzer 91430 Igny", Name: "4 Rue du Docteur Schweitzer", Postcode: "91430", City: "Igny"},
	}}
	got := make(chan []domain.AddressSuggestion, 1)
	s := intake.NewSession(zaptest.NewLogger(t), intake.Deps{
		Addresses:     searcher,
		Debounce:      10 * time.Millisecond,
		OnSuggestions: func(sugs []domain.AddressSuggestion) { got <- sugs },
	})

	s.TypeAddress("4 Ru")
	s.TypeAddress("4 Rue du")
	s.TypeAddress("4 Rue du Docteur")

	select {
	case sugs := <-got:
		require.Len(t, sugs, 1)
	case <-time.After(time.Second):
		t.Fatal("no suggestions delivered")
	}

	// Only the last keystroke survived the quiet period.
	require.Equal(t, []string{"4 Rue du Docteur"}, searcher.queries)
	require.Len(t, s.Suggestions(), 1)
	require.Equal(t, "4 Rue du Docteur", s.Profile().Adresse)
}

func TestSelectAddressFillsAllThreeFields(t *testing.T) {
	s := intake.NewSession(zaptest.NewLogger(t), intake.Deps{})

	s.SelectAddress(domain.AddressSuggestion{
		Name:     "4 Rue du Docteur Schweitzer",
		Postcode: "91430",
		City:     "Igny",
	})

	p := s.Profile()
	require.Equal(t, "4 Rue du Docteur Schweitzer", p.Adresse)
	require.Equal(t, "91430", p.CodePostal)
	require.Equal(t, "Igny", p.Ville)
	require.Empty(t, s.Suggestions())
}

func TestCloseAbandonsEverything(t *testing.T) {
	s := startedSession(t, intake.Deps{})
	s.Close()
	require.IsType(t, intake.Closed{}, s.State())

	_, err := s.SubmitIdentity(validProfile())
	require.ErrorIs(t, err, intake.ErrInvalidTransition)
	require.ErrorIs(t, s.Back(), intake.ErrInvalidTransition)
}
