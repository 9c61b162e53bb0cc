package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the server reads from the environment. Vendor
// credentials are optional: a missing credential disables the matching
// feature instead of refusing to start.
type Config struct {
	Env        string
	ListenAddr string

	// PublicURL is where the payment provider redirects donors back to
	// when the request carries no Origin header.
	PublicURL string

	StripeSecretKey     string
	StripeWebhookSecret string
	BrevoAPIKey         string
	N8NBaseURL          string
	AddressAPIURL       string

	MailSenderName     string
	MailSenderEmail    string
	MailRecipientEmail string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads the environment, layering a local .env file underneath when
// one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:        getenv("APP_ENV", "development"),
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),
		PublicURL:  getenv("PUBLIC_URL", "http://localhost:3000"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		BrevoAPIKey:         os.Getenv("BREVO_API_KEY"),
		N8NBaseURL:          os.Getenv("N8N_BASE_URL"),
		AddressAPIURL:       os.Getenv("ADDRESS_API_URL"),

		MailSenderName:     os.Getenv("MAIL_SENDER_NAME"),
		MailSenderEmail:    os.Getenv("MAIL_SENDER_EMAIL"),
		MailRecipientEmail: os.Getenv("MAIL_RECIPIENT_EMAIL"),
	}
}
