package config

import (
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	// Server
	HTTPAddr       string
	AllowedOrigins []string

	// Storage
	DatabaseURL string
	RedisAddr   string
	RedisPass   string

	// RabbitMQ
	RabbitUser string
	RabbitPass string
	RabbitHost string
	RabbitPort string

	// Stripe
	StripeAPIKey        string
	StripeWebhookSecret string

	// PayPal
	PayPalClientID      string
	PayPalClientSecret  string
	PayPalBaseURL       string
	PayPalWebhookID     string
	PayPalWebhookSecret string

	// Shippo
	ShippoAPIKey        string
	ShippoWebhookSecret string
	ShippoWebhookToken  string

	// Ship-from origin printed on every label
	ShipFromName    string
	ShipFromStreet1 string
	ShipFromCity    string
	ShipFromState   string
	ShipFromZip     string
	ShipFromCountry string

	// SMTP
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// Checkout redirect targets
	CheckoutSuccessURL string
	CheckoutCancelURL  string

	// Email dispatcher
	WorkerToken   string
	DispatchLimit int

	// Per-product price overrides in cents, from PRICE_CENTS_<KEY>.
	PriceOverrides map[string]int
}

// Load reads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASS", ""),

		RabbitUser: getEnv("RABBITMQ_USER", "guest"),
		RabbitPass: getEnv("RABBITMQ_PASS", "guest"),
		RabbitHost: getEnv("RABBITMQ_HOST", "localhost"),
		RabbitPort: getEnv("RABBITMQ_PORT", "5672"),

		StripeAPIKey:        getEnv("STRIPE_API_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		PayPalClientID:      getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret:  getEnv("PAYPAL_CLIENT_SECRET", ""),
		PayPalBaseURL:       getEnv("PAYPAL_BASE_URL", "https://api-m.paypal.com"),
		PayPalWebhookID:     getEnv("PAYPAL_WEBHOOK_ID", ""),
		PayPalWebhookSecret: getEnv("PAYPAL_WEBHOOK_SECRET", ""),

		ShippoAPIKey:        getEnv("SHIPPO_API_KEY", ""),
		ShippoWebhookSecret: getEnv("SHIPPO_WEBHOOK_SECRET", ""),
		ShippoWebhookToken:  getEnv("SHIPPO_WEBHOOK_TOKEN", ""),

		ShipFromName:    getEnv("SHIP_FROM_NAME", "BeatVault Fulfillment"),
		ShipFromStreet1: getEnv("SHIP_FROM_STREET1", ""),
		ShipFromCity:    getEnv("SHIP_FROM_CITY", ""),
		ShipFromState:   getEnv("SHIP_FROM_STATE", ""),
		ShipFromZip:     getEnv("SHIP_FROM_ZIP", ""),
		ShipFromCountry: getEnv("SHIP_FROM_COUNTRY", "US"),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		MailFrom: getEnv("MAIL_FROM", "no-reply@beatvault.app"),

		CheckoutSuccessURL: getEnv("CHECKOUT_SUCCESS_URL", "https://beatvault.app/thanks"),
		CheckoutCancelURL:  getEnv("CHECKOUT_CANCEL_URL", "https://beatvault.app/checkout"),

		WorkerToken:   getEnv("EMAIL_WORKER_TOKEN", ""),
		DispatchLimit: getEnvInt("EMAIL_DISPATCH_LIMIT", 25),

		PriceOverrides: priceOverrides(),
	}
}

// priceOverrides collects PRICE_CENTS_<KEY>=<cents> vars. Malformed or
// non-positive values are ignored, the compiled-in price wins.
func priceOverrides() map[string]int {
	out := map[string]int{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "PRICE_CENTS_") {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, "PRICE_CENTS_"))
		cents, err := strconv.Atoi(value)
		if err != nil || cents <= 0 {
			continue
		}
		out[key] = cents
	}
	return out
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return fallback
}
