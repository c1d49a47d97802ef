package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config holds every setting the API reads from the environment.
// Values are loaded once in main and passed down explicitly.
type Config struct {
	AppEnv      string
	ServiceName string
	HTTPAddr    string
	BaseURL     string
	CORSOrigin  string
	MediaDir    string

	DBDSN     string
	JWTSecret string

	// Stripe credentials are scoped to the gateway client built from this struct.
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
}

func Load() Config {
	return Config{
		AppEnv:      getEnv("APP_ENV", "dev"),
		ServiceName: getEnv("SERVICE_NAME", "storefront"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		BaseURL:     strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		CORSOrigin:  getEnv("CORS_ORIGIN", "http://localhost:5173"),
		MediaDir:    getEnv("MEDIA_DIR", "./media"),

		DBDSN:     os.Getenv("DB_DSN_PRIMARY"),
		JWTSecret: os.Getenv("JWT_SECRET"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeCurrency:      getEnv("STRIPE_CURRENCY", "usd"),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		FromEmail:    getEnv("DEFAULT_FROM_EMAIL", "no-reply@localhost"),
	}
}

// Validate reports the first missing setting the server cannot start without.
func (c Config) Validate() error {
	switch {
	case c.DBDSN == "":
		return errors.New("DB_DSN_PRIMARY is not set")
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET is not set")
	case c.StripeSecretKey == "":
		return errors.New("STRIPE_SECRET_KEY is not set")
	case c.StripeWebhookSecret == "":
		return errors.New("STRIPE_WEBHOOK_SECRET is not set")
	}
	return nil
}

// IsProduction is true when APP_ENV is "prod" or "production".
func (c Config) IsProduction() bool {
	return c.AppEnv == "prod" || c.AppEnv == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}

	return n
}
