// Package config loads application configuration from environment
// variables.  Required variables are enforced at startup; a missing
// value is a fatal error so misconfiguration surfaces immediately
// instead of at the first request.
package config

import (
	"log"
	"os"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.
type Config struct {
	Env                string // application environment (dev/test/prod)
	Port               string // HTTP port to listen on
	DBUser             string // database username
	DBPass             string // database password (optional)
	DBHost             string // database host address
	DBPort             string // database port number
	DBName             string // database name
	JWTSecret          string // secret used to verify access tokens
	WebhookSecret      string // shared HMAC secret for billing webhooks
	BillingProviderURL string // base URL of the billing provider API
	BillingProviderKey string // API key for the billing provider
	AMQPURL            string // message broker URL (empty disables events)
}

// Load reads configuration values from environment variables and
// returns a Config.  Required variables are enforced by must() and
// missing values cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:                must("APP_ENV"),
		Port:               must("APP_PORT"),
		DBUser:             must("DB_USER"),
		DBPass:             os.Getenv("DB_PASS"),
		DBHost:             must("DB_HOST"),
		DBPort:             must("DB_PORT"),
		DBName:             must("DB_NAME"),
		JWTSecret:          must("JWT_SECRET"),
		WebhookSecret:      must("WEBHOOK_SECRET"),
		BillingProviderURL: must("BILLING_PROVIDER_URL"),
		BillingProviderKey: must("BILLING_PROVIDER_KEY"),
		AMQPURL:            os.Getenv("AMQP_URL"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
