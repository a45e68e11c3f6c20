package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Config holds the application configuration, loaded from environment
// variables (optionally seeded from .env by the caller).
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        string `env:"PORT" envDefault:"8080"`
	Debug       bool   `env:"DEBUG" envDefault:"false"`

	// DefaultRegion is the ISO region used to normalize numbers that
	// arrive without a country prefix.
	DefaultRegion string `env:"DEFAULT_REGION" envDefault:"US"`

	// PublicURL is the externally visible base URL of this service, as
	// configured in the webhook. Required for signature validation.
	PublicURL string `env:"PUBLIC_URL"`

	Twilio struct {
		AccountSID   string `env:"TWILIO_ACCOUNT_SID"`
		APIKeySID    string `env:"TWILIO_API_KEY_SID"`
		APIKeySecret string `env:"TWILIO_API_KEY_SECRET"`
		// AuthToken enables webhook signature validation when set.
		AuthToken string `env:"TWILIO_AUTH_TOKEN"`
		// ServerNumber is the number messages are sent from.
		ServerNumber string `env:"SERVER_NUMBER"`
		// ClientNumber receives the startup notification.
		ClientNumber string `env:"CLIENT_NUMBER"`
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// OutboundEnabled reports whether the Twilio credentials needed for sending
// messages are present.
func (c *Config) OutboundEnabled() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.APIKeySID != "" && c.Twilio.APIKeySecret != ""
}
