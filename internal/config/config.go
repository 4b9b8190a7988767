package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// Storage
	PostgresURL string `envconfig:"POSTGRES_URL" required:"true"`
	RedisAddr   string `envconfig:"REDIS_ADDR" required:"true"`

	// Network
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Stripe
	StripeSecretKey     string        `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret string        `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	CheckoutSuccessURL  string        `envconfig:"CHECKOUT_SUCCESS_URL" required:"true"`
	CheckoutCancelURL   string        `envconfig:"CHECKOUT_CANCEL_URL" required:"true"`
	GatewayTimeout      time.Duration `envconfig:"GATEWAY_TIMEOUT" default:"10s"`

	// Auth
	JWTSecret            string `envconfig:"JWT_SECRET" required:"true"`
	ReserveRatePerMinute int    `envconfig:"RESERVE_RATE_PER_MINUTE" default:"30"`

	// Tracing, empty disables export
	TraceEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// Background work
	CompletionInterval time.Duration `envconfig:"COMPLETION_INTERVAL" default:"1m"`
	OutboxPollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"100ms"`
}

// Load reads an optional .env file, then the environment.
func Load(envFiles ...string) (App, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return App{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var c App
	if err := envconfig.Process("", &c); err != nil {
		return App{}, err
	}
	if err := c.validate(); err != nil {
		return App{}, err
	}
	return c, nil
}

func (c App) validate() error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"COMPLETION_INTERVAL", c.CompletionInterval},
		{"OUTBOX_POLL_INTERVAL", c.OutboxPollInterval},
		{"GATEWAY_TIMEOUT", c.GatewayTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.ReserveRatePerMinute <= 0 {
		return fmt.Errorf("RESERVE_RATE_PER_MINUTE must be positive, got %d", c.ReserveRatePerMinute)
	}
	return nil
}
