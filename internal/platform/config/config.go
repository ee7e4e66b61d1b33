package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	derrors "promptschola/pkg/domainerrors"
)

// Config captures everything the server reads from the environment. Loaded
// once at startup and treated as immutable.
type Config struct {
	Addr string

	// DatabaseURL points at the Postgres instance holding entitlements and
	// analytics events.
	DatabaseURL string

	// RedisURL enables the Redis tier cache when set; empty falls back to the
	// in-process cache.
	RedisURL string

	// JWTVerificationKey verifies bearer tokens issued by the identity
	// provider.
	JWTVerificationKey string

	// LLM provider.
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Billing provider.
	BillingAPIKey        string
	BillingWebhookSecret string
	BillingPriceID       string
	PublicBaseURL        string

	TierCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:                 envOr("SCHOLA_ADDR", ":8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		JWTVerificationKey:   os.Getenv("JWT_VERIFICATION_KEY"),
		LLMBaseURL:           envOr("LLM_BASE_URL", "https://api.deepseek.com"),
		LLMAPIKey:            os.Getenv("LLM_API_KEY"),
		LLMModel:             envOr("LLM_MODEL", "deepseek-chat"),
		BillingAPIKey:        os.Getenv("BILLING_API_KEY"),
		BillingWebhookSecret: os.Getenv("BILLING_WEBHOOK_SECRET"),
		BillingPriceID:       os.Getenv("BILLING_PRICE_ID"),
		PublicBaseURL:        envOr("PUBLIC_BASE_URL", "http://localhost:3000"),
		TierCacheTTL:         envDuration("TIER_CACHE_TTL", 2*time.Minute),
	}
}

// Validate reports missing required credentials. This is the one hard
// configuration failure; everything else degrades at request time.
func (c Config) Validate() error {
	missing := ""
	switch {
	case c.DatabaseURL == "":
		missing = "DATABASE_URL"
	case c.JWTVerificationKey == "":
		missing = "JWT_VERIFICATION_KEY"
	case c.LLMAPIKey == "":
		missing = "LLM_API_KEY"
	}
	if missing != "" {
		return derrors.Newf(derrors.CodeConfig, "missing required environment variable %s", missing)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare integers are read as seconds.
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	fmt.Fprintf(os.Stderr, "invalid duration for %s=%q, using default %s\n", key, v, fallback)
	return fallback
}
