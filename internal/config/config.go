package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MongoURI            string
	PostgresURI         string
	RedisURI            string
	EncryptionKey       string
	StripeWebhookSecret string
	Port                string
	AllowedOrigins      []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Host                string   // Raw HOST env (e.g. https://api.calmsteps.app)
	AllowedHost         string   // Hostname only for strict host check (production only)
	Environment         string   // ENV: production, development, etc.
	TrustProxy          bool     // honour X-Forwarded-For / X-Real-IP
	AutosaveDebounce    time.Duration
	LogHashSalt         string
	LogRedaction        bool
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))
	host := getEnv("HOST", "http://localhost:8080")

	// AllowedHost is only set in production; host check is skipped in development
	var allowedHost string
	if env == "production" {
		allowedHost = bareHost(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/calmsteps")),
		PostgresURI:         getEnv("POSTGRES_URI", getEnv("DATABASE_URL", "postgres://localhost:5432/calmsteps?sslmode=disable")),
		RedisURI:            getEnv("REDIS_URI", "redis://localhost:6379/0"),
		EncryptionKey:       getEnv("ENCRYPTION_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		Host:                host,
		AllowedHost:         allowedHost,
		Environment:         env,
		TrustProxy:          isTrue(getEnv("TRUST_PROXY", "false")),
		Port:                getEnv("PORT", "8080"),
		AllowedOrigins:      allowedOrigins,
		AutosaveDebounce:    debounceFromEnv(getEnv("AUTOSAVE_DEBOUNCE_MS", "")),
		LogHashSalt:         getEnv("LOG_HASH_SALT", ""),
		LogRedaction:        !isFalse(getEnv("LOG_REDACTION_ENABLED", "true")),
	}
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// DefaultAutosaveDebounce sits in the middle of the 1-2s idle window clients use.
const DefaultAutosaveDebounce = 1500 * time.Millisecond

// debounceFromEnv parses AUTOSAVE_DEBOUNCE_MS and clamps it to 1000-2000ms.
func debounceFromEnv(v string) time.Duration {
	ms, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return DefaultAutosaveDebounce
	}
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		d = time.Second
	}
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}

func bareHost(host string) string {
	for _, prefix := range []string{"https://", "http://"} {
		host = strings.TrimPrefix(host, prefix)
	}
	if idx := strings.Index(host, "/"); idx != -1 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return strings.TrimSpace(host)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isFalse(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "off":
		return true
	}
	return false
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
