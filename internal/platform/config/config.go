package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	TokenTTL      time.Duration
	VerifyBaseURL string

	Registry Registry
	Redis    Redis
	Kafka    Kafka
}

// Registry configures the ledger-facing registry client. It is passed
// explicitly into constructors; nothing reads it from ambient state.
type Registry struct {
	Backend         string // "node", "postgres", or "memory"
	Endpoint        string
	SignerKey       string
	ContractAddress string
	DatabaseURL     string
	CallTimeout     time.Duration
	MaxRetries      int
	VerifyCacheTTL  time.Duration
}

// Redis configures the optional verify read cache backend.
type Redis struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit event publisher.
type Kafka struct {
	Brokers    string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("DOCSEAL_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	verifyBaseURL := os.Getenv("VERIFY_BASE_URL")
	if verifyBaseURL == "" {
		verifyBaseURL = "http://localhost:8080"
	}

	backend := os.Getenv("LEDGER_BACKEND")
	if backend == "" {
		backend = "memory"
	}

	auditTopic := os.Getenv("AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "docseal.registry.audit"
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		TokenTTL:      durationFromEnv("TOKEN_TTL", 15*time.Minute),
		VerifyBaseURL: verifyBaseURL,
		Registry: Registry{
			Backend:         backend,
			Endpoint:        os.Getenv("LEDGER_ENDPOINT"),
			SignerKey:       os.Getenv("LEDGER_SIGNER_KEY"),
			ContractAddress: os.Getenv("LEDGER_CONTRACT_ADDRESS"),
			DatabaseURL:     os.Getenv("DATABASE_URL"),
			CallTimeout:     durationFromEnv("LEDGER_CALL_TIMEOUT", 10*time.Second),
			MaxRetries:      intFromEnv("LEDGER_MAX_RETRIES", 3),
			VerifyCacheTTL:  durationFromEnv("VERIFY_CACHE_TTL", 30*time.Second),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  durationFromEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationFromEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationFromEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: auditTopic,
		},
	}
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

func intFromEnv(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}
