package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Messaging / cache
	RabbitURL string
	RedisURL  string

	// Inventory
	ReservationTTL     time.Duration
	PaymentTimeout     time.Duration
	SweepInterval      time.Duration
	IdempotencyLockTTL time.Duration
	ResaleOnCancel     bool

	// Points
	EventCreationCost int64
	PointPrice        int64

	TicketSigningKey string

	// Payment gateway
	PaymentGateway         string
	PaymentGatewayURL      string
	PaymentCurrency        string
	MockPaymentSuccessRate float64
	MockPaymentLatency     time.Duration
}

// Load reads the configuration from the environment. Values from envFile (or
// .env when empty) are loaded first without overriding the real environment.
func Load(envFile ...string) *Config {
	_ = godotenv.Load(envFile...)

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "ticketing"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RabbitURL: getEnv("RABBITMQ_URL", ""),
		RedisURL:  getEnv("REDIS_URL", ""),

		ReservationTTL:     getEnvDuration("RESERVATION_TTL", 45*time.Second),
		PaymentTimeout:     getEnvDuration("PAYMENT_TIMEOUT", 30*time.Second),
		SweepInterval:      getEnvDuration("SWEEP_INTERVAL", 10*time.Second),
		IdempotencyLockTTL: getEnvDuration("IDEMPOTENCY_LOCK_TTL", time.Minute),
		ResaleOnCancel:     getEnvBool("RESALE_ON_CANCEL", true),

		EventCreationCost: getEnvInt("EVENT_CREATION_COST", 10),
		PointPrice:        getEnvInt("POINT_PRICE", 100),

		TicketSigningKey: getEnv("TICKET_SIGNING_KEY", "change-me"),

		PaymentGateway:         getEnv("PAYMENT_GATEWAY", "mock"),
		PaymentGatewayURL:      getEnv("PAYMENT_GATEWAY_URL", ""),
		PaymentCurrency:        getEnv("PAYMENT_CURRENCY", "USD"),
		MockPaymentSuccessRate: getEnvFloat("MOCK_PAYMENT_SUCCESS_RATE", 0.95),
		MockPaymentLatency:     getEnvDuration("MOCK_PAYMENT_LATENCY", 200*time.Millisecond),
	}

	// A reservation must outlive the gateway call it protects.
	if cfg.ReservationTTL <= cfg.PaymentTimeout {
		cfg.ReservationTTL = cfg.PaymentTimeout + 15*time.Second
	}

	return cfg
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
