package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string
	PubNubChannel      string

	// Ledger configuration
	AdminAccount     string
	TreasuryAccount  string
	CommissionRate   decimal.Decimal
	RequireFacePrice bool

	// Payment configuration
	PaymentAsset       string
	PaymentAssetName   string
	TokenOperator      string
	BreakerMaxRequests uint32
	BreakerTimeout     time.Duration

	// Event delivery
	EventBuffer int

	// Security
	RateLimitPerMinute int

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "festival-ledger"),
		PubNubChannel:      getEnv("PUBNUB_CHANNEL", "ledger-events"),

		// Ledger
		AdminAccount:     getEnv("ADMIN_ACCOUNT", ""),
		TreasuryAccount:  getEnv("TREASURY_ACCOUNT", "treasury"),
		CommissionRate:   getEnvAsDecimal("COMMISSION_RATE", "0.10"),
		RequireFacePrice: getEnvAsBool("REQUIRE_FACE_PRICE", false),

		// Payment
		PaymentAsset:       getEnv("PAYMENT_ASSET", "native"),
		PaymentAssetName:   getEnv("PAYMENT_ASSET_NAME", "FEST"),
		TokenOperator:      getEnv("TOKEN_OPERATOR", "festival-ledger"),
		BreakerMaxRequests: uint32(getEnvAsInt("BREAKER_MAX_REQUESTS", 5)),
		BreakerTimeout:     getEnvAsDuration("BREAKER_TIMEOUT", "30s"),

		// Events
		EventBuffer: getEnvAsInt("EVENT_BUFFER", 1024),

		// Security
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsDecimal(key string, defaultValue string) decimal.Decimal {
	valueStr := getEnv(key, defaultValue)
	if value, err := decimal.NewFromString(valueStr); err == nil {
		return value
	}
	return decimal.RequireFromString(defaultValue)
}
