package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string
	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers []string
	JWTSecret    string

	BuyerFeeBPS  int64
	SellerFeeBPS int64

	PaystackBaseURL    string
	PaystackSecretKey  string
	FlutterwaveBaseURL string
	FlutterwaveSecret  string
	CryptoBaseURL      string
	CryptoAPIKey       string
	PaymentCallbackURL string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		HTTPAddr:     os.Getenv("HTTP_ADDR"),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: strings.Split(os.Getenv("KAFKA_BROKERS"), ","),
		JWTSecret:    os.Getenv("JWT_SECRET"),

		BuyerFeeBPS:  envInt64("BUYER_FEE_BPS", 200),
		SellerFeeBPS: envInt64("SELLER_FEE_BPS", 300),

		PaystackBaseURL:    os.Getenv("PAYSTACK_BASE_URL"),
		PaystackSecretKey:  os.Getenv("PAYSTACK_SECRET_KEY"),
		FlutterwaveBaseURL: os.Getenv("FLUTTERWAVE_BASE_URL"),
		FlutterwaveSecret:  os.Getenv("FLUTTERWAVE_SECRET_KEY"),
		CryptoBaseURL:      os.Getenv("CRYPTO_BASE_URL"),
		CryptoAPIKey:       os.Getenv("CRYPTO_API_KEY"),
		PaymentCallbackURL: os.Getenv("PAYMENT_CALLBACK_URL"),
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=escrowpay sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "supersecret"
	}
	if cfg.PaystackBaseURL == "" {
		cfg.PaystackBaseURL = "https://api.paystack.co"
	}
	if cfg.FlutterwaveBaseURL == "" {
		cfg.FlutterwaveBaseURL = "https://api.flutterwave.com/v3"
	}
	if cfg.CryptoBaseURL == "" {
		cfg.CryptoBaseURL = "https://api.commerce.coinbase.com"
	}
	if cfg.PaymentCallbackURL == "" {
		cfg.PaymentCallbackURL = "http://localhost:3000/payments/callback"
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"buyer_fee_bps", cfg.BuyerFeeBPS,
		"seller_fee_bps", cfg.SellerFeeBPS)
	return cfg
}

func envInt64(key string, def int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("invalid integer env var, using default", "key", key, "value", raw)
		return def
	}
	return v
}
