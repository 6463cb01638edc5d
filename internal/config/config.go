package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	LogLevel    string
	PublicURL   string
	// APIURL is where the payment provider reaches this service.
	APIURL string

	JWTSecret string
	TokenTTL  time.Duration

	StoragePath   string
	MediaPath     string
	MaxUploadSize int64
	CatalogFile   string

	PrinterEmail string

	// Broker selects the printer notification transport: amqp, stan or none.
	Broker string

	RabbitMQ struct {
		URL             string
		Queue           string
		ChannelPoolSize int
	}

	STAN struct {
		NatsURL   string
		ClusterID string
		ClientID  string
		Subject   string
	}

	// Payment gateway. An empty APIURL runs payments in simulated mode.
	Payment struct {
		APIURL   string
		ClientID string
		APIKey   string
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (useful for local dev)
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:   getenv("SERVER_PORT", "8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		PublicURL:    getenv("PUBLIC_URL", "http://localhost:5173"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		StoragePath:  getenv("STORAGE_PATH", "./storage/books"),
		MediaPath:    getenv("MEDIA_PATH", "./storage/media"),
		CatalogFile:  os.Getenv("CATALOG_FILE"),
		PrinterEmail: getenv("PRINTER_EMAIL", "imprimeur@tchatsouvenir.com"),
		Broker:       getenv("BROKER", "none"),
	}

	cfg.APIURL = getenv("API_URL", "http://localhost:"+cfg.ServerPort)

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	var err error
	if cfg.TokenTTL, err = time.ParseDuration(getenv("TOKEN_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("TOKEN_TTL: %w", err)
	}

	maxUpload, err := getint("MAX_UPLOAD_MB", 50)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadSize = int64(maxUpload) << 20

	switch cfg.Broker {
	case "none":
	case "amqp":
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL must be set when BROKER=amqp")
		}
		cfg.RabbitMQ.Queue = getenv("RABBITMQ_QUEUE", "printer_notifications")
		if cfg.RabbitMQ.ChannelPoolSize, err = getint("CHANNEL_POOL_SIZE", 4); err != nil {
			return nil, err
		}
	case "stan":
		cfg.STAN.NatsURL = getenv("NATS_URL", "nats://localhost:4222")
		cfg.STAN.ClusterID = getenv("STAN_CLUSTER_ID", "test-cluster")
		cfg.STAN.ClientID = getenv("STAN_CLIENT_ID", "tchatsouvenir")
		cfg.STAN.Subject = getenv("STAN_SUBJECT", "printer.notifications")
	default:
		return nil, fmt.Errorf("BROKER must be one of amqp, stan, none (got %q)", cfg.Broker)
	}

	cfg.Payment.APIURL = os.Getenv("PAYMENT_GATEWAY_URL")
	if cfg.Payment.APIURL != "" {
		cfg.Payment.ClientID = os.Getenv("PAYMENT_CLIENT_ID")
		cfg.Payment.APIKey = os.Getenv("PAYMENT_API_KEY")
		if cfg.Payment.APIKey == "" {
			return nil, fmt.Errorf("PAYMENT_API_KEY must be set with PAYMENT_GATEWAY_URL")
		}
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}
