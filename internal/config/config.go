package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the api and worker binaries need.
type Config struct {
	Env      string
	Port     string
	RunLocal bool

	AWSRegion        string
	AWSEndpoint      string
	PendingTable     string
	OrdersTable      string
	PaymentLogsTable string
	CatalogTable     string
	CartsTable       string
	SettingsTable    string
	AlertsQueueURL   string

	GatewayBaseURL       string
	GatewayKeyID         string
	GatewayKeySecret     string
	GatewayWebhookSecret string
	GatewayTimeout       time.Duration
	Currency             string

	DefaultFreeDeliveryMin int64
	DefaultFlatDelivery    int64

	JWTSecret string

	MetricsEnabled   bool
	MetricsNamespace string
	OrderNodeID      int64
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		RunLocal: getBool("RUN_LOCAL", false),

		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		AWSEndpoint:      os.Getenv("AWS_ENDPOINT_OVERRIDE"),
		PendingTable:     getEnv("PENDING_PAYMENTS_TABLE", "pending_payments"),
		OrdersTable:      getEnv("ORDERS_TABLE", "orders"),
		PaymentLogsTable: getEnv("PAYMENT_LOGS_TABLE", "payment_logs"),
		CatalogTable:     getEnv("CATALOG_TABLE", "catalog"),
		CartsTable:       getEnv("CARTS_TABLE", "carts"),
		SettingsTable:    getEnv("SETTINGS_TABLE", "settings"),
		AlertsQueueURL:   os.Getenv("ALERTS_QUEUE_URL"),

		GatewayBaseURL:       getEnv("GATEWAY_BASE_URL", "https://api.razorpay.com"),
		GatewayKeyID:         os.Getenv("GATEWAY_KEY_ID"),
		GatewayKeySecret:     os.Getenv("GATEWAY_KEY_SECRET"),
		GatewayWebhookSecret: os.Getenv("GATEWAY_WEBHOOK_SECRET"),
		Currency:             strings.ToUpper(getEnv("CURRENCY", "INR")),

		JWTSecret: os.Getenv("JWT_SECRET"),

		MetricsEnabled:   getBool("METRICS_ENABLED", false),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "NurseryCheckout"),
	}

	var err error
	if cfg.GatewayTimeout, err = time.ParseDuration(getEnv("GATEWAY_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_TIMEOUT: %w", err)
	}
	if cfg.DefaultFreeDeliveryMin, err = getInt("DEFAULT_FREE_DELIVERY_MIN", 99900); err != nil {
		return nil, err
	}
	if cfg.DefaultFlatDelivery, err = getInt("DEFAULT_FLAT_DELIVERY", 4900); err != nil {
		return nil, err
	}
	if cfg.OrderNodeID, err = getInt("ORDER_NODE_ID", -1); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.GatewayKeyID == "" {
		missing = append(missing, "GATEWAY_KEY_ID")
	}
	if c.GatewayKeySecret == "" {
		missing = append(missing, "GATEWAY_KEY_SECRET")
	}
	if c.GatewayWebhookSecret == "" {
		missing = append(missing, "GATEWAY_WEBHOOK_SECRET")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.DefaultFreeDeliveryMin < 0 || c.DefaultFlatDelivery < 0 {
		return fmt.Errorf("delivery defaults must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func getInt(key string, fallback int64) (int64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
