package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port        string
	DatabaseURL string

	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal

	ProductCacheTTL time.Duration

	KafkaBrokers       []string
	OutboxPollInterval time.Duration

	NotifyWebhookURL string
	NotifyTimeout    time.Duration
}

func Read() (Config, error) {
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if db == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}

	taxRate, err := decimal.NewFromString(getenv("TAX_RATE", "0.08"))
	if err != nil {
		return Config{}, err
	}

	threshold, err := decimal.NewFromString(getenv("FREE_SHIPPING_THRESHOLD", "500"))
	if err != nil {
		return Config{}, err
	}

	fee, err := decimal.NewFromString(getenv("SHIPPING_FEE", "25"))
	if err != nil {
		return Config{}, err
	}

	cacheTTLSec, _ := strconv.Atoi(getenv("PRODUCT_CACHE_TTL_SECONDS", "60"))
	outboxPollMS, _ := strconv.Atoi(getenv("OUTBOX_POLL_MS", "1000"))
	notifyTimeoutMS, _ := strconv.Atoi(getenv("NOTIFY_TIMEOUT_MS", "3000"))

	var brokers []string
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Config{
		Port:                  getenv("PORT", "8080"),
		DatabaseURL:           db,
		TaxRate:               taxRate,
		FreeShippingThreshold: threshold,
		ShippingFee:           fee,
		ProductCacheTTL:       time.Duration(cacheTTLSec) * time.Second,
		KafkaBrokers:          brokers,
		OutboxPollInterval:    time.Duration(outboxPollMS) * time.Millisecond,
		NotifyWebhookURL:      strings.TrimSpace(os.Getenv("NOTIFY_WEBHOOK_URL")),
		NotifyTimeout:         time.Duration(notifyTimeoutMS) * time.Millisecond,
	}, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
