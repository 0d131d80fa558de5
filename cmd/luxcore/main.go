package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/luxcore/internal/cache"
	"github.com/nikolayk812/luxcore/internal/config"
	"github.com/nikolayk812/luxcore/internal/notify"
	"github.com/nikolayk812/luxcore/internal/outbox"
	"github.com/nikolayk812/luxcore/internal/port"
	"github.com/nikolayk812/luxcore/internal/repository"
	"github.com/nikolayk812/luxcore/internal/server"
	"github.com/nikolayk812/luxcore/internal/service"
	log "github.com/sirupsen/logrus"
	"golang.org/x/text/currency"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)

	if err := run(); err != nil {
		log.WithError(err).Fatal("service stopped")
	}
}

func run() error {
	cfg, err := config.Read()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		return err
	}

	catalogRepo := repository.NewCatalog(pool)
	orderRepo := repository.NewOrder(pool)
	couponRepo := repository.NewCoupon(pool)
	loyaltyRepo := repository.NewLoyalty(pool)
	txRunner := repository.NewTxRunner(pool)

	var notifier port.Notifier
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhook(cfg.NotifyWebhookURL, cfg.NotifyTimeout)
	}

	pricingCfg := service.PricingConfig{
		TaxRate:               cfg.TaxRate,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		ShippingFee:           cfg.ShippingFee,
		Currency:              currency.USD,
	}

	checkout, err := service.NewCheckout(pricingCfg, catalogRepo, orderRepo, couponRepo, loyaltyRepo, txRunner, notifier)
	if err != nil {
		return err
	}

	catalogCache := cache.NewCatalogCache(catalogRepo, cfg.ProductCacheTTL)

	if len(cfg.KafkaBrokers) > 0 {
		relay := outbox.NewRelay(pool, cfg.KafkaBrokers, cfg.OutboxPollInterval)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.WithError(err).Error("outbox relay stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(checkout, catalogCache).Router(),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("server shutdown failed")
		}
	}()

	log.WithField("port", cfg.Port).Info("checkout service starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
