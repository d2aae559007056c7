package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/checkout"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/events"
	httpapi "github.com/andreasstove999/ecommerce-system/shop-service-go/internal/http"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/idempotency"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/logging"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/notify"
	"github.com/andreasstove999/ecommerce-system/shop-service-go/internal/order"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("shop-service stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.RunMigrations(cfg.DatabaseDSN, logger); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer pool.Close()

	products := catalog.NewPostgresRepository(pool)
	cartRepo := cart.NewPostgresRepository(pool)
	orderRepo := order.NewPostgresRepository(pool)

	notifier := notify.New(notify.Config{
		Timeout:        cfg.NotifyTimeout,
		TelegramToken:  cfg.TelegramBotToken,
		TelegramChatID: cfg.TelegramChatID,
		TelegramAPIURL: cfg.TelegramAPIURL,
		SendGridAPIKey: cfg.SendGridAPIKey,
		SendGridHost:   cfg.SendGridHost,
		EmailSender:    cfg.EmailSender,
		AdminEmails:    cfg.AdminEmails,
	}, logger)

	publisher, closePublisher, err := newPublisher(cfg, pool, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	routerCfg := httpapi.RouterConfig{
		JWTSecret:        cfg.JWTSecret,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
	}
	if cfg.RedisURL != "" {
		client, err := idempotency.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		routerCfg.Idempotency = idempotency.NewRedisStore(client, cfg.IdempotencyTTL)
		logger.Info("checkout idempotency enabled")
	}

	checkoutSvc := checkout.NewService(cartRepo, orderRepo, notifier, publisher, logger)
	handler := httpapi.NewHandler(cart.NewService(cartRepo, products), checkoutSvc, orderRepo, logger, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, routerCfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
		// checkout may wait on the notification timeout after commit
		WriteTimeout: cfg.RequestTimeout + cfg.NotifyTimeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("shop-service listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown error", zap.Error(err))
	}
	return nil
}

type orderEventsPublisher interface {
	checkout.EventPublisher
	Close() error
}

func newPublisher(cfg config.Config, store events.Store, logger *zap.Logger) (orderEventsPublisher, func(), error) {
	if cfg.RabbitMQURL == "" {
		logger.Info("RABBITMQ_URL not set, domain events disabled")
		return events.NoopPublisher{}, func() {}, nil
	}

	conn, err := events.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	p, err := events.NewPublisher(conn, events.NewSequenceRepository(store))
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("create publisher: %w", err)
	}
	return p, func() {
		if err := p.Close(); err != nil {
			logger.Warn("publisher close error", zap.Error(err))
		}
		_ = conn.Close()
	}, nil
}
