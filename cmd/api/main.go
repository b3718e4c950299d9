package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"bounty-webhooks/internal/adapters/bountyfeed"
	"bounty-webhooks/internal/adapters/storage"
	"bounty-webhooks/internal/config"
	"bounty-webhooks/internal/delivery"
	"bounty-webhooks/internal/domain/bounties"
	"bounty-webhooks/internal/domain/deliveries"
	"bounty-webhooks/internal/domain/events"
	"bounty-webhooks/internal/domain/subscribers"
	"bounty-webhooks/internal/platform/httpclient"
	"bounty-webhooks/internal/platform/logger"
	"bounty-webhooks/internal/poller"
	"bounty-webhooks/internal/router"

	"github.com/spf13/pflag"
)

// @title Bounty Webhooks API
// @version 1.0
// @description Polls the bounty API, detects lifecycle transitions and delivers signed webhooks.
// @BasePath /
func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	if err := run(cfg, log); err != nil {
		log.Error("fatal", map[string]any{"error": err})
		os.Exit(1)
	}
}

func run(cfg config.Config, log logger.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET is empty: webhooks without their own secret are signed with an empty key", nil)
	}

	backend, err := storage.Open(ctx, storage.Options{
		Driver:     cfg.StorageDriver,
		DataDir:    cfg.DataDir,
		DSN:        cfg.DBDSN,
		SQLitePath: cfg.SQLitePath,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("storage close failed", map[string]any{"error": err})
		}
	}()
	log.Info("storage ready", map[string]any{
		"driver": backend.Driver,
		"dsn":    cfg.DBDSN,
	})

	feed, err := bountyfeed.NewClient(bountyfeed.Config{
		BaseURL:   cfg.BountyAPIURL,
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.AppName,
	})
	if err != nil {
		return err
	}

	subsSvc := subscribers.NewService(backend.Subscribers)
	deliveryLog := deliveries.NewLog(deliveries.MaxEntries)

	webhookClient := httpclient.New(cfg.DeliveryTimeout)
	webhookClient.UserAgent = cfg.AppName
	engine := delivery.New(delivery.Options{
		Client: webhookClient,
		Signer: delivery.NewSigner(cfg.WebhookSecret),
		Log:    deliveryLog,
		Logger: log.With(map[string]any{"component": "delivery"}),
	})

	p := poller.New(poller.Options{
		Feed:        feed,
		Snapshots:   bounties.NewStore(),
		Log:         deliveryLog,
		Subscribers: subsSvc,
		Deliverer:   engine,
		State:       backend.State,
		Events:      events.NewFactory(),
		Logger:      log,
		Concurrency: cfg.DeliveryConcurrency,
	})
	if err := p.Restore(ctx); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	h := router.NewRouter(router.Options{
		Logger:        log.With(map[string]any{"component": "http"}),
		Subscribers:   subsSvc,
		Tester:        engine,
		Deliveries:    deliveryLog,
		Poller:        p,
		AdminAPIKey:   cfg.AdminAPIKey,
		StorageDriver: backend.Driver,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.DeliveryTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx, cfg.PollInterval)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{
			"addr":          srv.Addr,
			"bounty_api":    cfg.BountyAPIURL,
			"poll_interval": cfg.PollInterval.String(),
			"admin_api_key": cfg.AdminAPIKey,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down", nil)
	case err := <-serveErr:
		runErr = fmt.Errorf("http server: %w", err)
		cancel()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", map[string]any{"error": err})
	}

	// el ciclo en curso termina antes del flush final
	wg.Wait()
	if err := p.FlushIdle(shutdownCtx); err != nil {
		log.Error("final flush failed", map[string]any{"error": err})
	}

	log.Info("stopped", nil)
	return runErr
}
