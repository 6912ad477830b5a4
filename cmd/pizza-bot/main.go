package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glebk/pizza-bot/internal/bot"
	"github.com/glebk/pizza-bot/internal/commerce"
	"github.com/glebk/pizza-bot/internal/config"
	"github.com/glebk/pizza-bot/internal/conversation"
	"github.com/glebk/pizza-bot/internal/delivery"
	"github.com/glebk/pizza-bot/internal/domain"
	"github.com/glebk/pizza-bot/internal/geocode"
	"github.com/glebk/pizza-bot/internal/httpapi"
	"github.com/glebk/pizza-bot/internal/images"
	"github.com/glebk/pizza-bot/internal/jobs"
	"github.com/glebk/pizza-bot/internal/logging"
	"github.com/glebk/pizza-bot/internal/metrics"
	"github.com/glebk/pizza-bot/internal/notify"
	"github.com/glebk/pizza-bot/internal/repository/sqlite"
	"github.com/glebk/pizza-bot/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("bot stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Initialize database
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("database initialized", "path", cfg.DatabasePath)

	// Telegram
	api, err := bot.NewAPI(cfg.TelegramToken)
	if err != nil {
		return err
	}
	messenger := bot.NewMessenger(api, cfg.MerchantToken)
	if cfg.AdminChatID != 0 {
		logger = slog.New(logging.NewAdminHandler(logger.Handler(), messenger, cfg.AdminChatID, slog.LevelError))
	}
	logger.Info("authorized on telegram", "account", api.Self.UserName)

	m := metrics.New()

	// Commerce backend with the shared access token
	tokens := commerce.NewTokenStore(commerce.AccessToken{})
	shop := commerce.New(cfg.Moltin.BaseURL, tokens,
		commerce.WithPriceBook(cfg.Moltin.PriceBookID),
		commerce.WithChannel(cfg.Moltin.Channel),
	)
	tok, err := shop.MintToken(ctx, cfg.Moltin.ClientID, cfg.Moltin.SecretKey)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}
	tokens.Set(tok)

	refresh := jobs.NewTokenRefreshJob(shop, tokens, cfg.Moltin.ClientID, cfg.Moltin.SecretKey, cfg.TokenRefreshLead, logger)
	refresh.OnRefresh(m.ObserveTokenRefresh)
	jobManager := jobs.NewJobManager(logger, refresh)
	if err := jobManager.StartAll(); err != nil {
		return fmt.Errorf("failed to start jobs: %w", err)
	}
	defer jobManager.StopAll()

	// Fulfillment
	scheduler := notify.New(messenger, logger)
	checkout := service.NewCheckoutService(
		delivery.NewResolver(shop),
		shop,
		messenger,
		sqlite.NewOrderRepository(db),
		scheduler,
		cfg.DeliveryNotifyDelay,
		logger,
	)
	checkout.OnOrder(func(order *domain.Order) {
		m.ObserveOrder(string(order.Method), order.Sum())
	})

	imageCache, err := images.New(cfg.ImagesDir, shop, sqlite.NewImageRepository(db), logger)
	if err != nil {
		return err
	}

	// Conversation
	machine := conversation.NewMachine(conversation.Dependencies{
		Messenger: messenger,
		Catalog:   shop,
		Carts:     shop,
		Images:    imageCache,
		Locator:   geocode.New(cfg.Geocoder.URL, cfg.Geocoder.APIKey),
		Checkout:  checkout,
		Logger:    logger,
	}, conversation.WithTransitionHook(func(from, to conversation.State) {
		m.ObserveTransition(from.String(), to.String())
	}))

	dispatcher := bot.NewDispatcher(machine, cfg.DispatchWorkers, cfg.ErrorBackoff, m, logger)
	telegramBot := bot.New(api, dispatcher, logger)

	errs := make(chan error, 3)
	go func() { errs <- scheduler.Run(ctx) }()
	go func() { errs <- telegramBot.Run(ctx) }()
	running := 2

	if cfg.HTTPAddr != "" {
		server := httpapi.New(map[string]httpapi.HealthCheck{
			"database": func(context.Context) error { return db.Ping() },
			"token": func(context.Context) error {
				if tokens.Token() == "" {
					return errors.New("no access token")
				}
				return nil
			},
		}, checkout, m.Handler(), logger, httpapi.WithAPIToken(cfg.HTTPAPIToken))
		go func() { errs <- server.ListenAndServe(ctx, cfg.HTTPAddr) }()
		running++
	}

	logger.Info("bot started", logging.NotifyKey, true)

	// The first component to stop takes the others down with it
	var result error
	for i := 0; i < running; i++ {
		err := <-errs
		if err != nil && !errors.Is(err, context.Canceled) {
			result = errors.Join(result, err)
		}
		cancel()
	}
	return result
}
