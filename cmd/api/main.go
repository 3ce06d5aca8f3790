package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/thanhhuy/storefront-backend/api/routes"
	"github.com/thanhhuy/storefront-backend/internal/audit"
	"github.com/thanhhuy/storefront-backend/internal/catalog"
	"github.com/thanhhuy/storefront-backend/internal/checkout"
	"github.com/thanhhuy/storefront-backend/internal/notifications"
	"github.com/thanhhuy/storefront-backend/internal/orders"
	"github.com/thanhhuy/storefront-backend/internal/payments"
	"github.com/thanhhuy/storefront-backend/internal/rollback"
	"github.com/thanhhuy/storefront-backend/internal/shipping"
	"github.com/thanhhuy/storefront-backend/internal/vouchers"
	internalwebhooks "github.com/thanhhuy/storefront-backend/internal/webhooks"
	"github.com/thanhhuy/storefront-backend/pkg/config"
	"github.com/thanhhuy/storefront-backend/pkg/db"
	"github.com/thanhhuy/storefront-backend/pkg/logger"
	"github.com/thanhhuy/storefront-backend/pkg/migrate"
	"github.com/thanhhuy/storefront-backend/pkg/momo"
	"github.com/thanhhuy/storefront-backend/pkg/redis"
	pkgstripe "github.com/thanhhuy/storefront-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe client", err)
		os.Exit(1)
	}

	momoClient, err := momo.NewClient(cfg.Momo)
	if err != nil {
		logg.Error(context.Background(), "failed to create momo client", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	catalogRepo := catalog.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	settingsRepo := shipping.NewSettingsRepository(gormDB)

	voucherService, err := vouchers.NewService(vouchers.NewRepository(gormDB))
	requireService(logg, "voucher service", err)

	shippingService, err := shipping.NewService(settingsRepo)
	requireService(logg, "shipping service", err)

	auditRecorder, err := audit.NewRecorder(gormDB)
	requireService(logg, "audit recorder", err)

	notificationsService, err := notifications.NewService(
		gormDB,
		notifications.NewDiscordClient(cfg.Discord),
		settingsRepo,
		logg,
	)
	requireService(logg, "notifications service", err)

	cardGateway, err := payments.NewCardGateway(payments.NewStripeIntentClient(stripeClient))
	requireService(logg, "card gateway", err)

	walletGateway, err := payments.NewWalletGateway(momoClient)
	requireService(logg, "wallet gateway", err)

	gateways, err := payments.NewRegistry(payments.NewCODGateway(), cardGateway, walletGateway)
	requireService(logg, "gateway registry", err)

	validator, err := checkout.NewValidator(cfg.Checkout, catalogRepo)
	requireService(logg, "order validator", err)

	checkoutGuard, err := redis.NewIdempotencyGuard(redisClient, cfg.Checkout.GuardTTL, checkout.GuardScope)
	requireService(logg, "checkout guard", err)

	rollbackService, err := rollback.NewService(
		dbClient,
		ordersRepo,
		voucherService,
		nil,
		auditRecorder,
		notificationsService,
		logg,
	)
	requireService(logg, "rollback service", err)

	checkoutService, err := checkout.NewService(
		cfg.Checkout,
		dbClient,
		validator,
		ordersRepo,
		voucherService,
		nil,
		shippingService,
		gateways,
		checkoutGuard,
		redisClient,
		rollbackService,
		auditRecorder,
		notificationsService,
		logg,
	)
	requireService(logg, "checkout service", err)

	walletGuard, err := redis.NewIdempotencyGuard(redisClient, cfg.Webhook.ReplayTTL, internalwebhooks.WalletReplayScope)
	requireService(logg, "wallet replay guard", err)

	walletWebhookService, err := internalwebhooks.NewWalletService(internalwebhooks.WalletDeps{
		Momo:     cfg.Momo,
		Checkout: cfg.Checkout,
		Tx:       dbClient,
		Orders:   ordersRepo,
		Vouchers: voucherService,
		Audit:    auditRecorder,
		Rollback: rollbackService,
		Notifier: notificationsService,
		Guard:    walletGuard,
		Log:      logg,
	})
	requireService(logg, "wallet webhook service", err)

	cardWebhookGuard, err := redis.NewIdempotencyGuard(redisClient, cfg.Webhook.ReplayTTL, internalwebhooks.CardEventScope)
	requireService(logg, "card webhook guard", err)

	cardWebhookService, err := internalwebhooks.NewCardService(internalwebhooks.CardDeps{
		Checkout: cfg.Checkout,
		Tx:       dbClient,
		Orders:   ordersRepo,
		Vouchers: voucherService,
		Audit:    auditRecorder,
		Rollback: rollbackService,
		Notifier: notificationsService,
		Log:      logg,
	})
	requireService(logg, "card webhook service", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			checkoutService,
			ordersRepo,
			rollbackService,
			shippingService,
			walletWebhookService,
			cardWebhookService,
			stripeClient,
			cardWebhookGuard,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to create "+name, err)
		os.Exit(1)
	}
}
