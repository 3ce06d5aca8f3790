package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/thanhhuy/storefront-backend/api/controllers"
	ordercontrollers "github.com/thanhhuy/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/thanhhuy/storefront-backend/api/controllers/webhooks"
	"github.com/thanhhuy/storefront-backend/api/middleware"
	"github.com/thanhhuy/storefront-backend/internal/checkout"
	"github.com/thanhhuy/storefront-backend/internal/orders"
	"github.com/thanhhuy/storefront-backend/internal/rollback"
	"github.com/thanhhuy/storefront-backend/internal/shipping"
	internalwebhooks "github.com/thanhhuy/storefront-backend/internal/webhooks"
	"github.com/thanhhuy/storefront-backend/pkg/config"
	"github.com/thanhhuy/storefront-backend/pkg/logger"
	"github.com/thanhhuy/storefront-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type signingSecretProvider interface {
	SigningSecret() string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisClient *redis.Client,
	checkoutService checkout.Service,
	ordersRepo orders.Repository,
	rollbackService rollback.Service,
	shippingService shipping.Service,
	walletWebhookService internalwebhooks.WalletService,
	cardWebhookService internalwebhooks.CardService,
	stripeClient signingSecretProvider,
	cardWebhookGuard *redis.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	// Gateway callbacks authenticate with signatures, not bearer tokens.
	r.Route("/api/v1/payments/callback", func(r chi.Router) {
		r.Post("/wallet", webhookcontrollers.WalletIPN(walletWebhookService, logg))
		r.Post("/card", webhookcontrollers.CardWebhook(cardWebhookService, stripeClient, cardWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/shipping/calculate", controllers.ShippingQuote(shippingService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordercontrollers.Create(checkoutService, logg))
				r.Get("/{id}", ordercontrollers.Get(ordersRepo, logg))
				r.Post("/{id}/cancel", ordercontrollers.Cancel(rollbackService, logg))

				r.With(middleware.RequireAdmin(logg)).
					Post("/rollback-inventory", ordercontrollers.RollbackInventory(rollbackService, logg))
			})
		})
	})

	return r
}
