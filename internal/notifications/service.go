package notifications

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/logger"
)

type discordSender interface {
	Enabled() bool
	Send(ctx context.Context, content string) error
}

type settingsReader interface {
	Get(ctx context.Context) (*models.AppSettings, error)
}

// Service fans order events out to the in-app notification table and the
// Discord webhook once an order reaches a terminal state. Delivery is best
// effort: failures are logged and aggregated but never bubble into the
// order flow.
type Service interface {
	OrderCompleted(ctx context.Context, order *models.Order) error
	OrderCanceled(ctx context.Context, order *models.Order, reason string) error
}

type service struct {
	db       *gorm.DB
	discord  discordSender
	settings settingsReader
	log      *logger.Logger
}

// NewService builds the notification fan-out.
func NewService(db *gorm.DB, discord discordSender, settings settingsReader, log *logger.Logger) (Service, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications require a database")
	}
	if discord == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications require a discord client")
	}
	if settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications require settings access")
	}
	if log == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications require a logger")
	}
	return &service{db: db, discord: discord, settings: settings, log: log}, nil
}

func (s *service) OrderCompleted(ctx context.Context, order *models.Order) error {
	title := "Order completed"
	body := fmt.Sprintf("Order %s paid: %d VND via %s", order.PaymentIntentRef, order.Amount, order.PaymentMethod)
	return s.deliver(ctx, order, title, body)
}

func (s *service) OrderCanceled(ctx context.Context, order *models.Order, reason string) error {
	title := "Order canceled"
	body := fmt.Sprintf("Order %s canceled: %s", order.PaymentIntentRef, reason)
	return s.deliver(ctx, order, title, body)
}

func (s *service) deliver(ctx context.Context, order *models.Order, title, body string) error {
	var errs error

	notification := models.Notification{
		ID:      uuid.New(),
		OrderID: &order.ID,
		Title:   title,
		Body:    body,
	}
	if err := s.db.WithContext(ctx).Create(&notification).Error; err != nil {
		s.log.Error(ctx, "failed to write in-app notification", err)
		errs = multierr.Append(errs, err)
	}

	if s.discord.Enabled() {
		settings, err := s.settings.Get(ctx)
		if err != nil {
			s.log.Error(ctx, "failed to load notification settings", err)
			errs = multierr.Append(errs, err)
		} else if settings.DiscordNotifications {
			if err := s.discord.Send(ctx, title+": "+body); err != nil {
				s.log.Error(ctx, "failed to post discord notification", err)
				errs = multierr.Append(errs, err)
			}
		}
	}

	return errs
}
