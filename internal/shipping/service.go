package shipping

import (
	"context"

	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/types"
)

// Quote is a shipping fee breakdown for one prospective order.
type Quote struct {
	BaseFee      int64 `json:"base_fee"`
	FastFee      int64 `json:"fast_fee"`
	RemoteFee    int64 `json:"remote_fee"`
	Total        int64 `json:"total"`
	FreeShipping bool  `json:"free_shipping"`
}

// QuoteInput carries the order-side facts the fee depends on.
type QuoteInput struct {
	Address      types.Address
	OrderAmount  int64
	FastDelivery bool
}

// Service computes shipping fees from the admin-tunable settings.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (*Quote, error)
}

type service struct {
	settings SettingsRepository
}

// NewService builds the shipping fee calculator.
func NewService(settings SettingsRepository) (Service, error) {
	if settings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settings repository is required")
	}
	return &service{settings: settings}, nil
}

// Quote prices delivery for the given address and amount. Orders at or above
// the free-shipping threshold ship free regardless of destination; fast
// delivery always costs its surcharge.
func (s *service) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	if err := input.Address.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	quote := &Quote{}
	if input.OrderAmount >= settings.FreeShippingThreshold {
		quote.FreeShipping = true
	} else {
		quote.BaseFee = settings.BaseShippingFee
		if input.Address.Province != settings.ShopProvince {
			quote.RemoteFee = settings.RemoteProvinceFee
		}
	}
	if input.FastDelivery {
		quote.FastFee = settings.FastShippingSurcharge
	}
	quote.Total = quote.BaseFee + quote.RemoteFee + quote.FastFee
	return quote, nil
}
