package payments

import (
	"context"
	"fmt"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	"github.com/thanhhuy/storefront-backend/pkg/enums"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/momo"
)

type walletClient interface {
	CreatePayment(ctx context.Context, input momo.CreatePaymentInput) (*momo.CreatePaymentResult, error)
}

type walletGateway struct {
	client walletClient
}

// NewWalletGateway builds the wallet gateway backed by the MoMo client. The
// order's payment intent ref doubles as the gateway order id, so the async
// IPN callback correlates without a separate remote ref.
func NewWalletGateway(client walletClient) (Gateway, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wallet gateway requires a momo client")
	}
	return &walletGateway{client: client}, nil
}

func (g *walletGateway) Method() enums.PaymentMethod {
	return enums.PaymentMethodWallet
}

func (g *walletGateway) Initiate(ctx context.Context, order *models.Order) (*InitiateResult, error) {
	result, err := g.client.CreatePayment(ctx, momo.CreatePaymentInput{
		OrderID:   order.PaymentIntentRef,
		Amount:    order.Amount,
		OrderInfo: fmt.Sprintf("Thanh toan don hang %s", order.PaymentIntentRef),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create wallet payment")
	}
	return &InitiateResult{Status: StatusPending, RedirectURL: result.PayURL}, nil
}
