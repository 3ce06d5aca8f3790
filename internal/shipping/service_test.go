package shipping

import (
	"context"
	"testing"

	"github.com/thanhhuy/storefront-backend/pkg/db/models"
	pkgerrors "github.com/thanhhuy/storefront-backend/pkg/errors"
	"github.com/thanhhuy/storefront-backend/pkg/types"
)

type staticSettings struct {
	settings models.AppSettings
}

func (s staticSettings) Get(context.Context) (*models.AppSettings, error) {
	cp := s.settings
	return &cp, nil
}

func testSettings() staticSettings {
	return staticSettings{settings: models.AppSettings{
		BaseShippingFee:       30000,
		FastShippingSurcharge: 15000,
		RemoteProvinceFee:     20000,
		FreeShippingThreshold: 500000,
		ShopProvince:          "Hồ Chí Minh",
	}}
}

func localAddress() types.Address {
	return types.Address{
		Line1:    "12 Nguyễn Huệ",
		Ward:     "Bến Nghé",
		District: "Quận 1",
		Province: "Hồ Chí Minh",
		Country:  "VN",
	}
}

func TestQuote_LocalStandardDelivery(t *testing.T) {
	t.Parallel()

	svc, err := NewService(testSettings())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	quote, err := svc.Quote(context.Background(), QuoteInput{
		Address:     localAddress(),
		OrderAmount: 200000,
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Total != 30000 || quote.RemoteFee != 0 || quote.FreeShipping {
		t.Fatalf("unexpected quote: %+v", quote)
	}
}

func TestQuote_RemoteProvinceAndFastDelivery(t *testing.T) {
	t.Parallel()

	svc, err := NewService(testSettings())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	addr := localAddress()
	addr.Province = "Hà Nội"
	quote, err := svc.Quote(context.Background(), QuoteInput{
		Address:      addr,
		OrderAmount:  200000,
		FastDelivery: true,
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Total != 65000 {
		t.Fatalf("expected base+remote+fast = 65000, got %d", quote.Total)
	}
}

func TestQuote_FreeShippingOverThreshold(t *testing.T) {
	t.Parallel()

	svc, err := NewService(testSettings())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	quote, err := svc.Quote(context.Background(), QuoteInput{
		Address:      localAddress(),
		OrderAmount:  600000,
		FastDelivery: true,
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !quote.FreeShipping {
		t.Fatal("expected free shipping over threshold")
	}
	if quote.Total != 15000 {
		t.Fatalf("fast surcharge still applies, got %d", quote.Total)
	}
}

func TestQuote_InvalidAddress(t *testing.T) {
	t.Parallel()

	svc, err := NewService(testSettings())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Quote(context.Background(), QuoteInput{OrderAmount: 100000})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}
